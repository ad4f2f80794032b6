/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads and saves the user-editable application
// configuration. The config lives in a YAML file in the per-user scope;
// environment variables act as read-only overrides at runtime. Service
// tokens are never written to disk; they live in the OS keychain.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// StorageConfig points the editor at the asset-storage service that keeps
// version rasters. BaseURL empty means purely local operation.
type StorageConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

// InpaintConfig points at the AI region-edit service.
type InpaintConfig struct {
	BaseURL      string `yaml:"base_url"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	PollEveryMs  int    `yaml:"poll_every_ms"`
	MaxPollCount int    `yaml:"max_poll_count"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Storage       StorageConfig `yaml:"storage"`
	Inpaint       InpaintConfig `yaml:"inpaint"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Storage:       StorageConfig{BaseURL: "", TimeoutMs: 15000, TLSInsecure: false},
		Inpaint:       InpaintConfig{BaseURL: "", TimeoutMs: 30000, PollEveryMs: 2000, MaxPollCount: 150},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvStorageURL       = "STUDIO_STORAGE_URL"
	EnvStorageTimeoutMs = "STUDIO_STORAGE_TIMEOUT_MS"
	EnvStorageTLSInsec  = "STUDIO_TLS_INSECURE"
	EnvInpaintURL       = "STUDIO_INPAINT_URL"
	EnvInpaintPollMs    = "STUDIO_INPAINT_POLL_MS"
	EnvTelemetryOptIn   = "STUDIO_TELEMETRY_OPT_IN"
	EnvLogLevel         = "STUDIO_LOG_LEVEL"
	EnvLogFormat        = "STUDIO_LOG_FORMAT"
	EnvLogSource        = "STUDIO_LOG_SOURCE"
	EnvLogFile          = "STUDIO_LOG_FILE"
)

// Service/keys for the OS keyring.
const (
	keyringService = "ImageStudio"
	keyringToken   = "service_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// SetTokenStore swaps the token backend; it returns the previous store so
// tests can restore it.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ImageStudio")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ImageStudio")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "imagestudio")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The service token comes from the keyring and is
// returned separately so it never sits in the struct callers persist.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans come straight from the file so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.Storage.BaseURL != "" {
		dst.Storage.BaseURL = src.Storage.BaseURL
	}
	if src.Storage.TimeoutMs != 0 {
		dst.Storage.TimeoutMs = src.Storage.TimeoutMs
	}
	dst.Storage.TLSInsecure = src.Storage.TLSInsecure
	if src.Inpaint.BaseURL != "" {
		dst.Inpaint.BaseURL = src.Inpaint.BaseURL
	}
	if src.Inpaint.TimeoutMs != 0 {
		dst.Inpaint.TimeoutMs = src.Inpaint.TimeoutMs
	}
	if src.Inpaint.PollEveryMs != 0 {
		dst.Inpaint.PollEveryMs = src.Inpaint.PollEveryMs
	}
	if src.Inpaint.MaxPollCount != 0 {
		dst.Inpaint.MaxPollCount = src.Inpaint.MaxPollCount
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvStorageURL)); v != "" {
		cfg.Storage.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Storage.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageTLSInsec)); v != "" {
		cfg.Storage.TLSInsecure = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvInpaintURL)); v != "" {
		cfg.Inpaint.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvInpaintPollMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Inpaint.PollEveryMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}
