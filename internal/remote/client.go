/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package remote holds the thin HTTP clients for the hosted collaborators:
// the asset storage service and the AI region-edit service. Both expose
// narrow call contracts; the editing core never sees transport details.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"imagestudio/internal/editerr"
)

// VersionRecord is the hosted service's view of one version.
type VersionRecord struct {
	AssetID    string    `json:"asset_id"`
	VersionNum int       `json:"version_num"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

// Client is a minimal HTTP client for the hosted storage API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new storage client. baseURL may include a trailing
// slash; it will be normalized.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, contentType string, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	var rd *bytes.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: server %s %s: %s", editerr.ErrStorage, method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: decode response: %v", editerr.ErrStorage, err)
	}
	return nil
}

// UploadRaster stores version bytes for an asset and returns the created
// version record.
func (c *Client) UploadRaster(ctx context.Context, assetID string, data []byte) (*VersionRecord, error) {
	var rec VersionRecord
	path := fmt.Sprintf("/api/assets/%s/versions", url.PathEscape(assetID))
	if err := c.doJSON(ctx, http.MethodPost, path, data, "image/png", &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FetchVersions returns the asset's versions ascending by number.
func (c *Client) FetchVersions(ctx context.Context, assetID string) ([]VersionRecord, error) {
	var list []VersionRecord
	path := fmt.Sprintf("/api/assets/%s/versions", url.PathEscape(assetID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteVersion removes one version on the hosted side.
func (c *Client) DeleteVersion(ctx context.Context, assetID string, versionNum int) error {
	path := fmt.Sprintf("/api/assets/%s/versions/%d", url.PathEscape(assetID), versionNum)
	return c.doJSON(ctx, http.MethodDelete, path, nil, "", nil)
}

// ResolveDisplayURL turns an opaque reference into a fetchable, possibly
// signed, URL.
func (c *Client) ResolveDisplayURL(ctx context.Context, ref string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	path := "/api/resolve?ref=" + url.QueryEscape(ref)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// FetchBytes downloads raster bytes for an opaque reference, resolving
// the display URL first.
func (c *Client) FetchBytes(ctx context.Context, ref string) ([]byte, error) {
	u, err := c.ResolveDisplayURL(ctx, ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", editerr.ErrStorage, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: %s", editerr.ErrStorage, ref, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: read body: %v", editerr.ErrStorage, err)
	}
	return buf.Bytes(), nil
}
