/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"imagestudio/internal/crash"
	"imagestudio/internal/export"
	applog "imagestudio/internal/log"
	"imagestudio/internal/remote"
	"imagestudio/internal/store"
	"imagestudio/internal/ui"
	"imagestudio/internal/version"
)

func usage() {
	fmt.Println("Image Studio — visual asset editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  studio version|-v|--version              Show version")
	fmt.Println("  studio init <dir> <name>                  Create a new library at <dir> with name <name>")
	fmt.Println("  studio open <dir>                         Open library at <dir> and print summary")
	fmt.Println("  studio import <dir> <file>                Import an image or video file into the library")
	fmt.Println("  studio versions <dir> <assetID>           List the version lineage of an asset")
	fmt.Println("  studio export <dir> <assetID> <num>       Export one version as PNG")
	fmt.Println("  studio sheet <dir> <assetID>              Write a PDF contact sheet of all versions")
	fmt.Println("  studio sync <dir>                         Rebuild the sqlite version index from the manifest")
	fmt.Println("  studio parity <dir> <dsn> [assetID]       Compare local versions against the hosted Postgres index")
	fmt.Println("  studio ui [<dir>]                         Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var lh *store.LibraryHandle
	defer func() { crash.Recover(lh) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Image Studio — visual asset editor")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <name>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			name := args[3]
			l.Info("init library", slog.String("root", abs), slog.String("name", name))
			h, err := store.InitLibrary(abs, store.Library{Name: name})
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lh = h
			fmt.Println("Created library at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("open library", slog.String("root", abs))
			h, err := store.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lh = h
			fmt.Printf("Opened library: %s\n", h.Library.Name)
			fmt.Printf("Assets: %d\n", len(h.Library.Assets))
			fmt.Println("Root:", h.Root)
			return
		case "import":
			if len(args) < 4 {
				fmt.Println("import requires <dir> and <file>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			file := args[3]
			h, err := store.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lh = h
			data, err := os.ReadFile(file)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(file)))
			a, err := h.ImportAsset(filepath.Base(file), mimeType, data)
			if err != nil {
				l.Error("import failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Imported %s as %s (%s, %dx%d)\n", a.Name, a.ID, a.Kind, a.Width, a.Height)
			return
		case "versions":
			if len(args) < 4 {
				fmt.Println("versions requires <dir> and <assetID>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := store.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lh = h
			vs, err := h.ListVersions(args[3])
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("v0  (original, immutable)")
			for _, v := range vs {
				fmt.Printf("v%d  %s\n", v.Num, v.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return
		case "export":
			if len(args) < 5 {
				fmt.Println("export requires <dir>, <assetID> and <num>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			num, err := strconv.Atoi(args[4])
			if err != nil {
				fmt.Println("Error: version number must be an integer")
				os.Exit(2)
			}
			h, err := store.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lh = h
			path, err := export.VersionPNG(h, args[3], num)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Wrote", path)
			return
		case "sheet":
			if len(args) < 4 {
				fmt.Println("sheet requires <dir> and <assetID>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := store.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lh = h
			path, err := export.ContactSheetPDF(h, args[3])
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Wrote", path)
			return
		case "sync":
			if len(args) < 3 {
				fmt.Println("sync requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := store.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lh = h
			if err := store.SyncVersionIndex(context.Background(), h); err != nil {
				l.Error("sync failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Version index rebuilt.")
			return
		case "parity":
			if len(args) < 4 {
				fmt.Println("parity requires <dir> and <dsn>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := store.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			lh = h
			ctx := context.Background()
			db, err := remote.OpenParityDB(ctx, args[3])
			if err != nil {
				l.Error("parity connect failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			defer func() { _ = db.Close() }()
			ids := make([]string, 0, len(h.Library.Assets))
			if len(args) >= 5 {
				ids = append(ids, args[4])
			} else {
				for _, a := range h.Library.Assets {
					ids = append(ids, a.ID)
				}
			}
			clean := true
			for _, id := range ids {
				vs, err := h.ListVersions(id)
				if err != nil {
					fmt.Println("Error:", err)
					os.Exit(1)
				}
				local := make([]int, 0, len(vs))
				for _, v := range vs {
					local = append(local, v.Num)
				}
				hosted, err := remote.FetchVersionIndexPG(ctx, db, id)
				if err != nil {
					l.Error("parity fetch failed", slog.String("asset", id), slog.Any("err", err))
					fmt.Println("Error:", err)
					os.Exit(1)
				}
				missingLocal, missingHosted := remote.ParityDiff(hosted, local)
				if len(missingLocal) == 0 && len(missingHosted) == 0 {
					continue
				}
				clean = false
				fmt.Printf("%s:\n", id)
				for _, n := range missingLocal {
					fmt.Printf("  v%d hosted only\n", n)
				}
				for _, n := range missingHosted {
					fmt.Printf("  v%d local only\n", n)
				}
			}
			if clean {
				fmt.Printf("Checked %d asset(s); local and hosted indexes agree.\n", len(ids))
			} else {
				os.Exit(1)
			}
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}
