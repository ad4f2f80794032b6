/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"os"
	"path/filepath"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

func TestManifestConformsToSchema(t *testing.T) {
	lh := newTestLibrary(t)

	// Populate nested structures so the schema's asset and version
	// definitions are actually exercised.
	a, err := lh.ImportAsset("photo.png", "image/png", pngBytes(t, 8, 6))
	if err != nil {
		t.Fatalf("ImportAsset error: %v", err)
	}
	if _, err := lh.AddVersion(a.ID, pngBytes(t, 8, 6)); err != nil {
		t.Fatalf("AddVersion error: %v", err)
	}

	// Load manifest bytes
	data, err := os.ReadFile(lh.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	// Load schema bytes via relative path to repository docs
	schemaPath := filepath.Join("..", "..", "docs", "studio.schema.json")
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("manifest does not conform to schema")
	}
}

func TestSchemaRejectsBadKind(t *testing.T) {
	schemaBytes, err := os.ReadFile(filepath.Join("..", "..", "docs", "studio.schema.json"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	doc := `{"name":"x","assets":[{"id":"a","name":"n","kind":"audio","mime":"audio/mp3","sourcePath":"p","importedAt":"2026-01-02T03:04:05Z","versions":[]}]}`

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaBytes), gojsonschema.NewStringLoader(doc))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if result.Valid() {
		t.Fatalf("expected kind \"audio\" to be rejected")
	}
}
