package http_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

// findOpenAPISpec locates the openapi.yaml file by walking up from the test directory.
func findOpenAPISpec(t *testing.T) string {
	// Start from the current working directory or test file location
	dir, _ := os.Getwd()

	// Look for api/openapi.yaml by going up directories
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "api", "openapi.yaml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}

	t.Fatalf("could not find api/openapi.yaml")
	return ""
}

// TestOpenAPISpec validates the OpenAPI specification is valid.
func TestOpenAPISpec(t *testing.T) {
	// Load the spec file
	specPath := findOpenAPISpec(t)
	data, err := os.ReadFile(specPath)
	if err != nil {
		t.Fatalf("failed to read openapi.yaml: %v", err)
	}

	// Parse YAML spec
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI spec: %v", err)
	}

	// Validate the spec
	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI spec validation failed: %v", err)
	}

	// Check that key paths exist
	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/metadata/geofenced-by-id",
		"/v1/claim-quest-nft",
		"/v1/claims/{metadata_id}/{user_address}",
		"/v1/metadata",
		"/v1/metadata/nearby",
		"/v1/metadata/geojson",
		"/v1/metadata/{id}",
		"/metadata/geofenced-by-id",
		"/claim-quest-nft",
		"/graphql",
	}

	for _, path := range expectedPaths {
		if item := spec.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found in spec", path)
		}
	}

	// Verify key schemas exist
	expectedSchemas := []string{
		"GeoMetadata",
		"EligibilityResponse",
		"ClaimRequest",
		"ClaimResponse",
		"ClaimRecord",
		"APIError",
		"Pagination",
	}

	for _, schema := range expectedSchemas {
		if spec.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}

	t.Logf("OpenAPI spec valid: %d paths, %d schemas", len(spec.Paths.Map()), len(spec.Components.Schemas))
}

// TestOpenAPIInfo verifies spec metadata.
func TestOpenAPIInfo(t *testing.T) {
	specPath := findOpenAPISpec(t)
	data, err := os.ReadFile(specPath)
	if err != nil {
		t.Fatalf("failed to read openapi.yaml: %v", err)
	}

	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI spec: %v", err)
	}

	if spec.Info.Title != "GeoQuest Claims API" {
		t.Errorf("expected title 'GeoQuest Claims API', got %q", spec.Info.Title)
	}

	if spec.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", spec.Info.Version)
	}

	if spec.Info.Description == "" {
		t.Error("expected non-empty description")
	}

	if len(spec.Servers) == 0 {
		t.Error("expected at least one server")
	}

	legacy := spec.Paths.Find("/claim-quest-nft")
	if legacy == nil || legacy.Post == nil || !legacy.Post.Deprecated {
		t.Error("expected legacy /claim-quest-nft to be marked deprecated")
	}

	t.Logf("OpenAPI Info: %s v%s @ %s", spec.Info.Title, spec.Info.Version, spec.Servers[0].URL)
}

// TestDocs_ServesEmbeddedDocument checks /docs/openapi.yaml is served from
// the binary, independent of the working directory (tests run inside the
// package directory, not the repository root).
func TestDocs_ServesEmbeddedDocument(t *testing.T) {
	f := newFixture(t)

	status, body, hdr := f.do(t, "GET", "/docs/openapi.yaml", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if hdr["Content-Type"] != "application/yaml" {
		t.Errorf("unexpected content type %q", hdr["Content-Type"])
	}

	onDisk, err := os.ReadFile(findOpenAPISpec(t))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != string(onDisk) {
		t.Error("served document differs from api/openapi.yaml")
	}

	doc, err := (&openapi3.Loader{}).LoadFromData(body)
	if err != nil {
		t.Fatalf("served document does not parse: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Errorf("served document is invalid: %v", err)
	}
}
