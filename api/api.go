// Package api holds the OpenAPI description of the HTTP API.
package api

import _ "embed"

// OpenAPI is the contents of openapi.yaml, compiled into the binary so the
// docs endpoint does not depend on the working directory.
//
//go:embed openapi.yaml
var OpenAPI []byte
