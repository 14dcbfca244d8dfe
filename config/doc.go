// File: config/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package config loads a httpserver.Config from a YAML file, standing
// in for the CLI option subsystem spec.md places out of scope.
package config
