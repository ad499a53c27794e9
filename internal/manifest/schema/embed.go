// Package schema embeds the CUE schema that validates decoded
// provider.toml / *.override.toml manifests before they are unmarshaled
// into Go structs.
package schema

import _ "embed"

//go:embed schema.cue
var SchemaCUE string
