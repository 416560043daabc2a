package structure

import (
	_ "embed"
)

// MetaSchemaJSON is the compiled-in contents of
// schemas/wizard-structure-v1.schema.json, so callers need not locate
// the file on disk to build a Validator.
//
//go:embed embedded/wizard-structure-v1.schema.json
var MetaSchemaJSON []byte
