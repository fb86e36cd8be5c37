package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/tenantsync/internal/push"
)

// envelopeSchema constrains the shape of a baseline envelope before it is
// decoded: a product tag plus per-type entry lists, each entry carrying its
// source id, display name, and payload. Registry-level validation (known
// types, matching product) happens afterwards in push.ParseEnvelope.
const envelopeSchema = `
product: string & != ""
resources: {
	[string]: [...{
		id:     string
		name:   string
		config: {...}
	}]
}
`

// LoadEnvelope reads, schema-validates, and decodes a baseline envelope
// file.
func LoadEnvelope(path string) (push.Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return push.Envelope{}, fmt.Errorf("read envelope: %w", err)
	}
	if err := validateEnvelope(path, data); err != nil {
		return push.Envelope{}, fmt.Errorf("envelope %s: %w", path, err)
	}
	return push.ParseEnvelope(data)
}

// validateEnvelope unifies the document with the envelope schema.
func validateEnvelope(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(envelopeSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("envelope schema: %w", err)
	}

	expr, err := cuejson.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	value := ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return err
	}

	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}
