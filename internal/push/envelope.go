package push

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tenantsync/internal/registry"
	"github.com/roach88/tenantsync/internal/remote"
	"github.com/roach88/tenantsync/internal/snapshot"
)

// Envelope is the portable baseline document consumed by a push: a product
// tag plus resource entries grouped by type. It carries no target-tenant
// identifiers; every id inside is a source-environment id and is remapped
// during the push.
type Envelope struct {
	Product   string            `json:"product"`
	Resources snapshot.Contents `json:"resources"`
}

// ParseEnvelope decodes and validates a baseline document. A malformed
// envelope is a fatal error: pushing a half-understood baseline is worse
// than refusing it.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, remote.WrapError(remote.KindFatal, "", "malformed baseline envelope", err)
	}
	if env.Product == "" {
		return Envelope{}, remote.NewError(remote.KindFatal, "", "baseline envelope missing product tag")
	}
	for rtype := range env.Resources {
		def, ok := registry.Lookup(rtype)
		if !ok {
			return Envelope{}, remote.NewError(remote.KindFatal, rtype, "unknown resource type in baseline envelope")
		}
		if string(def.Product) != env.Product {
			return Envelope{}, remote.NewError(remote.KindFatal, rtype,
				fmt.Sprintf("resource type belongs to product %q, envelope is %q", def.Product, env.Product))
		}
	}
	return env, nil
}

// FromSnapshot wraps snapshot contents as a pushable baseline.
func FromSnapshot(product registry.Product, contents snapshot.Contents) Envelope {
	return Envelope{Product: string(product), Resources: contents}
}

// Marshal renders the envelope as an indented portable document, the format
// written by snapshot export and accepted by ParseEnvelope.
func (e Envelope) Marshal() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// Count returns the total number of baseline entries.
func (e Envelope) Count() int {
	return e.Resources.Count()
}
