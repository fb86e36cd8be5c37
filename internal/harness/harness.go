// Package harness wires a complete in-memory sync stack for tests: a
// temporary cache database, an in-memory remote source preloaded per test,
// and the shared collaborators (rate limiter, audit sink, logger) the
// engines expect. Engines themselves are constructed by the tests so each
// can pick its own options.
package harness

import (
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tenantsync/internal/document"
	"github.com/roach88/tenantsync/internal/registry"
	"github.com/roach88/tenantsync/internal/remote"
	"github.com/roach88/tenantsync/internal/store"
)

// Harness is one test's sync stack. Every harness gets a fresh database
// file under t.TempDir, closed automatically at cleanup.
type Harness struct {
	Store   *store.Store
	Source  *remote.MemorySource
	Audit   *remote.MemoryAuditSink
	Limiter *remote.RateLimiter
	Logger  *slog.Logger
}

// New builds a harness for the given test.
func New(t *testing.T) *Harness {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	nameFields := make(map[string]string)
	for _, def := range registry.Definitions(registry.ProductSWG) {
		if def.NameField != "name" {
			nameFields[def.Type] = def.NameField
		}
	}

	return &Harness{
		Store:   st,
		Source:  remote.NewMemorySource(nameFields),
		Audit:   &remote.MemoryAuditSink{},
		Limiter: remote.NewRateLimiter(10000, time.Second),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Obj decodes a JSON object literal into a document. Fails the test on
// malformed input.
func Obj(t *testing.T, src string) document.Object {
	t.Helper()
	obj, err := document.DecodeObject([]byte(src))
	require.NoError(t, err)
	return obj
}

// Objs decodes a JSON array of objects.
func Objs(t *testing.T, src string) []document.Object {
	t.Helper()
	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(src), &raw))
	out := make([]document.Object, len(raw))
	for i, r := range raw {
		obj, err := document.DecodeObject(r)
		require.NoError(t, err)
		out[i] = obj
	}
	return out
}
