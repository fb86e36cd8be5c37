package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEnvelope(t *testing.T) {
	valid := `{"product": "swg", "resources": {
		"rule_label": [{"id": "1", "name": "L1", "config": {"id": 1, "name": "L1"}}]
	}}`
	require.NoError(t, validateEnvelope("baseline.json", []byte(valid)))

	cases := map[string]string{
		"not json":        `product: swg`,
		"numeric id":      `{"product": "swg", "resources": {"rule_label": [{"id": 1, "name": "L1", "config": {}}]}}`,
		"missing name":    `{"product": "swg", "resources": {"rule_label": [{"id": "1", "config": {}}]}}`,
		"config not obj":  `{"product": "swg", "resources": {"rule_label": [{"id": "1", "name": "L1", "config": []}]}}`,
		"empty product":   `{"product": "", "resources": {}}`,
		"product missing": `{"resources": {}}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, validateEnvelope("baseline.json", []byte(src)))
		})
	}
}

func TestLoadEnvelope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"product": "swg", "resources": {
		"rule_label": [{"id": "1", "name": "L1", "config": {"id": 1, "name": "L1"}}]
	}}`), 0o644))

	env, err := LoadEnvelope(path)
	require.NoError(t, err)
	assert.Equal(t, "swg", env.Product)
	assert.Equal(t, 1, env.Count())

	// Schema-valid but registry-invalid types are rejected after decoding.
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"product": "swg", "resources": {
		"flux_capacitor": [{"id": "1", "name": "x", "config": {}}]
	}}`), 0o644))
	_, err = LoadEnvelope(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource type")

	_, err = LoadEnvelope(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
