package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tenantsync/internal/harness"
	"github.com/roach88/tenantsync/internal/registry"
	"github.com/roach88/tenantsync/internal/remote"
	"github.com/roach88/tenantsync/internal/snapshot"
)

func TestParseEnvelope_Valid(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"product": "swg", "resources": {
		"rule_label": [{"id": "1", "name": "L1", "config": {"id": 1, "name": "L1"}}]
	}}`))
	require.NoError(t, err)
	assert.Equal(t, "swg", env.Product)
	assert.Equal(t, 1, env.Count())
	assert.Equal(t, "1", env.Resources["rule_label"][0].RemoteID)
}

func TestParseEnvelope_Rejections(t *testing.T) {
	cases := map[string]string{
		"malformed":       `{"product": "swg"`,
		"missing product": `{"resources": {}}`,
		"unknown type":    `{"product": "swg", "resources": {"flux_capacitor": []}}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(src))
			require.Error(t, err)
			assert.True(t, remote.IsFatal(err))
		})
	}
}

func TestParseEnvelope_ProductMismatch(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"product": "other", "resources": {"rule_label": []}}`))
	require.Error(t, err)
	assert.True(t, remote.IsFatal(err))
	assert.Contains(t, err.Error(), "belongs to product")
}

func TestEnvelope_MarshalRoundTrip(t *testing.T) {
	contents := snapshot.Contents{
		"rule_label": {
			{RemoteID: "1", Name: "L1", Payload: harness.Obj(t, `{"id": 1, "name": "L1", "color": "blue"}`)},
		},
	}
	env := FromSnapshot(registry.ProductSWG, contents)

	data, err := env.Marshal()
	require.NoError(t, err)

	parsed, err := ParseEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env.Product, parsed.Product)
	require.Len(t, parsed.Resources["rule_label"], 1)
	assert.Equal(t, "L1", parsed.Resources["rule_label"][0].Name)
	assert.Equal(t, env.Resources["rule_label"][0].Payload, parsed.Resources["rule_label"][0].Payload)
}
