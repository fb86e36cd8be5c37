package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_StableAcrossFieldOrder(t *testing.T) {
	a, err := DecodeObject([]byte(`{"name": "r1", "ports": [80, 443], "meta": {"x": 1, "y": 2}}`))
	require.NoError(t, err)
	b, err := DecodeObject([]byte(`{"meta": {"y": 2, "x": 1}, "ports": [80, 443], "name": "r1"}`))
	require.NoError(t, err)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestHash_ChangesWithContent(t *testing.T) {
	a := Object{"name": String("r1")}
	b := Object{"name": String("r2")}

	assert.NotEqual(t, MustHash(a), MustHash(b))
}

func TestHash_ArrayOrderMatters(t *testing.T) {
	a, err := DecodeObject([]byte(`{"ports": [80, 443]}`))
	require.NoError(t, err)
	b, err := DecodeObject([]byte(`{"ports": [443, 80]}`))
	require.NoError(t, err)

	assert.NotEqual(t, MustHash(a), MustHash(b))
}
