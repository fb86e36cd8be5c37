package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip_RemovesTopLevelFieldsOnly(t *testing.T) {
	obj, err := DecodeObject([]byte(`{"id": 1, "name": "r", "nested": {"id": 2}}`))
	require.NoError(t, err)

	out := Strip(obj, map[string]struct{}{"id": {}})

	_, hasID := out["id"]
	assert.False(t, hasID)
	assert.Equal(t, Num("2"), out["nested"].(Object)["id"])
	// Input untouched.
	assert.Equal(t, Num("1"), obj["id"])
}

func TestNaturalKey_ScalarKinds(t *testing.T) {
	obj, err := DecodeObject([]byte(`{"id": 42, "name": "label", "tags": ["x"]}`))
	require.NoError(t, err)

	assert.Equal(t, "42", NaturalKey(obj, "id"))
	assert.Equal(t, "label", NaturalKey(obj, "name"))
	assert.Equal(t, "", NaturalKey(obj, "tags"))
	assert.Equal(t, "", NaturalKey(obj, "absent"))
}

func TestRewriteRefs_RewritesNestedIDs(t *testing.T) {
	obj, err := DecodeObject([]byte(`{
		"id": 10,
		"name": "rule",
		"labels": [{"id": 5, "name": "L1"}],
		"location": {"id": 7}
	}`))
	require.NoError(t, err)

	mapping := map[string]string{"5": "500", "7": "700"}
	out, unresolved := RewriteRefs(obj, func(src string) (string, bool) {
		target, ok := mapping[src]
		return target, ok
	})
	require.Empty(t, unresolved)

	result := out.(Object)
	// The resource's own id is identity, never a reference.
	assert.Equal(t, Num("10"), result["id"])
	assert.Equal(t, Num("500"), result["labels"].(Array)[0].(Object)["id"])
	assert.Equal(t, Num("700"), result["location"].(Object)["id"])
	// Input is not mutated.
	assert.Equal(t, Num("5"), obj["labels"].(Array)[0].(Object)["id"])
}

func TestRewriteRefs_CollectsUnresolved(t *testing.T) {
	obj, err := DecodeObject([]byte(`{"id": 1, "ref": {"id": 99}}`))
	require.NoError(t, err)

	_, unresolved := RewriteRefs(obj, func(string) (string, bool) { return "", false })
	assert.Equal(t, []string{"99"}, unresolved)
}

func TestRewriteRefs_PreservesScalarKind(t *testing.T) {
	obj, err := DecodeObject([]byte(`{"num": {"id": 5}, "str": {"id": "abc"}}`))
	require.NoError(t, err)

	out, unresolved := RewriteRefs(obj, func(src string) (string, bool) {
		if src == "5" {
			return "50", true
		}
		return "xyz", true
	})
	require.Empty(t, unresolved)

	result := out.(Object)
	assert.Equal(t, Num("50"), result["num"].(Object)["id"])
	assert.Equal(t, String("xyz"), result["str"].(Object)["id"])
}

func TestFieldChanges_SkipsIgnoredAndEqualFields(t *testing.T) {
	oldObj, err := DecodeObject([]byte(`{"name": "r", "order": 1, "modifiedTime": 100}`))
	require.NoError(t, err)
	newObj, err := DecodeObject([]byte(`{"name": "r", "order": 2, "modifiedTime": 200, "added": true}`))
	require.NoError(t, err)

	changes := FieldChanges(oldObj, newObj, map[string]struct{}{"modifiedTime": {}})

	require.Len(t, changes, 2)
	assert.Equal(t, "added", changes[0].Field)
	assert.Nil(t, changes[0].Old)
	assert.Equal(t, Bool(true), changes[0].New)
	assert.Equal(t, "order", changes[1].Field)
	assert.Equal(t, Num("1"), changes[1].Old)
	assert.Equal(t, Num("2"), changes[1].New)
}
