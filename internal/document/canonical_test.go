package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysByUTF16(t *testing.T) {
	obj := make(Object)
	obj["b"] = Num("2")
	obj["a"] = Num("1")
	obj["é"] = Num("3") // sorts after the ASCII keys
	data, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"é":3}`, string(data))
}

func TestMarshalCanonical_FieldOrderIrrelevant(t *testing.T) {
	a, err := DecodeObject([]byte(`{"x": 1, "y": [true, null, "s"]}`))
	require.NoError(t, err)
	b, err := DecodeObject([]byte(`{"y": [true, null, "s"], "x": 1}`))
	require.NoError(t, err)

	ca, err := MarshalCanonical(a)
	require.NoError(t, err)
	cb, err := MarshalCanonical(b)
	require.NoError(t, err)
	assert.Equal(t, string(ca), string(cb))
}

func TestMarshalCanonical_EscapesControlCharacters(t *testing.T) {
	data, err := MarshalCanonical(Object{"s": String("a\"b\\c\nd\x01")})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"a\"b\\c\nd\u0001"}`, string(data))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical(Object{"url": String("https://x.test/?a=1&b=<2>")})
	require.NoError(t, err)
	assert.Equal(t, `{"url":"https://x.test/?a=1&b=<2>"}`, string(data))
}

func TestMarshalCanonical_PreservesNumberLiteral(t *testing.T) {
	obj, err := DecodeObject([]byte(`{"n": 1.2500}`))
	require.NoError(t, err)
	data, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"n":1.2500}`, string(data))
}
