package interp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	require.False(t, Null.Truthy())
	require.False(t, Bool(false).Truthy())
	require.True(t, Bool(true).Truthy())
	require.False(t, Int(0).Truthy())
	require.True(t, Int(1).Truthy())
	require.False(t, String("").Truthy())
	require.True(t, String("x").Truthy())
	require.False(t, Array(nil).Truthy())
	require.True(t, Array([]Value{Int(1)}).Truthy())
}

func TestValueStringRendersArrayAsSpaceJoined(t *testing.T) {
	v := Array([]Value{String("a"), Int(1), Bool(true)})
	require.Equal(t, "a 1 true", v.String())
}

func TestValueIndexOutOfRangeIsNull(t *testing.T) {
	v := Array([]Value{Int(1), Int(2)})
	require.Equal(t, Null, v.Index(5))
	require.Equal(t, Int(1), v.Index(0))
}

func TestValueFieldOnNonObjectIsNull(t *testing.T) {
	v := String("x")
	require.Equal(t, Null, v.Field("anything"))
}

func TestValueFieldMissingKeyIsNull(t *testing.T) {
	v := Object(map[string]Value{"a": Int(1)})
	require.Equal(t, Null, v.Field("b"))
	require.Equal(t, Int(1), v.Field("a"))
}

func TestValueEqual(t *testing.T) {
	require.True(t, Int(1).Equal(Int(1)))
	require.False(t, Int(1).Equal(Int(2)))
	require.True(t, String("1").Equal(Int(1)))
}

func TestValueJSONRoundTrip(t *testing.T) {
	orig := Object(map[string]Value{
		"name": String("shellkit"),
		"tags": Array([]Value{String("a"), String("b")}),
		"n":    Int(42),
	})
	data, err := orig.MarshalJSON()
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, decoded.UnmarshalJSON(data))
	require.Equal(t, "shellkit", decoded.Field("name").Str)
	require.Equal(t, int64(42), decoded.Field("n").Int)
}

func TestValueAsFloat(t *testing.T) {
	f, ok := String("3.5").AsFloat()
	require.True(t, ok)
	require.Equal(t, 3.5, f)

	_, ok = String("nope").AsFloat()
	require.False(t, ok)

	f, ok = Bool(true).AsFloat()
	require.True(t, ok)
	require.Equal(t, float64(1), f)
}

func TestValueLen(t *testing.T) {
	require.Equal(t, 5, String("hello").Len())
	require.Equal(t, 2, Array([]Value{Int(1), Int(2)}).Len())
	require.Equal(t, 0, Int(3).Len())
}
