package orders

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDishes(t *testing.T) {
	encoded := EncodeDishes([]interface{}{"D007", "D021"})
	require.Equal(t, `["D007","D021"]`, encoded)
	require.Equal(t, []interface{}{"D007", "D021"}, DecodeDishes(encoded))

	// Non-list values are kept as text; undecodable text comes back raw.
	require.Equal(t, "D007", EncodeDishes("D007"))
	require.Equal(t, "[D001, D002]", DecodeDishes("[D001, D002]"))
	require.Equal(t, "42", EncodeDishes(float64(42)))
	require.Nil(t, DecodeDishes(nil))
}

func TestAsInt(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int
		ok   bool
	}{
		{float64(35), 35, true},
		{float64(35.9), 35, true},
		{float64(-4), -4, true},
		{" 40 ", 40, true},
		{"3.5", 0, false},
		{"soon", 0, false},
		{true, 1, true},
		{json.Number("12"), 12, true},
		{[]interface{}{1}, 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := AsInt(c.in)
		require.Equal(t, c.ok, ok, "input %#v", c.in)
		require.Equal(t, c.want, got, "input %#v", c.in)
	}
}

func TestIsPending(t *testing.T) {
	require.True(t, IsPending("pending"))
	require.True(t, IsPending("Pending"))
	require.True(t, IsPending("PENDING"))
	require.False(t, IsPending("delivered"))
	require.False(t, IsPending(""))
}
