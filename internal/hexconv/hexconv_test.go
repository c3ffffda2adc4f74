package hexconv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for i, char := range []byte("0123456789abcdef") {
		value, ok := Parse(char)
		require.True(t, ok)
		require.Equal(t, byte(i), value)
	}

	value, ok := Parse('C')
	require.True(t, ok)
	require.Equal(t, byte(0xc), value)

	for _, char := range []byte("gG -;\r\n\x00\xff") {
		_, ok = Parse(char)
		require.False(t, ok, "%q", char)
	}
}

func BenchmarkParse(b *testing.B) {
	str := strings.Repeat("123456789abcdef", 100)
	b.SetBytes(int64(len(str)))
	b.ResetTimer()

	for range b.N {
		var result uint64

		for j := range str {
			value, _ := Parse(str[j])
			result = (result << 4) | uint64(value)
		}
	}
}
