package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	require.Equal(t, HTTP10, Parse(1, 0))
	require.Equal(t, HTTP11, Parse(1, 1))
	require.Equal(t, HTTP09, Parse(0, 9))
	require.Equal(t, Unknown, Parse(1, 2))
	require.Equal(t, Unknown, Parse(12, 0))
}

func TestFormat(t *testing.T) {
	require.Equal(t, "HTTP/1.1", Format(1, 1))
	require.Equal(t, "HTTP/1.0", Format(1, 0))
	require.Equal(t, "HTTP/2.0", Format(2, 0))
	require.Equal(t, "HTTP/1.7", Format(1, 7))
}
