package status

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowsBody(t *testing.T) {
	for _, code := range []Code{Continue, SwitchingProtocols, EarlyHints, NoContent, NotModified} {
		require.False(t, AllowsBody(code), code)
	}

	for _, code := range []Code{OK, Created, PartialContent, Found, NotFound, InternalServerError} {
		require.True(t, AllowsBody(code), code)
	}
}
