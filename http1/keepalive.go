package http1

import (
	"golang.org/x/net/http/httpguts"
)

// resolveKeepAlive decides whether the connection may be reused after the message. It relies
// only on the version and the Connection header values already stored in the message.
func resolveKeepAlive(m *Message) KeepAlive {
	connection := m.Headers.Values("Connection")

	switch {
	case m.Major == 0:
		return KeepAliveFalse
	case m.Major == 1 && m.Minor == 0:
		if httpguts.HeaderValuesContainsToken(connection, "keep-alive") {
			return KeepAliveTrue
		}

		return KeepAliveFalse
	default:
		if httpguts.HeaderValuesContainsToken(connection, "close") {
			return KeepAliveFalse
		}

		return KeepAliveTrue
	}
}
