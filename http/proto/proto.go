package proto

import "strconv"

type Proto uint8

const (
	Unknown Proto = 0
	HTTP09  Proto = 1 << iota
	HTTP10
	HTTP11

	HTTP1 = HTTP10 | HTTP11
)

func (p Proto) String() string {
	switch p {
	case HTTP09:
		return "HTTP/0.9"
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	default:
		return ""
	}
}

var majorMinorVersionLUT = [10][10]Proto{
	0: {9: HTTP09},
	1: {0: HTTP10, 1: HTTP11},
}

// Parse returns the known protocol for the version pair. Versions having no
// representation (e.g. HTTP/1.2) result in Unknown.
func Parse(major, minor uint8) Proto {
	if major > 9 || minor > 9 {
		return Unknown
	}

	return majorMinorVersionLUT[major][minor]
}

// Format renders a version pair as it appears on the wire, e.g. HTTP/1.1.
func Format(major, minor uint8) string {
	if p := Parse(major, minor); p != Unknown {
		return p.String()
	}

	return "HTTP/" + strconv.Itoa(int(major)) + "." + strconv.Itoa(int(minor))
}
