package mime

import (
	"strings"

	"github.com/indigo-web/utils/strcomp"
)

type MIME = string

const (
	OctetStream MIME = "application/octet-stream"
	Plain       MIME = "text/plain"
	HTML        MIME = "text/html"
	JSON        MIME = "application/json"
	XML         MIME = "text/xml"
)

// Complies returns whether the Content-Type value is compatible with the MIME. Parameters
// are ignored, empty Content-Type is considered compatible with any MIME.
func Complies(mime MIME, contentType string) bool {
	contentType, _, _ = strings.Cut(contentType, ";")
	contentType = strings.TrimSpace(contentType)
	return len(contentType) == 0 || strcomp.EqualFold(contentType, mime)
}
