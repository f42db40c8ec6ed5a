package ipgate

import (
	"mime"
	"path"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLen is the number of leading bytes used to detect a content type.
const SniffLen = 3072

// DetectContentType classifies content by its leading bytes, falling back
// to the file name extension where the bytes alone are ambiguous.
func DetectContentType(name string, head []byte) string {
	detected := mimetype.Detect(head)
	byExt := mime.TypeByExtension(path.Ext(name))

	switch {
	case detected.Is("application/octet-stream"):
		if byExt != "" {
			return byExt
		}
	case detected.Is("text/plain"), detected.Is("text/xml"), detected.Is("application/xml"):
		// Generic text covers css, js, svg and friends.
		if byExt != "" {
			return byExt
		}
	}

	return detected.String()
}
