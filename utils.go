package ipgate

import (
	"strings"
)

// ContentDisposition formats a Content-Disposition header value with an
// ASCII filename parameter and an RFC 5987 UTF-8 filename* parameter.
// disposition is "inline" or "attachment".
func ContentDisposition(disposition, filename string) string {
	if filename == "" {
		return disposition
	}

	ascii := strings.Map(func(r rune) rune {
		if r > 0x7f {
			return '_'
		}
		return r
	}, filename)

	return disposition + `; filename="` + encodeExtValue(ascii) + `"; filename*=UTF-8''` + encodeExtValue(filename)
}

// encodeExtValue percent-encodes every byte of s outside the RFC 5987
// attr-char set.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
