package ipgate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/ipgate"
)

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		filename    string
		want        string
	}{
		{
			name:        "no filename",
			disposition: "attachment",
			want:        "attachment",
		},
		{
			name:        "ascii filename",
			disposition: "attachment",
			filename:    "bafy.car",
			want:        `attachment; filename="bafy.car"; filename*=UTF-8''bafy.car`,
		},
		{
			name:        "spaces are percent encoded",
			disposition: "inline",
			filename:    "my file.txt",
			want:        `inline; filename="my%20file.txt"; filename*=UTF-8''my%20file.txt`,
		},
		{
			name:        "non ascii is replaced in the plain form",
			disposition: "attachment",
			filename:    "café.txt",
			want:        `attachment; filename="caf_.txt"; filename*=UTF-8''caf%C3%A9.txt`,
		},
		{
			name:        "quotes cannot break out of the parameter",
			disposition: "inline",
			filename:    `a"b.txt`,
			want:        `inline; filename="a%22b.txt"; filename*=UTF-8''a%22b.txt`,
		},
		{
			name:        "separators outside attr-char are encoded",
			disposition: "attachment",
			filename:    "a:b=c@d;e,f.txt",
			want:        `attachment; filename="a%3Ab%3Dc%40d%3Be%2Cf.txt"; filename*=UTF-8''a%3Ab%3Dc%40d%3Be%2Cf.txt`,
		},
		{
			name:        "attr-char punctuation is kept",
			disposition: "inline",
			filename:    "a!#$&+-.^_`|~b",
			want:        "inline; filename=\"a!#$&+-.^_`|~b\"; filename*=UTF-8''a!#$&+-.^_`|~b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ipgate.ContentDisposition(tt.disposition, tt.filename))
		})
	}
}
