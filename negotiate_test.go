package ipgate_test

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ipgate"
)

func TestParseArchiveParams(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   ipgate.ArchiveParams
	}{
		{
			name:   "no header",
			accept: "",
			want:   ipgate.DefaultArchiveParams(),
		},
		{
			name:   "unrelated media types",
			accept: "text/html, application/json;q=0.9",
			want:   ipgate.DefaultArchiveParams(),
		},
		{
			name:   "bare car",
			accept: "application/vnd.ipld.car",
			want:   ipgate.ArchiveParams{Version: 1, Order: ipgate.OrderUnknown, Dups: true},
		},
		{
			name:   "dfs order",
			accept: "application/vnd.ipld.car; order=dfs",
			want:   ipgate.ArchiveParams{Version: 1, Order: ipgate.OrderDFS, Dups: true},
		},
		{
			name:   "all parameters",
			accept: "text/html, application/vnd.ipld.car; version=1; order=unk; dups=y",
			want:   ipgate.ArchiveParams{Version: 1, Order: ipgate.OrderUnknown, Dups: true},
		},
		{
			name:   "malformed unrelated member is skipped",
			accept: "text/html; charset, application/vnd.ipld.car; order=dfs",
			want:   ipgate.ArchiveParams{Version: 1, Order: ipgate.OrderDFS, Dups: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ipgate.ParseArchiveParams(tt.accept)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArchiveParams_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		accept string
	}{
		{name: "version 2", accept: "application/vnd.ipld.car; version=2"},
		{name: "version not a number", accept: "application/vnd.ipld.car; version=one"},
		{name: "no duplicates", accept: "application/vnd.ipld.car; dups=n"},
		{name: "unknown order", accept: "application/vnd.ipld.car; order=bfs"},
		{name: "parameter without value", accept: "application/vnd.ipld.car; version=1; dups"},
		{name: "malformed parameters with bad version", accept: "application/vnd.ipld.car; version=2; dups"},
		{name: "malformed member after others", accept: "text/html, Application/Vnd.IPLD.Car; =y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ipgate.ParseArchiveParams(tt.accept)
			assert.ErrorIs(t, err, ipgate.ErrBadRequest)
		})
	}
}

func TestParseContentScope(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    ipgate.ContentScope
		wantErr bool
	}{
		{name: "absent defaults to all", query: "", want: ipgate.ScopeAll},
		{name: "all", query: "dag-scope=all", want: ipgate.ScopeAll},
		{name: "entity", query: "dag-scope=entity", want: ipgate.ScopeEntity},
		{name: "block", query: "dag-scope=block", want: ipgate.ScopeBlock},
		{name: "empty value", query: "dag-scope=", wantErr: true},
		{name: "unknown value", query: "dag-scope=everything", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ipgate.ParseContentScope(q, "dag-scope")
			if tt.wantErr {
				assert.ErrorIs(t, err, ipgate.ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNegotiateFormat(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		accept  string
		want    ipgate.Format
		wantErr bool
	}{
		{name: "default", target: "/ipfs/x", want: ipgate.FormatDefault},
		{name: "format raw", target: "/ipfs/x?format=raw", want: ipgate.FormatRaw},
		{name: "format car", target: "/ipfs/x?format=car", want: ipgate.FormatCAR},
		{name: "format wins over accept", target: "/ipfs/x?format=raw", accept: "application/vnd.ipld.car", want: ipgate.FormatRaw},
		{name: "accept car", target: "/ipfs/x", accept: "application/vnd.ipld.car; order=dfs", want: ipgate.FormatCAR},
		{name: "accept raw", target: "/ipfs/x", accept: "text/html, application/vnd.ipld.raw", want: ipgate.FormatRaw},
		{name: "unknown format", target: "/ipfs/x?format=tar", wantErr: true},
		{name: "malformed car accept", target: "/ipfs/x", accept: "application/vnd.ipld.car; version=2; dups", wantErr: true},
		{name: "malformed unrelated accept", target: "/ipfs/x", accept: "text/html; q, application/vnd.ipld.raw", want: ipgate.FormatRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}

			got, err := ipgate.NegotiateFormat(req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ipgate.ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
