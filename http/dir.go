package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sagarc03/ipgate"
)

var listingFuncs = template.FuncMap{
	"bytes": func(n int64) string {
		if n < 0 {
			return ""
		}
		return humanize.IBytes(uint64(n))
	},
	"shortHash": func(h string) string {
		if len(h) < 9 {
			return h
		}
		return h[:4] + "…" + h[len(h)-4:]
	},
}

var listingHeader = template.Must(template.New("header").Funcs(listingFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<header>
<nav>{{range $i, $c := .Breadcrumbs}}{{if $i}} / {{end}}{{if $c.Href}}<a href="{{$c.Href}}">{{$c.Name}}</a>{{else}}{{$c.Name}}{{end}}{{end}}</nav>
<p><strong>{{.Cid}}</strong> {{bytes .Size}}</p>
</header>
<table>
{{if .BackLink}}<tr><td><a href="{{.BackLink}}">..</a></td><td></td><td></td></tr>
{{end}}`))

var listingRow = template.Must(template.New("row").Funcs(listingFuncs).Parse(
	`<tr><td><a href="{{.Href}}">{{.Name}}</a></td><td><a class="hash" href="{{.HashHref}}">{{shortHash .Cid}}</a></td><td>{{bytes .Size}}</td></tr>
`))

const listingFooter = `</table>
</body>
</html>
`

type breadcrumb struct {
	Name string
	Href string
}

type listingPage struct {
	Title       string
	Cid         string
	Size        int64
	BackLink    string
	Breadcrumbs []breadcrumb
}

type listingEntry struct {
	Name     string
	Href     string
	HashHref string
	Cid      string
	Size     int64
}

// serveDirectory serves index.html when the directory has one and a
// generated listing otherwise.
func (h *Handler) serveDirectory(w http.ResponseWriter, r *http.Request, entry ipgate.Entry) error {
	rc := requestFrom(r)
	dirPath := strings.TrimSuffix(rc.URL.Path, "/")

	index, err := rc.Fetcher.GetEntry(r.Context(), rc.URL.Cid, dirPath+"/index.html")
	switch {
	case err == nil && index.Kind().IsFile():
		return h.serveFile(w, r, index)
	case err != nil && !errors.Is(err, ipgate.ErrNotFound):
		return fmt.Errorf("look up index.html: %w", err)
	}

	etag := `"DirIndex-ipgate_CID-` + entry.Cid().String() + `"`
	if notModified(w, r, etag) {
		return nil
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/html")
	hdr.Set("Etag", etag)

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return nil
	}

	link := func(p string) string {
		if rc.URL.Subdomain {
			if p == "" {
				return "/"
			}
			return ipgate.EncodePath(p)
		}
		return "/ipfs/" + rc.URL.Cid.String() + ipgate.EncodePath(p)
	}

	page := listingPage{
		Title: "/ipfs/" + rc.URL.Cid.String() + dirPath,
		Cid:   entry.Cid().String(),
		Size:  entry.Size(),
	}
	page.Breadcrumbs = append(page.Breadcrumbs,
		breadcrumb{Name: "ipfs"},
		breadcrumb{Name: rc.URL.Cid.String(), Href: link("")},
	)
	segments := strings.Split(strings.TrimPrefix(dirPath, "/"), "/")
	if dirPath != "" {
		for i, seg := range segments {
			page.Breadcrumbs = append(page.Breadcrumbs, breadcrumb{
				Name: seg,
				Href: link("/" + strings.Join(segments[:i+1], "/")),
			})
		}
		page.BackLink = link(strings.Join(append([]string{""}, segments[:len(segments)-1]...), "/"))
	}

	w.WriteHeader(http.StatusOK)
	out := &progressWriter{w: w, progress: rc.Reset}

	if err := listingHeader.Execute(out, page); err != nil {
		return fmt.Errorf("render listing header: %w", err)
	}

	err = entry.Children(r.Context(), func(child ipgate.Entry) error {
		rc.Reset()
		return listingRow.Execute(out, listingEntry{
			Name:     child.Name(),
			Href:     link(dirPath + "/" + child.Name()),
			HashHref: "/ipfs/" + child.Cid().String() + "?filename=" + url.QueryEscape(child.Name()),
			Cid:      child.Cid().String(),
			Size:     child.Size(),
		})
	})
	if err != nil {
		return fmt.Errorf("render listing of %s: %w", entry.Cid(), err)
	}

	if _, err := out.Write([]byte(listingFooter)); err != nil {
		return fmt.Errorf("render listing footer: %w", err)
	}
	return nil
}
