// ABOUTME: GET /views catalogue listing registered views and their callables
// ABOUTME: Markdown descriptions are rendered to HTML with goldmark; ?format=json returns raw data

package gateway

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/viewgate/internal/view"
)

// ViewInfo describes one registered view.
type ViewInfo struct {
	Key         string       `json:"key"`
	Roles       []string     `json:"roles,omitempty"`
	Description string       `json:"description,omitempty"`
	Methods     []MethodInfo `json:"methods"`
}

// MethodInfo describes one callable of a view.
type MethodInfo struct {
	Key         string   `json:"key"`
	Roles       []string `json:"roles,omitempty"`
	Public      bool     `json:"public"`
	Description string   `json:"description,omitempty"`
}

// Catalogue lists the registry in view key order.
func Catalogue(r *view.Registry) []ViewInfo {
	entries := r.List()
	views := make([]ViewInfo, 0, len(entries))
	for _, e := range entries {
		info := ViewInfo{
			Key:         e.Key,
			Roles:       e.AllowedRoles,
			Description: e.Description,
			Methods:     []MethodInfo{},
		}
		for _, key := range e.CallableKeys() {
			c, _ := e.Callable(key)
			info.Methods = append(info.Methods, MethodInfo{
				Key:         c.Key,
				Roles:       c.AllowedRoles,
				Public:      c.AllowUnauthenticated,
				Description: c.Description,
			})
		}
		views = append(views, info)
	}
	return views
}

var catalogueTemplate = template.Must(template.New("views").Funcs(template.FuncMap{
	"join":     strings.Join,
	"markdown": renderMarkdown,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>viewgate views</title></head>
<body>
<h1>Views</h1>
{{range .}}<section id="view-{{.Key}}">
<h2>{{.Key}}</h2>
{{if .Roles}}<p>Roles: {{join .Roles ", "}}</p>{{end}}
{{markdown .Description}}
<ul>
{{range .Methods}}<li><code>{{.Key}}</code>{{if .Public}} <em>public</em>{{end}}{{if .Roles}} roles: {{join .Roles ", "}}{{end}}
{{markdown .Description}}</li>
{{end}}</ul>
</section>
{{else}}<p>No views registered.</p>
{{end}}</body>
</html>
`))

// renderMarkdown converts a description to HTML. Raw HTML in the source is
// omitted by goldmark's default renderer.
func renderMarkdown(src string) template.HTML {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

// handleCatalogue handles GET /views.
func (g *Gateway) handleCatalogue(w http.ResponseWriter, r *http.Request) {
	views := Catalogue(g.registry)

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, views)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := catalogueTemplate.Execute(w, views); err != nil {
		g.logger.Error("failed to render view catalogue", "error", err)
	}
}
