package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/smartshop/internal/format"
	"github.com/dukerupert/smartshop/internal/model"
)

// Renderer holds one template set per page. Every set shares the layout and
// the partials, so fragments render the same inside a page and on their own.
type Renderer struct {
	base   *template.Template
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses templates/layout.html, templates/partials/*.html and
// every templates/pages/*.html from fsys. Image paths resolve against
// assetOrigin.
func NewRenderer(fsys fs.FS, assetOrigin string, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base, err := template.New("base").Funcs(funcs(assetOrigin)).
		ParseFS(fsys, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob pages: %w", err)
	}
	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := t.ParseFS(fsys, f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		pages[path.Base(f)] = t
	}
	return &Renderer{base: base, pages: pages, logger: logger.With("component", "render")}, nil
}

func funcs(assetOrigin string) template.FuncMap {
	return template.FuncMap{
		"brl":         format.BRL,
		"number":      format.Int,
		"percent":     format.Percent,
		"date":        format.Date,
		"cnpj":        format.CNPJ,
		"cpf":         format.CPF,
		"phone":       format.Phone,
		"statusLabel": model.StatusLabel,
		"planLabel":   model.PlanLabel,
		"roleLabel":   func(r model.Role) string { return r.Label() },
		"imageURL":    func(p string) string { return format.FullImageURL(assetOrigin, p) },
		"imageSrc":    imageSrc,
		"contains":    func(ids []int64, id int64) bool { return slices.Contains(ids, id) },
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
		"dict":        dict,
	}
}

// imageSrc trusts inline previews produced by imageutil. Anything else goes
// through the normal URL sanitizer.
func imageSrc(src string) any {
	if strings.HasPrefix(src, "data:image/") {
		return template.URL(src)
	}
	return src
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict: odd argument count")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

// Page renders a full page inside the layout.
func (rd *Renderer) Page(w http.ResponseWriter, name string, status int, data PageData) {
	t, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("unknown page", "page", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	rd.write(w, t, "layout", status, data)
}

// Partial renders one named fragment for an HTMX swap.
func (rd *Renderer) Partial(w http.ResponseWriter, name string, status int, data any) {
	rd.write(w, rd.base, name, status, data)
}

// write buffers the output so a template failure can still answer 500.
func (rd *Renderer) write(w http.ResponseWriter, t *template.Template, name string, status int, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		rd.logger.Error("template error", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Download sends data as an attachment.
func Download(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.Write(data)
}
