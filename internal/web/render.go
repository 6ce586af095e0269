// Package web serves the dashboard's server-rendered HTML pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/kuitang/agent-dashboard/internal/notes"
	"github.com/kuitang/agent-dashboard/internal/obs"
)

//go:embed templates
var templateFS embed.FS

// Renderer manages HTML template rendering with caching and custom functions.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
	mu        sync.RWMutex
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	return NewRendererFS(sub)
}

// NewRendererFS parses base.html plus every page template found in
// subdirectories of fsys. Each page is combined with its own copy of base.
func NewRendererFS(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap:   createFuncMap(),
	}
	if err := r.parseTemplates(fsys); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return r, nil
}

// Render executes the named template with the given data and writes the result to w.
// The templateName is relative to the templates directory (e.g. "tasks/list.html").
// Output is buffered so a failing template never leaves a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, templateName string, data any) error {
	return r.RenderStatus(w, http.StatusOK, templateName, data)
}

// RenderStatus is Render with an explicit status code, used when a form is
// re-rendered with a validation error.
func (r *Renderer) RenderStatus(w http.ResponseWriter, status int, templateName string, data any) error {
	r.mu.RLock()
	tmpl, ok := r.templates[templateName]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template %q not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", templateName, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RenderError renders an error page with the given HTTP status code and message.
func (r *Renderer) RenderError(w http.ResponseWriter, code int, message string) {
	r.mu.RLock()
	tmpl, ok := r.templates["error.html"]
	r.mu.RUnlock()

	if ok {
		data := ErrorPageData{
			PageData:  PageData{Title: http.StatusText(code), Error: message},
			ErrorCode: http.StatusText(code),
		}
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, "base", data); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(code)
			_, _ = buf.WriteTo(w)
			return
		}
	}

	http.Error(w, fmt.Sprintf("Error %d: %s", code, message), code)
}

// Has reports whether templateName was parsed.
func (r *Renderer) Has(templateName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[templateName]
	return ok
}

// parseTemplates parses the base template and all page templates.
func (r *Renderer) parseTemplates(fsys fs.FS) error {
	baseContent, err := fs.ReadFile(fsys, "base.html")
	if err != nil {
		return fmt.Errorf("failed to read base template: %w", err)
	}

	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == "base.html" || path.Ext(p) != ".html" {
			return nil
		}

		pageContent, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", p, err)
		}

		tmpl, err := template.New("base").Funcs(r.funcMap).Parse(string(baseContent))
		if err != nil {
			return fmt.Errorf("failed to parse base template for %s: %w", p, err)
		}
		// The page overrides the content block.
		if _, err := tmpl.Parse(string(pageContent)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", p, err)
		}

		r.mu.Lock()
		r.templates[p] = tmpl
		r.mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	if len(r.templates) == 0 {
		return fmt.Errorf("no page templates found")
	}
	obs.Pkg("web").Debug("templates_parsed", "count", len(r.templates))
	return nil
}

// createFuncMap creates the template function map with all custom functions.
func createFuncMap() template.FuncMap {
	return template.FuncMap{
		"formatTime":  formatTime,
		"formatClock": formatClock,
		"truncate":    truncate,
		"markdown":    notes.RenderMarkdown,
		"preview":     notes.ContentPreview,
		"noteDate":    notes.DateLabel,
		"title":       titleCase,
		"join":        strings.Join,
	}
}

// formatTime formats a time.Time as a human-readable date string.
// Example: "Jan 2, 2006"
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// formatClock renders a Unix-millisecond timestamp as "15:04" UTC.
func formatClock(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("15:04")
}

// truncate truncates a string to n characters, adding "..." if truncated.
// If the string is shorter than or equal to n, it is returned unchanged.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}

	// Convert to runes to handle multi-byte characters correctly
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	// Account for the "..." suffix
	if n <= 3 {
		return string(runes[:n])
	}

	return string(runes[:n-3]) + "..."
}

// titleCase upper-cases the first letter, as category tabs show them.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
