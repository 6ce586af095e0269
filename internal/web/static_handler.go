package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"sync"

	"github.com/kuitang/agent-dashboard/internal/notes"
)

//go:embed pages static
var staticFS embed.FS

// StaticPageData contains data for static pages.
type StaticPageData struct {
	PageData
	Content template.HTML
}

// StaticHandler serves the embedded info pages (rendered from markdown)
// and the stylesheet.
type StaticHandler struct {
	renderer *Renderer
	pages    fs.FS
	assets   fs.FS
	cache    map[string]template.HTML
	cacheMu  sync.RWMutex
}

// NewStaticHandler creates a static page handler over the embedded files.
func NewStaticHandler(renderer *Renderer) *StaticHandler {
	pages, _ := fs.Sub(staticFS, "pages")
	assets, _ := fs.Sub(staticFS, "static")
	return &StaticHandler{
		renderer: renderer,
		pages:    pages,
		assets:   assets,
		cache:    make(map[string]template.HTML),
	}
}

// RegisterRoutes registers static page routes on the given mux.
func (h *StaticHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /about", h.HandleAbout)
	mux.HandleFunc("GET /privacy", h.HandlePrivacy)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(h.assets)))
}

// HandleAbout serves the about page.
func (h *StaticHandler) HandleAbout(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, "about", "About")
}

// HandlePrivacy serves the privacy page.
func (h *StaticHandler) HandlePrivacy(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, "privacy", "Privacy")
}

func (h *StaticHandler) servePage(w http.ResponseWriter, r *http.Request, slug, title string) {
	content, err := h.rendered(slug)
	if err != nil {
		h.renderer.RenderError(w, http.StatusNotFound, "Page not found")
		return
	}
	data := StaticPageData{
		PageData: newPageData(r, title, ""),
		Content:  content,
	}
	if err := h.renderer.Render(w, "static/page.html", data); err != nil {
		h.renderer.RenderError(w, http.StatusInternalServerError, "Failed to render page")
	}
}

func (h *StaticHandler) rendered(slug string) (template.HTML, error) {
	h.cacheMu.RLock()
	content, ok := h.cache[slug]
	h.cacheMu.RUnlock()
	if ok {
		return content, nil
	}

	md, err := fs.ReadFile(h.pages, slug+".md")
	if err != nil {
		return "", err
	}
	content = notes.RenderMarkdown(string(md))

	h.cacheMu.Lock()
	h.cache[slug] = content
	h.cacheMu.Unlock()
	return content, nil
}
