package web

import (
	"net/http"

	"github.com/kuitang/agent-dashboard/internal/news"
)

// NewsPageData contains data for the headlines page.
type NewsPageData struct {
	PageData
	Articles   []news.Article
	Category   string
	Categories []string
}

// HandleNews handles GET /dashboard/news?category=.
func (h *WebHandler) HandleNews(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	category := r.URL.Query().Get("category")
	articles := h.feed.All()
	if category != "" && category != "all" {
		articles = h.feed.ByCategory(category)
	} else {
		category = "all"
	}
	data := NewsPageData{
		PageData:   h.page(r, ws, "News", "news"),
		Articles:   articles,
		Category:   category,
		Categories: news.Categories(),
	}
	h.render(w, r, "news/list.html", data)
}
