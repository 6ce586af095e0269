package web

import (
	"net/http"
	"time"

	"github.com/kuitang/agent-dashboard/internal/chat"
	"github.com/kuitang/agent-dashboard/internal/news"
	"github.com/kuitang/agent-dashboard/internal/tasks"
)

// DashboardData is the overview page.
type DashboardData struct {
	PageData
	Stats      tasks.Stats
	Upcoming   []TaskView
	NoteCount  int
	Headlines  []news.Article
	LastChat   *chat.Message
	HasAPIKey  bool
	Categories []string
}

// HandleDashboard handles GET /dashboard.
func (h *WebHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	all := ws.Tasks.List()
	active := tasks.Filter(all, tasks.StatusActive)
	upcoming := taskViews(active, time.Now())
	if len(upcoming) > 3 {
		upcoming = upcoming[:3]
	}
	headlines := h.feed.All()
	if len(headlines) > 3 {
		headlines = headlines[:3]
	}

	data := DashboardData{
		PageData:   h.page(r, ws, "Dashboard", "dashboard"),
		Stats:      tasks.ComputeStats(all),
		Upcoming:   upcoming,
		NoteCount:  len(ws.Notes.List()),
		Headlines:  headlines,
		Categories: news.Categories(),
	}
	if history := ws.Chat.History(); len(history) > 0 {
		last := history[len(history)-1]
		data.LastChat = &last
	}
	data.HasAPIKey, _ = ws.Credentials().Has(r.Context())
	h.render(w, r, "dashboard/index.html", data)
}
