package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/tasks"
)

// TaskView is a task plus its display-only fields.
type TaskView struct {
	tasks.Task
	DueLabel string
	Overdue  bool
}

func taskViews(list []tasks.Task, now time.Time) []TaskView {
	out := make([]TaskView, len(list))
	for i, t := range list {
		out[i] = TaskView{Task: t, DueLabel: tasks.DueLabel(t, now), Overdue: tasks.Overdue(t, now)}
	}
	return out
}

// TasksPageData contains data for the task list page.
type TasksPageData struct {
	PageData
	Tasks  []TaskView
	Status tasks.Status
	Stats  tasks.Stats
	Form   tasks.CreateTaskParams
}

func (h *WebHandler) renderTasks(w http.ResponseWriter, r *http.Request, status tasks.Status, form tasks.CreateTaskParams, formErr error) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	all := ws.Tasks.List()
	data := TasksPageData{
		PageData: h.page(r, ws, "Tasks", "tasks"),
		Tasks:    taskViews(tasks.Filter(all, status), time.Now()),
		Status:   status,
		Stats:    tasks.ComputeStats(all),
		Form:     form,
	}
	status := http.StatusOK
	if formErr != nil {
		data.Error = errs.MessageOf(formErr)
		status = http.StatusBadRequest
	}
	h.renderStatus(w, r, status, "tasks/list.html", data)
}

// HandleTasks handles GET /dashboard/tasks?status=.
func (h *WebHandler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	status, err := tasks.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		status = tasks.StatusAll
	}
	h.renderTasks(w, r, status, tasks.CreateTaskParams{}, nil)
}

// HandleCreateTask handles POST /dashboard/tasks.
func (h *WebHandler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	params := tasks.CreateTaskParams{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		DueDate:     r.PostFormValue("dueDate"),
		Recurring:   r.PostFormValue("recurring") != "",
	}
	if _, err := ws.Tasks.Add(r.Context(), params); err != nil {
		if errs.Is(err, errs.InvalidArgument) {
			h.renderTasks(w, r, tasks.StatusAll, params, err)
			return
		}
		h.fail(w, r, err)
		return
	}
	redirectFlash(w, r, "/dashboard/tasks", "success", "Task added: Your new task has been created")
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

// HandleToggleTask handles POST /dashboard/tasks/{id}/toggle.
func (h *WebHandler) HandleToggleTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if id, ok := pathID(r); ok {
		if _, _, err := ws.Tasks.Toggle(r.Context(), id); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	back := "/dashboard/tasks"
	if s := r.PostFormValue("status"); s != "" {
		back += "?status=" + string(mustStatus(s))
	}
	http.Redirect(w, r, back, http.StatusFound)
}

func mustStatus(s string) tasks.Status {
	st, err := tasks.ParseStatus(s)
	if err != nil {
		return tasks.StatusAll
	}
	return st
}

// HandleDeleteTask handles POST /dashboard/tasks/{id}/delete.
func (h *WebHandler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if id, ok := pathID(r); ok {
		if _, err := ws.Tasks.Delete(r.Context(), id); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	redirectFlash(w, r, "/dashboard/tasks", "success", "Task deleted: The task has been removed")
}
