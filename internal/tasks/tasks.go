// Package tasks is the per-user task list: add, toggle, delete and filter.
package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/kuitang/agent-dashboard/internal/collection"
	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/kv"
)

// StorageKey holds the JSON array of tasks.
const StorageKey = "tasks"

// Task is one to-do item. DueDate is kept as the string the user entered
// (datetime-local or RFC3339) so stored data round-trips untouched.
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Completed   bool   `json:"completed"`
	Recurring   bool   `json:"recurring"`
}

func (t Task) EntityID() int64 { return t.ID }

// CreateTaskParams are the user-supplied fields of a new task.
type CreateTaskParams struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Recurring   bool   `json:"recurring"`
}

// Seed is written the first time a user opens their task list.
func Seed() []Task {
	return []Task{
		{
			ID:          1,
			Title:       "Complete project proposal",
			Description: "Finish the draft and send for review",
			DueDate:     "2025-05-17T14:00",
		},
		{
			ID:          2,
			Title:       "Team meeting",
			Description: "Weekly standup with the development team",
			DueDate:     "2025-05-18T09:00",
			Recurring:   true,
		},
		{
			ID:          3,
			Title:       "Review client feedback",
			Description: "Go through client comments and prepare responses",
			DueDate:     "2025-05-17T16:30",
		},
	}
}

// Service handles task operations for one user.
type Service struct {
	items *collection.Collection[Task, int64]
	ids   *collection.IntIDs
	now   func() time.Time
}

// NewService returns an unloaded service over store.
func NewService(store kv.Store, policy collection.CorruptPolicy, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	ids := collection.NewIntIDs(clock)
	return &Service{
		items: collection.New[Task, int64](store, collection.Options[Task]{
			Key:    StorageKey,
			Seed:   Seed,
			Policy: policy,
			OnLoad: func(list []Task) {
				for _, t := range list {
					ids.Observe(t.ID)
				}
			},
		}),
		ids: ids,
		now: clock,
	}
}

// Load reads or seeds the stored list. Later calls pick up writes made
// through another process.
func (s *Service) Load(ctx context.Context) error {
	return s.items.Load(ctx)
}

// List returns all tasks in insertion order.
func (s *Service) List() []Task {
	return s.items.Items()
}

// Add validates params and appends a new, incomplete task.
func (s *Service) Add(ctx context.Context, params CreateTaskParams) (Task, error) {
	if strings.TrimSpace(params.Title) == "" {
		return Task{}, errs.Invalidf("Task title cannot be empty")
	}
	due := strings.TrimSpace(params.DueDate)
	if due == "" {
		due = s.now().UTC().Format(time.RFC3339)
	}
	return s.items.Append(ctx, func() Task {
		return Task{
			ID:          s.ids.Next(),
			Title:       params.Title,
			Description: params.Description,
			DueDate:     due,
			Recurring:   params.Recurring,
		}
	})
}

// Toggle flips the completed flag. A missing id is a no-op that returns false.
func (s *Service) Toggle(ctx context.Context, id int64) (Task, bool, error) {
	var out Task
	ok, err := s.items.Update(ctx, id, func(t *Task) {
		t.Completed = !t.Completed
		out = *t
	})
	return out, ok, err
}

// Delete removes the task. A missing id is a no-op that returns false.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	return s.items.Remove(ctx, id)
}
