// Package notes is the per-user tagged note list with search.
package notes

import (
	"context"
	"strings"
	"time"

	"github.com/kuitang/agent-dashboard/internal/collection"
	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/kv"
)

// StorageKey holds the JSON array of notes.
const StorageKey = "notes"

// Note is immutable once created; the only mutation is deletion.
type Note struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"createdAt"`
}

func (n Note) EntityID() int64 { return n.ID }

// CreateNoteParams are the user-supplied fields of a new note.
type CreateNoteParams struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Seed returns the example notes stamped with now.
func Seed(now time.Time) []Note {
	created := now.UTC().Format(time.RFC3339)
	return []Note{
		{
			ID:        1,
			Title:     "Project Ideas",
			Content:   "1. Mobile app for task tracking\n2. Blog platform with AI content suggestions\n3. Smart home dashboard with IoT integration",
			Tags:      []string{"ideas", "projects", "development"},
			CreatedAt: created,
		},
		{
			ID:        2,
			Title:     "Meeting Notes",
			Content:   "- Discussed project timeline\n- Assigned tasks to team members\n- Next meeting scheduled for Friday",
			Tags:      []string{"meeting", "work"},
			CreatedAt: created,
		},
	}
}

// Service handles note operations for one user.
type Service struct {
	items *collection.Collection[Note, int64]
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
		items: collection.New[Note, int64](store, collection.Options[Note]{
			Key:    StorageKey,
			Seed:   func() []Note { return Seed(clock()) },
			Policy: policy,
			OnLoad: func(list []Note) {
				for _, n := range list {
					ids.Observe(n.ID)
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

// List returns all notes in insertion order.
func (s *Service) List() []Note {
	return s.items.Items()
}

// Get returns the note with id.
func (s *Service) Get(id int64) (Note, bool) {
	return s.items.Get(id)
}

// Add validates params and appends a new note.
func (s *Service) Add(ctx context.Context, params CreateNoteParams) (Note, error) {
	if strings.TrimSpace(params.Title) == "" {
		return Note{}, errs.Invalidf("Note title cannot be empty")
	}
	var draft TagDraft
	for _, tag := range params.Tags {
		draft.Add(tag)
	}
	return s.items.Append(ctx, func() Note {
		return Note{
			ID:        s.ids.Next(),
			Title:     params.Title,
			Content:   params.Content,
			Tags:      draft.Tags(),
			CreatedAt: s.now().UTC().Format(time.RFC3339),
		}
	})
}

// Delete removes the note. A missing id is a no-op that returns false.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	return s.items.Remove(ctx, id)
}

// DateLabel formats createdAt for note cards, e.g. "May 17, 2025".
// Unparseable values are shown as stored.
func DateLabel(createdAt string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, createdAt); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return createdAt
}
