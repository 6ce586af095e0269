package notes

import "strings"

// TagDraft accumulates tags while a note is being composed.
// The zero value is an empty draft.
type TagDraft struct {
	tags []string
}

// NewTagDraft returns a draft holding the normalized form of tags.
func NewTagDraft(tags ...string) *TagDraft {
	d := &TagDraft{}
	for _, t := range tags {
		d.Add(t)
	}
	return d
}

// Add trims tag and appends it unless it is empty or already present.
// Duplicates are exact matches; "Work" and "work" are distinct tags.
func (d *TagDraft) Add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, t := range d.tags {
		if t == tag {
			return false
		}
	}
	d.tags = append(d.tags, tag)
	return true
}

// Remove drops every exact match of tag.
func (d *TagDraft) Remove(tag string) {
	kept := d.tags[:0]
	for _, t := range d.tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	d.tags = kept
}

// Tags returns a copy of the draft's tags, never nil.
func (d *TagDraft) Tags() []string {
	out := make([]string, len(d.tags))
	copy(out, d.tags)
	return out
}
