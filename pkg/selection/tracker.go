// Package selection tracks which records the user has marked, by identifier,
// independent of which page is currently loaded.
package selection

import (
	"slices"
)

// Tracker is a set of selected record identifiers. It is not safe for
// concurrent use; the owning controller serializes access.
type Tracker struct {
	ids map[int64]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: make(map[int64]struct{})}
}

// Contains reports whether id is selected.
func (t *Tracker) Contains(id int64) bool {
	_, ok := t.ids[id]
	return ok
}

// Len returns the number of selected identifiers.
func (t *Tracker) Len() int {
	return len(t.ids)
}

// IDs returns the selected identifiers in ascending order.
func (t *Tracker) IDs() []int64 {
	out := make([]int64, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Reconcile applies the checkbox state of the visible page: every visible
// id is selected if it is in checked and deselected otherwise. Ids not on
// the page are left alone, and checked ids that are not visible are ignored.
func (t *Tracker) Reconcile(visible, checked []int64) (added, removed int) {
	want := make(map[int64]struct{}, len(checked))
	for _, id := range checked {
		want[id] = struct{}{}
	}

	for _, id := range visible {
		_, on := want[id]
		_, was := t.ids[id]
		switch {
		case on && !was:
			t.ids[id] = struct{}{}
			added++
		case !on && was:
			delete(t.ids, id)
			removed++
		}
	}
	return added, removed
}

// BulkSelect selects the first count unselected ids of rows, in order.
// count is clamped to what is available; count <= 0 is a no-op. It returns
// the number of ids added.
func (t *Tracker) BulkSelect(rows []int64, count int) int {
	if count <= 0 {
		return 0
	}
	added := 0
	for _, id := range rows {
		if added == count {
			break
		}
		if _, ok := t.ids[id]; ok {
			continue
		}
		t.ids[id] = struct{}{}
		added++
	}
	return added
}

// Unselected returns the ids of rows not yet selected, in order.
func (t *Tracker) Unselected(rows []int64) []int64 {
	var out []int64
	for _, id := range rows {
		if !t.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// SelectedOf returns the ids of rows that are selected, in order.
func (t *Tracker) SelectedOf(rows []int64) []int64 {
	var out []int64
	for _, id := range rows {
		if t.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Clear deselects everything and returns how many ids were removed.
func (t *Tracker) Clear() int {
	n := len(t.ids)
	clear(t.ids)
	return n
}
