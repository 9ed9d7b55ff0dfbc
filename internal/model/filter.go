package model

import "time"

// FilterSet is the conjunctive predicate applied to the task collection.
// Empty fields do not filter.
type FilterSet struct {
	UserID     string   `json:"userId,omitempty"`
	Status     Status   `json:"status,omitempty"`
	Category   Category `json:"category,omitempty"`
	Priority   Priority `json:"priority,omitempty"`
	SearchText string   `json:"searchText,omitempty"`
}

// IsEmpty reports whether no predicate is set.
func (f FilterSet) IsEmpty() bool {
	return f == FilterSet{}
}

// FilterUpdate is a partial FilterSet. A nil field keeps the current
// value; a pointer to the zero value clears it.
type FilterUpdate struct {
	UserID     *string
	Status     *Status
	Category   *Category
	Priority   *Priority
	SearchText *string
}

// Merge returns f with every provided field of u applied.
func (f FilterSet) Merge(u FilterUpdate) FilterSet {
	if u.UserID != nil {
		f.UserID = *u.UserID
	}
	if u.Status != nil {
		f.Status = *u.Status
	}
	if u.Category != nil {
		f.Category = *u.Category
	}
	if u.Priority != nil {
		f.Priority = *u.Priority
	}
	if u.SearchText != nil {
		f.SearchText = *u.SearchText
	}
	return f
}

// SortKey selects the comparator used for the filtered task view.
type SortKey string

// Sort keys.
const (
	SortCreated      SortKey = "created"
	SortPriority     SortKey = "priority"
	SortAlphabetical SortKey = "alphabetical"
	SortPosition     SortKey = "position"
)

// SortKeys lists the valid sort keys in the order the UI cycles them.
var SortKeys = []SortKey{SortPosition, SortCreated, SortPriority, SortAlphabetical}

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	switch k {
	case SortCreated, SortPriority, SortAlphabetical, SortPosition:
		return true
	}
	return false
}

// Now returns the current time normalized by Timestamp.
func Now() time.Time {
	return Timestamp(time.Now())
}

// Timestamp normalizes t to UTC with millisecond precision so that it
// survives an ISO-8601 round trip unchanged.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Ptr returns a pointer to v. It keeps optional-field literals short.
func Ptr[T any](v T) *T {
	return &v
}
