package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Name length bounds, counted in runes after trimming.
const (
	MinUserNameLength = 2
	MaxUserNameLength = 50
)

// Productivity buckets a user's completion percentage.
type Productivity string

// Productivity buckets, from best to worst.
const (
	ProductivityVeryHigh Productivity = "very productive"
	ProductivityHigh     Productivity = "productive"
	ProductivityModerate Productivity = "moderately productive"
	ProductivityLow      Productivity = "low productivity"
	ProductivityNone     Productivity = "no completed tasks"
)

// ProductivityFor maps a completion percentage to its bucket.
func ProductivityFor(percentage int) Productivity {
	switch {
	case percentage >= 80:
		return ProductivityVeryHigh
	case percentage >= 60:
		return ProductivityHigh
	case percentage >= 40:
		return ProductivityModerate
	case percentage > 0:
		return ProductivityLow
	default:
		return ProductivityNone
	}
}

// User is an actor that owns zero or more tasks.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`

	// IsActive is set on at most one user; the user manager enforces it.
	IsActive bool `json:"isActive"`

	// TaskCount and CompletedTaskCount are recomputed from the task
	// manager and never mutated independently.
	TaskCount          int `json:"taskCount"`
	CompletedTaskCount int `json:"completedTaskCount"`
}

// UserStats summarizes a single user's task counters.
type UserStats struct {
	TotalTasks           int          `json:"totalTasks"`
	CompletedTasks       int          `json:"completedTasks"`
	PendingTasks         int          `json:"pendingTasks"`
	CompletionPercentage int          `json:"completionPercentage"`
	Productivity         Productivity `json:"productivity"`
}

// NewUser creates an inactive user with a trimmed name.
func NewUser(name string) (*User, error) {
	return NewUserAt(name, Now())
}

// NewUserAt creates an inactive user stamped with at.
func NewUserAt(name string, at time.Time) (*User, error) {
	if !IsValidName(name) {
		return nil, fmt.Errorf(
			"user name must be %d-%d letters, digits or spaces: %w",
			MinUserNameLength, MaxUserNameLength, ErrValidation,
		)
	}
	return &User{
		ID:        NewUserID(),
		Name:      strings.TrimSpace(name),
		CreatedAt: Timestamp(at),
	}, nil
}

// NewUserID returns a fresh opaque user identifier.
func NewUserID() string {
	return "user_" + uuid.New().String()
}

// IsValidName reports whether the trimmed name is 2-50 runes long and
// consists only of letters (any script), digits and whitespace.
func IsValidName(name string) bool {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinUserNameLength || n > MaxUserNameLength {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// FoldName returns the case-folded, trimmed form of a name used for
// uniqueness checks.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// UpdateName trims and applies a new name. Blank input is ignored.
func (u *User) UpdateName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	u.Name = name
	return true
}

// SetActive flags the user as active.
func (u *User) SetActive() { u.IsActive = true }

// SetInactive clears the active flag.
func (u *User) SetInactive() { u.IsActive = false }

// UpdateTaskCounts replaces the denormalized task counters. Negative
// values clamp to zero and completed never exceeds total.
func (u *User) UpdateTaskCounts(total, completed int) {
	total = max(total, 0)
	u.TaskCount = total
	u.CompletedTaskCount = min(max(completed, 0), total)
}

// CompletionPercentage returns round(completed/total*100), or 0 with no tasks.
func (u User) CompletionPercentage() int {
	if u.TaskCount == 0 {
		return 0
	}
	return int(math.Round(float64(u.CompletedTaskCount) / float64(u.TaskCount) * 100))
}

// Productivity returns the user's productivity bucket.
func (u User) Productivity() Productivity {
	return ProductivityFor(u.CompletionPercentage())
}

// Initials returns up to two upper-case initials.
func (u User) Initials() string {
	words := strings.Fields(u.Name)
	switch len(words) {
	case 0:
		return ""
	case 1:
		r := []rune(words[0])
		return strings.ToUpper(string(r[:min(2, len(r))]))
	default:
		first, _ := utf8.DecodeRuneInString(words[0])
		last, _ := utf8.DecodeRuneInString(words[len(words)-1])
		return strings.ToUpper(string([]rune{first, last}))
	}
}

// Stats returns the user's counter summary.
func (u User) Stats() UserStats {
	return UserStats{
		TotalTasks:           u.TaskCount,
		CompletedTasks:       u.CompletedTaskCount,
		PendingTasks:         u.TaskCount - u.CompletedTaskCount,
		CompletionPercentage: u.CompletionPercentage(),
		Productivity:         u.Productivity(),
	}
}

// UnmarshalJSON decodes a persisted user and re-establishes the
// counter invariant.
func (u *User) UnmarshalJSON(data []byte) error {
	type rawUser User
	var raw rawUser
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw)
	u.Name = strings.TrimSpace(u.Name)
	u.UpdateTaskCounts(u.TaskCount, u.CompletedTaskCount)
	return nil
}

// UserUpdate carries the optional fields of a partial user update.
type UserUpdate struct {
	Name *string
}

// UserSortKey selects how users are ordered.
type UserSortKey string

// User sort keys.
const (
	UserSortName         UserSortKey = "name"
	UserSortCreated      UserSortKey = "created"
	UserSortProductivity UserSortKey = "productivity"
	UserSortTaskCount    UserSortKey = "taskCount"
)

// Compare orders u against other by key. Name ordering uses the given
// comparison function so callers can supply a locale-aware collator;
// nil falls back to case-folded byte order.
func (u User) Compare(other User, key UserSortKey, compareNames func(a, b string) int) int {
	if compareNames == nil {
		compareNames = func(a, b string) int {
			return strings.Compare(FoldName(a), FoldName(b))
		}
	}
	switch key {
	case UserSortCreated:
		return u.CreatedAt.Compare(other.CreatedAt)
	case UserSortProductivity:
		return other.CompletionPercentage() - u.CompletionPercentage()
	case UserSortTaskCount:
		return other.TaskCount - u.TaskCount
	default:
		return compareNames(u.Name, other.Name)
	}
}
