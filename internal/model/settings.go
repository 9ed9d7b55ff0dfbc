package model

// Settings holds the user-facing preferences persisted alongside the data.
type Settings struct {
	Theme              string   `json:"theme"`
	Language           string   `json:"language"`
	AutoSave           bool     `json:"autoSave"`
	ShowCompletedTasks bool     `json:"showCompletedTasks"`
	DefaultCategory    Category `json:"defaultCategory"`
	DefaultPriority    Priority `json:"defaultPriority"`
	SortBy             SortKey  `json:"sortBy"`
	GroupBy            string   `json:"groupBy"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		Theme:              "light",
		Language:           "en",
		AutoSave:           true,
		ShowCompletedTasks: true,
		DefaultCategory:    CategoryPersonal,
		DefaultPriority:    PriorityMedium,
		SortBy:             SortPosition,
		GroupBy:            "none",
	}
}

// Normalize replaces unknown enum values with their defaults.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.Theme == "" {
		s.Theme = def.Theme
	}
	if s.Language == "" {
		s.Language = def.Language
	}
	if !s.DefaultCategory.Valid() {
		s.DefaultCategory = def.DefaultCategory
	}
	if !s.DefaultPriority.Valid() {
		s.DefaultPriority = def.DefaultPriority
	}
	if !s.SortBy.Valid() {
		s.SortBy = def.SortBy
	}
	if s.GroupBy == "" {
		s.GroupBy = def.GroupBy
	}
	return s
}
