// Package domain defines the persistent entities, derived read models and
// storage contracts shared by the tutorcore catalogs.
package domain

// EntityType identifies the type of record stored in the catalogs.
type EntityType string

// Supported entity type identifiers used in errors, audit entries and storage relations.
const (
	// EntityStudent identifies a student record.
	EntityStudent EntityType = "student"
	// EntityTheme identifies a grade-scoped theme record.
	EntityTheme EntityType = "theme"
	// EntityDictation identifies a dictation attached to a theme.
	EntityDictation EntityType = "dictation"
)

// Action describes the kind of operation applied to an entity.
type Action string

// Supported actions recorded in audit entries.
const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Student is a pupil attached to exactly one grade. ID stays nil until the
// record has been read back from storage.
type Student struct {
	ID          *int64 `json:"id,omitempty"`
	FullName    string `json:"full_name"`
	Grade       string `json:"grade"`
	Description string `json:"description"`
}

// Theme is a topic name scoped to one grade. The (Grade, Name) pair is unique
// across all themes.
type Theme struct {
	ID    *int64 `json:"id,omitempty"`
	Grade string `json:"grade"`
	Name  string `json:"name"`
}

// Key returns the uniqueness key of the theme.
func (t Theme) Key() ThemeKey {
	return ThemeKey{Grade: t.Grade, Name: t.Name}
}

// ThemeKey is the (grade, name) pair that identifies a theme for uniqueness checks.
type ThemeKey struct {
	Grade string
	Name  string
}

// Dictation is a dependent record referencing a theme by id. Dictations are
// removed together with their theme.
type Dictation struct {
	ID      *int64 `json:"id,omitempty"`
	ThemeID int64  `json:"theme_id"`
	Text    string `json:"text"`
}

// StudentThemeRow is one row of the students ⟕ themes join on grade.
// ThemeName is nil when no theme exists for the student's grade.
type StudentThemeRow struct {
	StudentID int64
	FullName  string
	ThemeName *string
}

// StudentThemeView lists every theme available to a student's grade.
type StudentThemeView struct {
	StudentID  int64    `json:"student_id"`
	FullName   string   `json:"student_full_name"`
	ThemeNames []string `json:"theme_names"`
}

// ThemeEntry is a theme name paired with its identifier inside a grade listing.
type ThemeEntry struct {
	Name string `json:"theme_name"`
	ID   int64  `json:"theme_id"`
}

// GradeThemeView lists every theme of one grade.
type GradeThemeView struct {
	Grade  string       `json:"grade"`
	Themes []ThemeEntry `json:"theme_entries"`
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
