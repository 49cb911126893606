package domain

import "context"

// TransactionView provides read-only access to the stored relations.
type TransactionView interface {
	// ListStudents returns every student ordered by full name.
	ListStudents() ([]Student, error)
	GetStudent(id int64) (Student, error)
	// StudentThemeRows returns the left join of students to themes on grade,
	// ordered by full name, then theme name, then student id.
	StudentThemeRows() ([]StudentThemeRow, error)
	// GradeThemeRows returns every theme ordered by the numeric grade prefix,
	// then grade label, then theme name.
	GradeThemeRows() ([]Theme, error)
	// ThemePairs returns the (grade, name) pair of every stored theme.
	ThemePairs() ([]ThemeKey, error)
	GetTheme(id int64) (Theme, error)
	// ListDictations returns the dictations of a theme ordered by id.
	ListDictations(themeID int64) ([]Dictation, error)
}

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Inserts do not report generated identifiers and
// deletes by id succeed silently when the row is absent.
type Transaction interface {
	TransactionView
	InsertStudent(Student) error
	DeleteStudent(id int64) error
	InsertTheme(Theme) error
	// UpdateThemeName renames a theme and returns the row as stored.
	UpdateThemeName(id int64, name string) (Theme, error)
	DeleteTheme(id int64) error
	InsertDictation(Dictation) error
	// DeleteDictationsByTheme removes every dictation referencing themeID and
	// reports how many rows were removed.
	DeleteDictationsByTheme(themeID int64) (int64, error)
}

// PersistentStore is the minimal abstraction over durable backends used by
// the catalogs. RunInTransaction commits only when fn returns nil.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(TransactionView) error) error
	Close() error
}
