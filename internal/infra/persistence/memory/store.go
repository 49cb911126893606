// Package memory provides an in-memory implementation of the catalog
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"

	"tutorcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Student aliases domain.Student for in-memory persistence operations.
	Student = domain.Student
	// Theme aliases domain.Theme.
	Theme = domain.Theme
	// Dictation aliases domain.Dictation.
	Dictation = domain.Dictation
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	students   map[int64]Student
	themes     map[int64]Theme
	dictations map[int64]Dictation

	// sequences mimic autoincrement columns; they never move backwards
	nextStudentID   int64
	nextThemeID     int64
	nextDictationID int64
}

func newMemoryState() memoryState {
	return memoryState{
		students:   make(map[int64]Student),
		themes:     make(map[int64]Theme),
		dictations: make(map[int64]Dictation),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.students {
		cloned.students[k] = cloneStudent(v)
	}
	for k, v := range s.themes {
		cloned.themes[k] = cloneTheme(v)
	}
	for k, v := range s.dictations {
		cloned.dictations[k] = cloneDictation(v)
	}
	cloned.nextStudentID = s.nextStudentID
	cloned.nextThemeID = s.nextThemeID
	cloned.nextDictationID = s.nextDictationID
	return cloned
}

func cloneStudent(s Student) Student {
	cp := s
	if s.ID != nil {
		cp.ID = domain.Int64Ptr(*s.ID)
	}
	return cp
}

func cloneTheme(t Theme) Theme {
	cp := t
	if t.ID != nil {
		cp.ID = domain.Int64Ptr(*t.ID)
	}
	return cp
}

func cloneDictation(d Dictation) Dictation {
	cp := d
	if d.ID != nil {
		cp.ID = domain.Int64Ptr(*d.ID)
	}
	return cp
}

// Store provides an in-memory transactional store. Transactions run one at a
// time against a private copy of the state which replaces the live state on
// success.
type Store struct {
	mu    sync.RWMutex
	state memoryState
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newMemoryState()}
}

// RunInTransaction applies fn to a copy of the state and commits it when fn
// returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{view: view{state: s.state.clone()}}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&view{state: snapshot})
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

type view struct {
	state memoryState
}

func (v *view) ListStudents() ([]Student, error) {
	out := make([]Student, 0, len(v.state.students))
	for _, st := range v.state.students {
		out = append(out, cloneStudent(st))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return *out[i].ID < *out[j].ID
	})
	return out, nil
}

func (v *view) GetStudent(id int64) (Student, error) {
	st, ok := v.state.students[id]
	if !ok {
		return Student{}, domain.ErrNotFound{Entity: domain.EntityStudent, ID: id}
	}
	return cloneStudent(st), nil
}

func (v *view) StudentThemeRows() ([]domain.StudentThemeRow, error) {
	byGrade := make(map[string][]string)
	for _, th := range v.state.themes {
		byGrade[th.Grade] = append(byGrade[th.Grade], th.Name)
	}
	var rows []domain.StudentThemeRow
	for id, st := range v.state.students {
		names := byGrade[st.Grade]
		if len(names) == 0 {
			rows = append(rows, domain.StudentThemeRow{StudentID: id, FullName: st.FullName})
			continue
		}
		for _, name := range names {
			rows = append(rows, domain.StudentThemeRow{StudentID: id, FullName: st.FullName, ThemeName: &name})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.FullName != b.FullName {
			return a.FullName < b.FullName
		}
		// nil theme names sort first, matching NULLS FIRST
		switch {
		case a.ThemeName == nil && b.ThemeName != nil:
			return true
		case a.ThemeName != nil && b.ThemeName == nil:
			return false
		case a.ThemeName != nil && *a.ThemeName != *b.ThemeName:
			return *a.ThemeName < *b.ThemeName
		}
		return a.StudentID < b.StudentID
	})
	return rows, nil
}

func (v *view) GradeThemeRows() ([]Theme, error) {
	out := v.sortedThemes()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if na, nb := domain.GradeNumber(a.Grade), domain.GradeNumber(b.Grade); na != nb {
			return na < nb
		}
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		return a.Name < b.Name
	})
	return out, nil
}

func (v *view) ThemePairs() ([]domain.ThemeKey, error) {
	themes := v.sortedThemes()
	out := make([]domain.ThemeKey, 0, len(themes))
	for _, th := range themes {
		out = append(out, th.Key())
	}
	return out, nil
}

func (v *view) GetTheme(id int64) (Theme, error) {
	th, ok := v.state.themes[id]
	if !ok {
		return Theme{}, domain.ErrNotFound{Entity: domain.EntityTheme, ID: id}
	}
	return cloneTheme(th), nil
}

func (v *view) ListDictations(themeID int64) ([]Dictation, error) {
	var out []Dictation
	for _, d := range v.state.dictations {
		if d.ThemeID == themeID {
			out = append(out, cloneDictation(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out, nil
}

// sortedThemes returns themes ordered by id.
func (v *view) sortedThemes() []Theme {
	out := make([]Theme, 0, len(v.state.themes))
	for _, th := range v.state.themes {
		out = append(out, cloneTheme(th))
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ID < *out[j].ID })
	return out
}

type transaction struct {
	view
}

func (tx *transaction) InsertStudent(st Student) error {
	tx.state.nextStudentID++
	id := tx.state.nextStudentID
	st.ID = domain.Int64Ptr(id)
	tx.state.students[id] = st
	return nil
}

func (tx *transaction) DeleteStudent(id int64) error {
	delete(tx.state.students, id)
	return nil
}

func (tx *transaction) InsertTheme(th Theme) error {
	tx.state.nextThemeID++
	id := tx.state.nextThemeID
	th.ID = domain.Int64Ptr(id)
	tx.state.themes[id] = th
	return nil
}

func (tx *transaction) UpdateThemeName(id int64, name string) (Theme, error) {
	th, ok := tx.state.themes[id]
	if !ok {
		return Theme{}, domain.ErrNotFound{Entity: domain.EntityTheme, ID: id}
	}
	th.Name = name
	tx.state.themes[id] = th
	return cloneTheme(th), nil
}

func (tx *transaction) DeleteTheme(id int64) error {
	delete(tx.state.themes, id)
	return nil
}

func (tx *transaction) InsertDictation(d Dictation) error {
	tx.state.nextDictationID++
	id := tx.state.nextDictationID
	d.ID = domain.Int64Ptr(id)
	tx.state.dictations[id] = d
	return nil
}

func (tx *transaction) DeleteDictationsByTheme(themeID int64) (int64, error) {
	var removed int64
	for id, d := range tx.state.dictations {
		if d.ThemeID == themeID {
			delete(tx.state.dictations, id)
			removed++
		}
	}
	return removed, nil
}
