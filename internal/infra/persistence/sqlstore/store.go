// Package sqlstore implements the catalog persistence contract on top of
// database/sql. Engine-specific packages (sqlite, postgres) supply the driver
// and a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tutorcore/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Store persists catalogs into the students, themes and dictations tables.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New applies the dialect schema to db and returns a store over it.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply %s schema: %w", dialect.Name, err)
		}
	}
	return &Store{db: db, dialect: dialect}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the dialect the store was opened with.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// RunInTransaction runs fn inside a database transaction, committing only
// when fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&transaction{view: view{ctx: ctx, q: tx, dialect: s.dialect}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// View runs fn against a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(&view{ctx: ctx, q: tx, dialect: s.dialect})
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type view struct {
	ctx     context.Context
	q       querier
	dialect Dialect
}

func (v *view) query(query string, args ...any) (*sql.Rows, error) {
	return v.q.QueryContext(v.ctx, v.dialect.Rebind(query), args...)
}

func (v *view) exec(query string, args ...any) (sql.Result, error) {
	return v.q.ExecContext(v.ctx, v.dialect.Rebind(query), args...)
}

func (v *view) ListStudents() ([]domain.Student, error) {
	rows, err := v.query(`SELECT id, full_name, grade_number, description FROM students ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("select students: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Student
	for rows.Next() {
		var (
			id int64
			st domain.Student
		)
		if err := rows.Scan(&id, &st.FullName, &st.Grade, &st.Description); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		st.ID = domain.Int64Ptr(id)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

func (v *view) GetStudent(id int64) (domain.Student, error) {
	st := domain.Student{ID: domain.Int64Ptr(id)}
	err := v.q.QueryRowContext(v.ctx, v.dialect.Rebind(`SELECT full_name, grade_number, description FROM students WHERE id = ?`), id).
		Scan(&st.FullName, &st.Grade, &st.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Student{}, domain.ErrNotFound{Entity: domain.EntityStudent, ID: id}
	}
	if err != nil {
		return domain.Student{}, fmt.Errorf("select student %d: %w", id, err)
	}
	return st, nil
}

func (v *view) StudentThemeRows() ([]domain.StudentThemeRow, error) {
	rows, err := v.query(`SELECT st.id, st.full_name, th.theme_name
		FROM students st
		LEFT JOIN themes th ON th.themes_grade_number = st.grade_number
		ORDER BY st.full_name, th.theme_name NULLS FIRST, st.id`)
	if err != nil {
		return nil, fmt.Errorf("select student themes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.StudentThemeRow
	for rows.Next() {
		var (
			row   domain.StudentThemeRow
			theme sql.NullString
		)
		if err := rows.Scan(&row.StudentID, &row.FullName, &theme); err != nil {
			return nil, fmt.Errorf("scan student theme: %w", err)
		}
		if theme.Valid {
			name := theme.String
			row.ThemeName = &name
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate student themes: %w", err)
	}
	return out, nil
}

func (v *view) GradeThemeRows() ([]domain.Theme, error) {
	rows, err := v.query(`SELECT id, themes_grade_number, theme_name FROM themes
		ORDER BY ` + v.dialect.GradeNumber + `, themes_grade_number, theme_name, id`)
	if err != nil {
		return nil, fmt.Errorf("select themes: %w", err)
	}
	return scanThemes(rows)
}

func (v *view) ThemePairs() ([]domain.ThemeKey, error) {
	rows, err := v.query(`SELECT themes_grade_number, theme_name FROM themes`)
	if err != nil {
		return nil, fmt.Errorf("select theme pairs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.ThemeKey
	for rows.Next() {
		var key domain.ThemeKey
		if err := rows.Scan(&key.Grade, &key.Name); err != nil {
			return nil, fmt.Errorf("scan theme pair: %w", err)
		}
		out = append(out, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate theme pairs: %w", err)
	}
	return out, nil
}

func (v *view) GetTheme(id int64) (domain.Theme, error) {
	th := domain.Theme{ID: domain.Int64Ptr(id)}
	err := v.q.QueryRowContext(v.ctx, v.dialect.Rebind(`SELECT themes_grade_number, theme_name FROM themes WHERE id = ?`), id).
		Scan(&th.Grade, &th.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Theme{}, domain.ErrNotFound{Entity: domain.EntityTheme, ID: id}
	}
	if err != nil {
		return domain.Theme{}, fmt.Errorf("select theme %d: %w", id, err)
	}
	return th, nil
}

func (v *view) ListDictations(themeID int64) ([]domain.Dictation, error) {
	rows, err := v.query(`SELECT id, themes_id, dictation_text FROM dictations WHERE themes_id = ? ORDER BY id`, themeID)
	if err != nil {
		return nil, fmt.Errorf("select dictations: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Dictation
	for rows.Next() {
		var (
			id int64
			d  domain.Dictation
		)
		if err := rows.Scan(&id, &d.ThemeID, &d.Text); err != nil {
			return nil, fmt.Errorf("scan dictation: %w", err)
		}
		d.ID = domain.Int64Ptr(id)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dictations: %w", err)
	}
	return out, nil
}

func scanThemes(rows *sql.Rows) ([]domain.Theme, error) {
	defer func() { _ = rows.Close() }()
	var out []domain.Theme
	for rows.Next() {
		var (
			id int64
			th domain.Theme
		)
		if err := rows.Scan(&id, &th.Grade, &th.Name); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		th.ID = domain.Int64Ptr(id)
		out = append(out, th)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate themes: %w", err)
	}
	return out, nil
}

type transaction struct {
	view
}

func (tx *transaction) InsertStudent(st domain.Student) error {
	if _, err := tx.exec(`INSERT INTO students (full_name, grade_number, description) VALUES (?, ?, ?)`,
		st.FullName, st.Grade, st.Description); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (tx *transaction) DeleteStudent(id int64) error {
	if _, err := tx.exec(`DELETE FROM students WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete student %d: %w", id, err)
	}
	return nil
}

func (tx *transaction) InsertTheme(th domain.Theme) error {
	if _, err := tx.exec(`INSERT INTO themes (themes_grade_number, theme_name) VALUES (?, ?)`, th.Grade, th.Name); err != nil {
		return fmt.Errorf("insert theme: %w", err)
	}
	return nil
}

func (tx *transaction) UpdateThemeName(id int64, name string) (domain.Theme, error) {
	res, err := tx.exec(`UPDATE themes SET theme_name = ? WHERE id = ?`, name, id)
	if err != nil {
		return domain.Theme{}, fmt.Errorf("update theme %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Theme{}, domain.ErrNotFound{Entity: domain.EntityTheme, ID: id}
	}
	return tx.GetTheme(id)
}

func (tx *transaction) DeleteTheme(id int64) error {
	if _, err := tx.exec(`DELETE FROM themes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete theme %d: %w", id, err)
	}
	return nil
}

func (tx *transaction) InsertDictation(d domain.Dictation) error {
	if _, err := tx.exec(`INSERT INTO dictations (themes_id, dictation_text) VALUES (?, ?)`, d.ThemeID, d.Text); err != nil {
		return fmt.Errorf("insert dictation: %w", err)
	}
	return nil
}

func (tx *transaction) DeleteDictationsByTheme(themeID int64) (int64, error) {
	res, err := tx.exec(`DELETE FROM dictations WHERE themes_id = ?`, themeID)
	if err != nil {
		return 0, fmt.Errorf("delete dictations of theme %d: %w", themeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("dictations affected: %w", err)
	}
	return n, nil
}
