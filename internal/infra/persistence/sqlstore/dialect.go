package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the engine-specific fragments of the catalog schema and queries.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of '?'.
	Numbered bool
	// Schema holds idempotent DDL statements applied on open.
	Schema []string
	// GradeNumber is an SQL expression yielding the numeric prefix of the
	// themes_grade_number column.
	GradeNumber string
}

// SQLite is the dialect for modernc.org/sqlite. CAST keeps the leading
// numeric prefix of a text value, so "6 класс" casts to 6.
var SQLite = Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS students (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			full_name TEXT NOT NULL,
			grade_number TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS themes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			themes_grade_number TEXT NOT NULL,
			theme_name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dictations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			themes_id INTEGER NOT NULL,
			dictation_text TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS dictations_themes_id_idx ON dictations(themes_id)`,
	},
	GradeNumber: `CAST(themes_grade_number AS INTEGER)`,
}

// Postgres is the dialect for PostgreSQL through the pgx stdlib driver.
var Postgres = Dialect{
	Name:     "postgres",
	Numbered: true,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS students (
			id BIGSERIAL PRIMARY KEY,
			full_name TEXT NOT NULL,
			grade_number TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS themes (
			id BIGSERIAL PRIMARY KEY,
			themes_grade_number TEXT NOT NULL,
			theme_name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dictations (
			id BIGSERIAL PRIMARY KEY,
			themes_id BIGINT NOT NULL,
			dictation_text TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS dictations_themes_id_idx ON dictations(themes_id)`,
	},
	GradeNumber: `COALESCE(CAST(substring(themes_grade_number from '^[0-9]+') AS INTEGER), 0)`,
}

// Rebind rewrites '?' placeholders for dialects that number them.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
