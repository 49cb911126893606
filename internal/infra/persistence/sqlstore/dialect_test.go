package sqlstore

import "testing"

func TestRebind(t *testing.T) {
	cases := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite keeps question marks", SQLite, "DELETE FROM themes WHERE id = ?", "DELETE FROM themes WHERE id = ?"},
		{"postgres numbers placeholders", Postgres, "UPDATE themes SET theme_name = ? WHERE id = ?", "UPDATE themes SET theme_name = $1 WHERE id = $2"},
		{"postgres keeps unicode", Postgres, "SELECT 'класс' WHERE x = ?", "SELECT 'класс' WHERE x = $1"},
		{"no placeholders", Postgres, "SELECT 1", "SELECT 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.dialect.Rebind(tc.in); got != tc.want {
				t.Fatalf("Rebind(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDialectsDeclareAllTables(t *testing.T) {
	for _, d := range []Dialect{SQLite, Postgres} {
		if len(d.Schema) != 4 {
			t.Fatalf("%s: expected 3 tables and 1 index, got %d statements", d.Name, len(d.Schema))
		}
		if d.GradeNumber == "" {
			t.Fatalf("%s: missing grade number expression", d.Name)
		}
	}
}
