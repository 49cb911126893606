package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type recordingT struct {
	testing.TB
	msg string
}

func (r *recordingT) Helper() {}
func (r *recordingT) Fatalf(format string, args ...any) {
	r.msg = fmt.Sprintf(format, args...)
}

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package x\n\nimport (\n\t\"fmt\"\n\t\"tutorcore/internal/core\"\n)\n")
	writeFile(t, dir, "a_test.go", "package x\n\nimport \"tutorcore/internal/app\"\n")
	writeFile(t, dir, "notes.txt", "import \"tutorcore/internal/app\"")

	viols, err := directImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "tutorcore/internal/core (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	rec := &recordingT{}
	AssertNoDirectImports(rec, dir, InternalImportForbidden, "layering")
	if rec.msg == "" {
		t.Fatalf("expected failure to be reported")
	}
	rec = &recordingT{}
	AssertNoDirectImports(rec, dir, AdapterImportForbidden, "layering")
	if rec.msg != "" {
		t.Fatalf("unexpected failure %q", rec.msg)
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) bool
		path string
		want bool
	}{
		{"internal", InternalImportForbidden, "tutorcore/internal/core", true},
		{"pkg", InternalImportForbidden, "tutorcore/pkg/domain", false},
		{"stdlib", NonStdlibImportForbidden, "encoding/json", false},
		{"third party", NonStdlibImportForbidden, "github.com/gin-gonic/gin", true},
		{"own module", NonStdlibImportForbidden, "tutorcore/pkg/domain", true},
		{"adapter", AdapterImportForbidden, "tutorcore/internal/adapters/httpapi", true},
		{"app", AdapterImportForbidden, "tutorcore/internal/app", true},
		{"core", AdapterImportForbidden, "tutorcore/internal/core", false},
	}
	for _, tc := range cases {
		if got := tc.fn(tc.path); got != tc.want {
			t.Fatalf("%s: %q = %v, want %v", tc.name, tc.path, got, tc.want)
		}
	}
}

func TestMissingDirectory(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "nope"), InternalImportForbidden); err == nil {
		t.Fatalf("expected error")
	}
}
