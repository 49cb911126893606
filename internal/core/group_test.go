package core

import (
	"reflect"
	"testing"

	"tutorcore/pkg/domain"
)

func strPtr(s string) *string { return &s }

func TestGroupRowsPreservesFirstSeenOrder(t *testing.T) {
	rows := []domain.StudentThemeRow{
		{StudentID: 1, FullName: "A", ThemeName: strPtr("t1")},
		{StudentID: 1, FullName: "A", ThemeName: strPtr("t2")},
		{StudentID: 2, FullName: "B", ThemeName: strPtr("t1")},
	}
	groups := GroupRows(rows,
		func(r domain.StudentThemeRow) int64 { return r.StudentID },
		func(r domain.StudentThemeRow) string { return r.FullName },
		func(r domain.StudentThemeRow) (string, bool) { return *r.ThemeName, true },
	)
	want := []Group[int64, string, string]{
		{Key: 1, Parent: "A", Children: []string{"t1", "t2"}},
		{Key: 2, Parent: "B", Children: []string{"t1"}},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("unexpected groups %+v", groups)
	}
}

func TestGroupRowsNonConsecutiveKeys(t *testing.T) {
	rows := []struct{ k, v string }{{"b", "1"}, {"a", "2"}, {"b", "3"}}
	groups := GroupRows(rows,
		func(r struct{ k, v string }) string { return r.k },
		func(r struct{ k, v string }) string { return r.k },
		func(r struct{ k, v string }) (string, bool) { return r.v, true },
	)
	if len(groups) != 2 || groups[0].Key != "b" || groups[1].Key != "a" {
		t.Fatalf("unexpected order %+v", groups)
	}
	if !reflect.DeepEqual(groups[0].Children, []string{"1", "3"}) {
		t.Fatalf("unexpected children %+v", groups[0].Children)
	}
}

func TestGroupRowsSkippedChildKeepsEmptyParent(t *testing.T) {
	rows := []domain.StudentThemeRow{{StudentID: 7, FullName: "C"}}
	groups := GroupRows(rows,
		func(r domain.StudentThemeRow) int64 { return r.StudentID },
		func(r domain.StudentThemeRow) string { return r.FullName },
		func(r domain.StudentThemeRow) (string, bool) {
			if r.ThemeName == nil {
				return "", false
			}
			return *r.ThemeName, true
		},
	)
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	if groups[0].Children == nil || len(groups[0].Children) != 0 {
		t.Fatalf("expected empty non-nil children, got %#v", groups[0].Children)
	}
}

func TestGroupRowsEmptyInput(t *testing.T) {
	groups := GroupRows[int, int, int, int](nil,
		func(r int) int { return r },
		func(r int) int { return r },
		func(r int) (int, bool) { return r, true },
	)
	if groups == nil || len(groups) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", groups)
	}
}
