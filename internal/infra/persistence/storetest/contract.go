// Package storetest provides a behavioural contract suite that every
// domain.PersistentStore implementation must pass.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tutorcore/pkg/domain"
)

// Factory builds a fresh, empty store for one subtest.
type Factory func(t *testing.T) domain.PersistentStore

// Run executes the contract suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(*testing.T, domain.PersistentStore)
	}{
		{"students ordered by full name", testListStudentsOrdered},
		{"student lookup and delete", testStudentLookupAndDelete},
		{"student theme rows left join", testStudentThemeRows},
		{"grade theme rows numeric order", testGradeThemeRows},
		{"theme pairs", testThemePairs},
		{"theme rename", testThemeRename},
		{"dictation cascade", testDictationCascade},
		{"rollback on error", testRollback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t)
			t.Cleanup(func() { _ = store.Close() })
			tc.fn(t, store)
		})
	}
}

func mustTx(t *testing.T, store domain.PersistentStore, fn func(domain.Transaction) error) {
	t.Helper()
	if err := store.RunInTransaction(context.Background(), fn); err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func mustView(t *testing.T, store domain.PersistentStore, fn func(domain.TransactionView) error) {
	t.Helper()
	if err := store.View(context.Background(), fn); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func seedThemes(t *testing.T, store domain.PersistentStore, themes ...domain.Theme) []domain.Theme {
	t.Helper()
	mustTx(t, store, func(tx domain.Transaction) error {
		for _, th := range themes {
			if err := tx.InsertTheme(th); err != nil {
				return err
			}
		}
		return nil
	})
	var stored []domain.Theme
	mustView(t, store, func(v domain.TransactionView) error {
		var err error
		stored, err = v.GradeThemeRows()
		return err
	})
	return stored
}

func findTheme(t *testing.T, themes []domain.Theme, grade, name string) int64 {
	t.Helper()
	for _, th := range themes {
		if th.Grade == grade && th.Name == name {
			if th.ID == nil {
				t.Fatalf("theme %s/%s has no id", grade, name)
			}
			return *th.ID
		}
	}
	t.Fatalf("theme %s/%s not stored", grade, name)
	return 0
}

func testListStudentsOrdered(t *testing.T, store domain.PersistentStore) {
	mustTx(t, store, func(tx domain.Transaction) error {
		for _, st := range []domain.Student{
			{FullName: "Петя Иванов", Grade: "7 класс"},
			{FullName: "Аня Смирнова", Grade: "6 класс", Description: "любит стихи"},
			{FullName: "Вася Пупкин", Grade: "6 класс"},
		} {
			if err := tx.InsertStudent(st); err != nil {
				return err
			}
		}
		return nil
	})
	mustView(t, store, func(v domain.TransactionView) error {
		students, err := v.ListStudents()
		if err != nil {
			return err
		}
		var names []string
		for _, st := range students {
			if st.ID == nil {
				t.Fatalf("stored student %q has no id", st.FullName)
			}
			names = append(names, st.FullName)
		}
		want := []string{"Аня Смирнова", "Вася Пупкин", "Петя Иванов"}
		if !reflect.DeepEqual(names, want) {
			t.Fatalf("students order = %v, want %v", names, want)
		}
		if students[0].Description != "любит стихи" || students[0].Grade != "6 класс" {
			t.Fatalf("unexpected fields: %+v", students[0])
		}
		return nil
	})
}

func testStudentLookupAndDelete(t *testing.T, store domain.PersistentStore) {
	mustTx(t, store, func(tx domain.Transaction) error {
		return tx.InsertStudent(domain.Student{FullName: "Вася Пупкин", Grade: "6 класс"})
	})
	var id int64
	mustView(t, store, func(v domain.TransactionView) error {
		students, err := v.ListStudents()
		if err != nil {
			return err
		}
		id = *students[0].ID
		got, err := v.GetStudent(id)
		if err != nil {
			return err
		}
		if got.FullName != "Вася Пупкин" {
			t.Fatalf("unexpected student %+v", got)
		}
		return nil
	})
	mustTx(t, store, func(tx domain.Transaction) error {
		if err := tx.DeleteStudent(id); err != nil {
			return err
		}
		// absent ids are a silent no-op
		return tx.DeleteStudent(id + 100)
	})
	mustView(t, store, func(v domain.TransactionView) error {
		if _, err := v.GetStudent(id); !domain.IsNotFound(err) {
			t.Fatalf("expected not found after delete, got %v", err)
		}
		return nil
	})
}

func testStudentThemeRows(t *testing.T, store domain.PersistentStore) {
	seedThemes(t, store,
		domain.Theme{Grade: "6 класс", Name: "Причастие"},
		domain.Theme{Grade: "6 класс", Name: "Деепричастие"},
		domain.Theme{Grade: "7 класс", Name: "Наречие"},
	)
	mustTx(t, store, func(tx domain.Transaction) error {
		for _, st := range []domain.Student{
			{FullName: "Вася Пупкин", Grade: "6 класс"},
			{FullName: "Аня Смирнова", Grade: "9 класс"},
		} {
			if err := tx.InsertStudent(st); err != nil {
				return err
			}
		}
		return nil
	})
	mustView(t, store, func(v domain.TransactionView) error {
		rows, err := v.StudentThemeRows()
		if err != nil {
			return err
		}
		if len(rows) != 3 {
			t.Fatalf("expected 3 join rows, got %d: %+v", len(rows), rows)
		}
		if rows[0].FullName != "Аня Смирнова" || rows[0].ThemeName != nil {
			t.Fatalf("expected outer-join row with nil theme first, got %+v", rows[0])
		}
		if rows[1].ThemeName == nil || *rows[1].ThemeName != "Деепричастие" {
			t.Fatalf("expected themes ordered by name, got %+v", rows[1])
		}
		if rows[2].ThemeName == nil || *rows[2].ThemeName != "Причастие" {
			t.Fatalf("expected themes ordered by name, got %+v", rows[2])
		}
		if rows[1].StudentID != rows[2].StudentID {
			t.Fatalf("expected both theme rows for the same student")
		}
		return nil
	})
}

func testGradeThemeRows(t *testing.T, store domain.PersistentStore) {
	seedThemes(t, store,
		domain.Theme{Grade: "10 класс", Name: "Синтаксис"},
		domain.Theme{Grade: "6 класс", Name: "Причастие"},
		domain.Theme{Grade: "6 класс", Name: "Деепричастие"},
		domain.Theme{Grade: "9 класс", Name: "Пунктуация"},
	)
	mustView(t, store, func(v domain.TransactionView) error {
		rows, err := v.GradeThemeRows()
		if err != nil {
			return err
		}
		var got []string
		for _, th := range rows {
			got = append(got, th.Grade+"/"+th.Name)
		}
		want := []string{"6 класс/Деепричастие", "6 класс/Причастие", "9 класс/Пунктуация", "10 класс/Синтаксис"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("grade theme order = %v, want %v", got, want)
		}
		return nil
	})
}

func testThemePairs(t *testing.T, store domain.PersistentStore) {
	seedThemes(t, store,
		domain.Theme{Grade: "6 класс", Name: "Причастие"},
		domain.Theme{Grade: "7 класс", Name: "Причастие"},
	)
	mustView(t, store, func(v domain.TransactionView) error {
		pairs, err := v.ThemePairs()
		if err != nil {
			return err
		}
		set := make(map[domain.ThemeKey]struct{}, len(pairs))
		for _, p := range pairs {
			set[p] = struct{}{}
		}
		if len(set) != 2 {
			t.Fatalf("expected 2 distinct pairs, got %v", pairs)
		}
		if _, ok := set[domain.ThemeKey{Grade: "7 класс", Name: "Причастие"}]; !ok {
			t.Fatalf("missing pair in %v", pairs)
		}
		return nil
	})
}

func testThemeRename(t *testing.T, store domain.PersistentStore) {
	stored := seedThemes(t, store, domain.Theme{Grade: "6 класс", Name: "Причастие"})
	id := findTheme(t, stored, "6 класс", "Причастие")
	mustTx(t, store, func(tx domain.Transaction) error {
		updated, err := tx.UpdateThemeName(id, "Причастный оборот")
		if err != nil {
			return err
		}
		if updated.ID == nil || *updated.ID != id || updated.Name != "Причастный оборот" || updated.Grade != "6 класс" {
			t.Fatalf("unexpected updated row %+v", updated)
		}
		if _, err := tx.UpdateThemeName(id+100, "x"); !domain.IsNotFound(err) {
			t.Fatalf("expected not found for missing theme, got %v", err)
		}
		return nil
	})
	mustView(t, store, func(v domain.TransactionView) error {
		th, err := v.GetTheme(id)
		if err != nil {
			return err
		}
		if th.Name != "Причастный оборот" {
			t.Fatalf("rename not persisted: %+v", th)
		}
		return nil
	})
}

func testDictationCascade(t *testing.T, store domain.PersistentStore) {
	stored := seedThemes(t, store,
		domain.Theme{Grade: "6 класс", Name: "Причастие"},
		domain.Theme{Grade: "6 класс", Name: "Деепричастие"},
	)
	keep := findTheme(t, stored, "6 класс", "Деепричастие")
	drop := findTheme(t, stored, "6 класс", "Причастие")
	mustTx(t, store, func(tx domain.Transaction) error {
		for _, d := range []domain.Dictation{
			{ThemeID: drop, Text: "первый"},
			{ThemeID: drop, Text: "второй"},
			{ThemeID: keep, Text: "третий"},
		} {
			if err := tx.InsertDictation(d); err != nil {
				return err
			}
		}
		return nil
	})
	mustTx(t, store, func(tx domain.Transaction) error {
		if err := tx.DeleteTheme(drop); err != nil {
			return err
		}
		removed, err := tx.DeleteDictationsByTheme(drop)
		if err != nil {
			return err
		}
		if removed != 2 {
			t.Fatalf("expected 2 dictations removed, got %d", removed)
		}
		return nil
	})
	mustView(t, store, func(v domain.TransactionView) error {
		if _, err := v.GetTheme(drop); !domain.IsNotFound(err) {
			t.Fatalf("expected deleted theme to be missing, got %v", err)
		}
		gone, err := v.ListDictations(drop)
		if err != nil {
			return err
		}
		if len(gone) != 0 {
			t.Fatalf("expected no dictations for deleted theme, got %+v", gone)
		}
		kept, err := v.ListDictations(keep)
		if err != nil {
			return err
		}
		if len(kept) != 1 || kept[0].Text != "третий" || kept[0].ID == nil {
			t.Fatalf("unexpected remaining dictations %+v", kept)
		}
		return nil
	})
}

func testRollback(t *testing.T, store domain.PersistentStore) {
	boom := errors.New("boom")
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.InsertTheme(domain.Theme{Grade: "6 класс", Name: "Причастие"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}
	mustView(t, store, func(v domain.TransactionView) error {
		pairs, err := v.ThemePairs()
		if err != nil {
			return err
		}
		if len(pairs) != 0 {
			t.Fatalf("expected rollback to discard insert, got %v", pairs)
		}
		return nil
	})
}
