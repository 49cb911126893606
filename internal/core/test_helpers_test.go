package core

import (
	"context"
	"errors"
	"testing"

	"tutorcore/internal/infra/persistence/memory"
	"tutorcore/pkg/domain"
)

var errInjected = errors.New("injected failure")

// faultyStore wraps the memory store and fails selected transaction steps.
type faultyStore struct {
	*memory.Store
	failDictationDelete bool
	failInsertTheme     bool
}

func (s *faultyStore) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	return s.Store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return fn(faultyTx{Transaction: tx, store: s})
	})
}

type faultyTx struct {
	domain.Transaction
	store *faultyStore
}

func (tx faultyTx) DeleteDictationsByTheme(themeID int64) (int64, error) {
	if tx.store.failDictationDelete {
		return 0, errInjected
	}
	return tx.Transaction.DeleteDictationsByTheme(themeID)
}

func (tx faultyTx) InsertTheme(th domain.Theme) error {
	if tx.store.failInsertTheme {
		return errInjected
	}
	return tx.Transaction.InsertTheme(th)
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, errInjected
}

func mustAddTheme(t *testing.T, c *ThemeCatalog, grade, name string) {
	t.Helper()
	if _, err := c.AddTheme(context.Background(), grade, name); err != nil {
		t.Fatalf("add theme %s/%s: %v", grade, name, err)
	}
}

func mustAddStudent(t *testing.T, c *StudentCatalog, raw string) {
	t.Helper()
	if _, err := c.AddStudent(context.Background(), raw); err != nil {
		t.Fatalf("add student %q: %v", raw, err)
	}
}

func gradeThemes(t *testing.T, c *ThemeCatalog) []domain.GradeThemeView {
	t.Helper()
	views, err := c.ListGradeThemeViews(context.Background())
	if err != nil {
		t.Fatalf("list grade themes: %v", err)
	}
	return views
}
