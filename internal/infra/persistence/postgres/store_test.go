package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"tutorcore/internal/infra/persistence/postgres/testutil"
	"tutorcore/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreAppliesSchema(t *testing.T) {
	_, conn := openStub(t)
	var tables []string
	for _, stmt := range conn.Statements() {
		if strings.Contains(stmt, "CREATE TABLE") {
			if !strings.Contains(stmt, "BIGSERIAL") {
				t.Fatalf("expected postgres identity columns, got %s", stmt)
			}
			tables = append(tables, stmt)
		}
	}
	if len(tables) != 3 {
		t.Fatalf("expected 3 tables created, got %d", len(tables))
	}
}

func TestNewStoreOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://invalid"); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestNewStorePingError(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestNewStoreSchemaError(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "apply postgres schema") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestRunInTransactionUsesNumberedPlaceholders(t *testing.T) {
	store, conn := openStub(t)
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.InsertTheme(domain.Theme{Grade: "6 класс", Name: "Причастие"}); err != nil {
			return err
		}
		_, err := tx.DeleteDictationsByTheme(7)
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	stmts := conn.Statements()
	insert := stmts[len(stmts)-2]
	if !strings.Contains(insert, "VALUES ($1, $2)") {
		t.Fatalf("expected numbered placeholders, got %s", insert)
	}
	if !strings.Contains(stmts[len(stmts)-1], "themes_id = $1") {
		t.Fatalf("expected numbered placeholder in delete, got %s", stmts[len(stmts)-1])
	}
	if conn.Commits != 1 {
		t.Fatalf("expected one commit, got %d", conn.Commits)
	}
}

func TestRunInTransactionCommitError(t *testing.T) {
	store, conn := openStub(t)
	conn.FailCommit = true
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteStudent(1)
	})
	if err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit error, got %v", err)
	}
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	store, conn := openStub(t)
	boom := errors.New("boom")
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.DeleteTheme(3); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if conn.Commits != 0 || conn.Rollbacks == 0 {
		t.Fatalf("expected rollback without commit, commits=%d rollbacks=%d", conn.Commits, conn.Rollbacks)
	}
}

func TestUpdateThemeNameMissingRow(t *testing.T) {
	store, conn := openStub(t)
	conn.Affected = 0
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateThemeName(9, "Наречие")
		return err
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestViewScansDictations(t *testing.T) {
	store, conn := openStub(t)
	conn.Columns["dictations"] = []string{"id", "themes_id", "dictation_text"}
	conn.Rows["dictations"] = [][]driver.Value{
		{int64(1), int64(4), "Осень наступила"},
		{int64(2), int64(4), "Зима пришла"},
	}
	err := store.View(context.Background(), func(v domain.TransactionView) error {
		got, err := v.ListDictations(4)
		if err != nil {
			return err
		}
		if len(got) != 2 || *got[1].ID != 2 || got[1].Text != "Зима пришла" {
			t.Fatalf("unexpected dictations %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
