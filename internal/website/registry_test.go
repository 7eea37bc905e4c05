// internal/website/registry_test.go
//
// Unit-tests for the website registry using sqlmock plus fake page and
// domain cascaders.  Query expectations match on distinctive fragments
// because the repository SQL is written multi-line.
//
// Run: go test ./internal/website -v

package website

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/forge/internal/fault"
)

type fakePages struct{ deleted []string }

func (f *fakePages) DeleteForWebsite(ctx context.Context, tx *sqlx.Tx, websiteID string) error {
	f.deleted = append(f.deleted, websiteID)
	return nil
}

type fakeDomains struct {
	busy    int
	ids     []uint64
	dropped []uint64
}

func (f *fakeDomains) BusyCount(ctx context.Context, websiteID string) (int, error) {
	return f.busy, nil
}
func (f *fakeDomains) IDsForWebsite(ctx context.Context, websiteID string) ([]uint64, error) {
	return f.ids, nil
}
func (f *fakeDomains) Drop(ctx context.Context, domainID uint64) error {
	f.dropped = append(f.dropped, domainID)
	return nil
}

type fakeThemes struct{ deleted []string }

func (f *fakeThemes) DeleteForWebsite(ctx context.Context, tx *sqlx.Tx, websiteID string) error {
	f.deleted = append(f.deleted, websiteID)
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock, *fakePages, *fakeDomains, *fakeThemes) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "sqlmock")
	pages := &fakePages{}
	domains := &fakeDomains{}
	themes := &fakeThemes{}
	return NewRegistry(db, pages, domains, themes, zap.NewNop().Sugar()), mock, pages, domains, themes
}

var (
	probeRe  = regexp.QuoteMeta(`SELECT id FROM website`)
	selectRe = regexp.QuoteMeta(`SELECT id, user_id, name, created_at, updated_at`)
	insertRe = regexp.QuoteMeta(`INSERT INTO website`)
	deleteRe = regexp.QuoteMeta(`DELETE FROM website`)
)

func TestCreate_Conflict(t *testing.T) {
	reg, mock, _, _, _ := newTestRegistry(t)

	mock.ExpectBegin()
	mock.ExpectQuery(probeRe).
		WithArgs("u1", "Shop", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("w1"))
	mock.ExpectRollback()

	_, err := reg.Create(context.Background(), "u1", "Shop")
	if fault.KindOf(err) != fault.Conflict {
		t.Fatalf("want Conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

// A concurrent create can commit between the probe and the insert; the
// UNIQUE(user_id, name) index rejects the loser and the violation must
// come back as a conflict.
func TestCreate_DuplicateKeyRace(t *testing.T) {
	reg, mock, _, _, _ := newTestRegistry(t)

	mock.ExpectBegin()
	mock.ExpectQuery(probeRe).
		WithArgs("u1", "Shop", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(insertRe).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := reg.Create(context.Background(), "u1", "Shop")
	if fault.KindOf(err) != fault.Conflict {
		t.Fatalf("want Conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreate_NameTooShort(t *testing.T) {
	reg, _, _, _, _ := newTestRegistry(t)
	_, err := reg.Create(context.Background(), "u1", "abc")
	if fault.KindOf(err) != fault.InvalidInput {
		t.Fatalf("want InvalidInput, got %v", err)
	}
}

func TestCreate_OK(t *testing.T) {
	reg, mock, _, _, _ := newTestRegistry(t)

	mock.ExpectBegin()
	mock.ExpectQuery(probeRe).
		WithArgs("u1", "Shop", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(insertRe).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(selectRe).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name"}).
			AddRow("w1", "u1", "Shop"))

	rec, err := reg.Create(context.Background(), "u1", "Shop")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Name != "Shop" {
		t.Fatalf("name = %q", rec.Name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestRename_Conflict(t *testing.T) {
	reg, mock, _, _, _ := newTestRegistry(t)

	mock.ExpectBegin()
	mock.ExpectQuery(probeRe).
		WithArgs("u1", "Store", "w1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("w2"))
	mock.ExpectRollback()

	err := reg.Rename(context.Background(), "w1", "u1", "Store")
	if fault.KindOf(err) != fault.Conflict {
		t.Fatalf("want Conflict, got %v", err)
	}
}

func TestRename_NotFound(t *testing.T) {
	reg, mock, _, _, _ := newTestRegistry(t)

	mock.ExpectBegin()
	mock.ExpectQuery(probeRe).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE website`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := reg.Rename(context.Background(), "missing", "u1", "Store")
	if fault.KindOf(err) != fault.NotFound {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestDelete_DomainBusy(t *testing.T) {
	reg, mock, pages, domains, _ := newTestRegistry(t)
	domains.busy = 1

	mock.ExpectQuery(selectRe).
		WithArgs("w1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name"}).
			AddRow("w1", "u1", "Shop"))

	err := reg.Delete(context.Background(), "w1", "u1")
	if fault.KindOf(err) != fault.Conflict {
		t.Fatalf("want Conflict(domain busy), got %v", err)
	}
	if len(pages.deleted) != 0 {
		t.Fatal("cascade must not start while a domain is mid-saga")
	}
}

func TestDelete_CascadeOrder(t *testing.T) {
	reg, mock, pages, domains, themes := newTestRegistry(t)
	domains.ids = []uint64{7, 9}

	mock.ExpectQuery(selectRe).
		WithArgs("w1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name"}).
			AddRow("w1", "u1", "Shop"))
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectExec(deleteRe).
		WithArgs("w1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := reg.Delete(context.Background(), "w1", "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(pages.deleted) != 1 || pages.deleted[0] != "w1" {
		t.Fatalf("pages cascade = %v", pages.deleted)
	}
	if len(themes.deleted) != 1 || themes.deleted[0] != "w1" {
		t.Fatalf("theme cascade = %v", themes.deleted)
	}
	if len(domains.dropped) != 2 {
		t.Fatalf("domains dropped = %v", domains.dropped)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
