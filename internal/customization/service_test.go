// internal/customization/service_test.go
//
// Unit-tests for the theme service: default fallback on absence, the
// whole-row upsert, and input validation.
//
// Run: go test ./internal/customization -v

package customization

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/forge/internal/fault"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "sqlmock")
	return NewService(db, zap.NewNop().Sugar()), mock
}

var (
	selectRe = regexp.QuoteMeta(`SELECT website_id, primary_color, secondary_color, logo_url`)
	upsertRe = regexp.QuoteMeta(`INSERT INTO customization`)
	deleteRe = regexp.QuoteMeta(`DELETE FROM customization`)
)

func themeRow(websiteID string, primary, secondary, logo interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(
		[]string{"website_id", "primary_color", "secondary_color", "logo_url", "created_at", "updated_at"}).
		AddRow(websiteID, primary, secondary, logo, time.Now(), time.Now())
}

func TestGet_DefaultsWhenAbsent(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(selectRe).
		WithArgs("w1").
		WillReturnRows(sqlmock.NewRows([]string{"website_id"}))

	rec, err := svc.Get(context.Background(), "w1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.WebsiteID != "w1" || rec.PrimaryColor != nil || rec.LogoURL != nil {
		t.Fatalf("want default theme, got %+v", rec)
	}
}

func TestPut_UpsertsWholeRow(t *testing.T) {
	svc, mock := newTestService(t)

	primary := "#112233"
	mock.ExpectExec(upsertRe).
		WithArgs("w1", "#112233", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(selectRe).
		WithArgs("w1").
		WillReturnRows(themeRow("w1", "#112233", nil, nil))

	rec, err := svc.Put(context.Background(), "w1", &primary, nil, nil)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if rec.PrimaryColor == nil || *rec.PrimaryColor != "#112233" {
		t.Fatalf("rec = %+v", rec)
	}
	if rec.SecondaryColor != nil {
		t.Fatalf("secondary must be cleared, got %q", *rec.SecondaryColor)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestPut_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)

	bad := []struct{ primary, logo string }{
		{primary: "112233"},
		{primary: "#12345"},
		{primary: "#11223g"},
		{logo: "not-a-url"},
		{logo: "ftp://cdn.forge.site/logo.png"},
	}
	for _, tc := range bad {
		var primary, logo *string
		if tc.primary != "" {
			primary = &tc.primary
		}
		if tc.logo != "" {
			logo = &tc.logo
		}
		_, err := svc.Put(context.Background(), "w1", primary, nil, logo)
		if fault.KindOf(err) != fault.InvalidInput {
			t.Fatalf("%+v: want InvalidInput, got %v", tc, err)
		}
	}
}

func TestReset_IsIdempotent(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec(deleteRe).
		WithArgs("w1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := svc.Reset(context.Background(), "w1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
