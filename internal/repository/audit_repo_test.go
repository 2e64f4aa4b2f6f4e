// go
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/models"
	sqldb "github.com/ChrisAbdo/event-manager/internal/repository/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newAuditRepo(t *testing.T, driver string) (*AuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewAuditRepository(db, driver), mock
}

func TestAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()

	repo, mock := newAuditRepo(t, sqldb.DriverSQLite)
	subject := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs(
			sqlmock.AnyArg(), // generated id
			sqlmock.AnyArg(), // now
			"LOGIN_FAILED",   // type trimmed and upper-cased
			nil,
			subject,
			"bad password",
			`{"attempts":2}`,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(ctx(t), models.AuditEvent{
		Type:        "  login_failed ",
		SubjectID:   &subject,
		Description: "bad password",
		Metadata:    map[string]int{"attempts": 2},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestAppend_Postgres_Placeholders(t *testing.T) {
	t.Parallel()

	repo, mock := newAuditRepo(t, sqldb.DriverPostgres)

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7)")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Append(ctx(t), models.AuditEvent{Type: models.EventLogout}); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestAppend_ExecError(t *testing.T) {
	t.Parallel()

	repo, mock := newAuditRepo(t, sqldb.DriverSQLite)
	mock.ExpectExec("INSERT INTO audit_events").WillReturnError(errors.New("boom"))

	if err := repo.Append(ctx(t), models.AuditEvent{Type: "X"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestList_FiltersAndDecodes(t *testing.T) {
	t.Parallel()

	repo, mock := newAuditRepo(t, sqldb.DriverSQLite)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	actor := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "actor_id", "subject_id", "message", "meta"}).
		AddRow("e1", from.Add(time.Hour), "ROLE_CHANGED", actor.String(), actor.String(), "role changed", `{"from":"MANAGER","to":"ADMIN"}`).
		AddRow("e2", from.Add(2*time.Hour), "ROLE_CHANGED", nil, nil, "raw meta", `not-json`)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, occurred_at, type, actor_id, subject_id, message, meta FROM audit_events WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC, id ASC")).
		WithArgs(from, to, "ROLE_CHANGED").
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), models.AuditFilter{From: from, To: to, Type: "role_changed"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 events, got %d", len(got))
	}
	if got[0].ActorID == nil || *got[0].ActorID != actor {
		t.Fatalf("actor not decoded: %+v", got[0])
	}
	meta, ok := got[0].Metadata.(map[string]any)
	if !ok || meta["to"] != "ADMIN" {
		t.Fatalf("metadata not decoded: %#v", got[0].Metadata)
	}
	if got[1].ActorID != nil || got[1].Metadata != "not-json" {
		t.Fatalf("unexpected second event: %+v", got[1])
	}
}

func TestList_LimitReturnsNewestAscending(t *testing.T) {
	t.Parallel()

	repo, mock := newAuditRepo(t, sqldb.DriverPostgres)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// database answers newest first
	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "actor_id", "subject_id", "message", "meta"}).
		AddRow("e3", base.Add(3*time.Minute), "LOGOUT", nil, nil, "", nil).
		AddRow("e2", base.Add(2*time.Minute), "LOGOUT", nil, nil, "", nil)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY occurred_at DESC, id DESC LIMIT $1")).
		WithArgs(2).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), models.AuditFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ids := []string{got[0].EventID, got[1].EventID}
	if strings.Join(ids, ",") != "e2,e3" {
		t.Fatalf("want ascending e2,e3, got %v", ids)
	}
}

func TestAuditEvent_JSONOmitsEmptyIDs(t *testing.T) {
	b, err := json.Marshal(models.AuditEvent{EventID: "x", Type: "LOGOUT"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "actor_id") || strings.Contains(string(b), "subject_id") {
		t.Fatalf("expected ids to be omitted, got %s", b)
	}
}
