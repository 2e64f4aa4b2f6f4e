package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/models"

	"github.com/google/uuid"
)

type AuditRepository struct {
	db *sql.DB
	binder
}

func NewAuditRepository(db *sql.DB, driver string) *AuditRepository {
	return &AuditRepository{db: db, binder: binder{driver: driver}}
}

var _ AuditRepo = (*AuditRepository)(nil)

const insertAuditSQL = `
	INSERT INTO audit_events (id, occurred_at, type, actor_id, subject_id, message, meta)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Append inserts a new event. If EventID or OccurredAt are empty, they're set.
func (r *AuditRepository) Append(ctx context.Context, e models.AuditEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	// marshal metadata if present
	var metaPtr *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	_, err := r.db.ExecContext(ctx, r.q(insertAuditSQL),
		e.EventID,
		e.OccurredAt,
		strings.ToUpper(strings.TrimSpace(e.Type)),
		nullUUID(e.ActorID),
		nullUUID(e.SubjectID),
		e.Description,
		metaPtr,
	)
	if err != nil {
		return fmt.Errorf("insert audit event %s: %w", e.EventID, err)
	}
	return nil
}

// List returns events filtered by [From, To] (inclusive) and/or type, ordered ASC.
// With a Limit only the newest Limit matches are returned, still ascending.
func (r *AuditRepository) List(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.To.UTC())
	}
	if typ := strings.ToUpper(strings.TrimSpace(f.Type)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := `SELECT id, occurred_at, type, actor_id, subject_id, message, meta FROM audit_events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if f.Limit > 0 {
		q += " ORDER BY occurred_at DESC, id DESC LIMIT ?"
		args = append(args, f.Limit)
	} else {
		q += " ORDER BY occurred_at ASC, id ASC"
	}

	rows, err := r.db.QueryContext(ctx, r.q(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	out := make([]models.AuditEvent, 0, 64)
	for rows.Next() {
		var (
			ev      models.AuditEvent
			actor   uuid.NullUUID
			subject uuid.NullUUID
			metaStr sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &actor, &subject, &ev.Description, &metaStr); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		if actor.Valid {
			ev.ActorID = &actor.UUID
		}
		if subject.Valid {
			ev.SubjectID = &subject.UUID
		}

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = metaStr.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if f.Limit > 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
