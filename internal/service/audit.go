package service

import (
	"context"
	"strings"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/logger"
	"github.com/ChrisAbdo/event-manager/internal/metrics"
	"github.com/ChrisAbdo/event-manager/internal/models"
	"github.com/ChrisAbdo/event-manager/internal/repository"

	"github.com/google/uuid"
)

// recorder is what the other services need from the audit log.
type recorder interface {
	Record(ctx context.Context, e models.AuditEvent)
}

type AuditService struct {
	auditRepo repository.AuditRepo
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepo, m *metrics.Metrics, log *logger.Logger) *AuditService {
	return &AuditService{auditRepo: auditRepo, metrics: m, log: logOrNop(log)}
}

// Record appends e, filling id and time when empty. Failures are logged and
// swallowed so the audited operation still succeeds.
func (s *AuditService) Record(ctx context.Context, e models.AuditEvent) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	e.Type = normalizeEventType(e.Type)

	if err := s.auditRepo.Append(ctx, e); err != nil {
		s.log.Errorw("audit_record_failed", "type", e.Type, "event_id", e.EventID, "err", err)
		return
	}
	s.metrics.AuthEvent(e.Type)
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f models.AuditFilter) (models.AuditFilter, error) {
	f.From = normalizeToUTC(f.From)
	f.To = normalizeToUTC(f.To)

	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return models.AuditFilter{}, ErrInvalidTimeRange
	}
	if f.Limit < 0 {
		f.Limit = 0
	}

	f.Type = normalizeEventType(f.Type)
	return f, nil
}

func (s *AuditService) Events(ctx context.Context, f models.AuditFilter) ([]models.AuditEvent, error) {
	f, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.auditRepo.List(ctx, f)
}

// event builds an audit entry; actor and subject may be nil.
func event(typ string, actor, subject *uuid.UUID, desc string, meta any) models.AuditEvent {
	return models.AuditEvent{
		Type:        typ,
		ActorID:     actor,
		SubjectID:   subject,
		Description: desc,
		Metadata:    meta,
	}
}

func idPtr(id uuid.UUID) *uuid.UUID { return &id }
