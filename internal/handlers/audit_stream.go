package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms

	snapshotSize = 50
)

// Envelope types sent on the audit stream.
const (
	envSnapshot = "snapshot"
	envEvents   = "events"
	envError    = "error"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Same-origin checks do not fit API clients; the route already requires an ADMIN token.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamCursor remembers the newest instant sent and the ids sent at that
// instant, so an inclusive From bound never repeats an event.
type streamCursor struct {
	since time.Time
	seen  map[string]struct{}
}

// advance drops already sent events and moves the cursor past the rest.
func (cur *streamCursor) advance(events []models.AuditEvent) []models.AuditEvent {
	fresh := make([]models.AuditEvent, 0, len(events))
	for _, e := range events {
		if e.OccurredAt.Before(cur.since) {
			continue
		}
		if _, ok := cur.seen[e.EventID]; ok && e.OccurredAt.Equal(cur.since) {
			continue
		}
		fresh = append(fresh, e)
	}
	for _, e := range fresh {
		switch {
		case e.OccurredAt.After(cur.since):
			cur.since = e.OccurredAt
			cur.seen = map[string]struct{}{e.EventID: {}}
		case e.OccurredAt.Equal(cur.since):
			if cur.seen == nil {
				cur.seen = map[string]struct{}{}
			}
			cur.seen[e.EventID] = struct{}{}
		}
	}
	return fresh
}

// @Summary      Audit event stream
// @Description  WebSocket. Sends a "snapshot" envelope with recent events, then "events" envelopes with newer ones every interval.
// @Tags         audit
// @Param        interval     query  string  false  "Poll interval as a Go duration, at most 10s"  example(2s)
// @Param        interval_ms  query  int     false  "Poll interval in milliseconds, at most 10000"
// @Success      101
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/v1/audit/ws [get]
// @Security     BearerAuth
func (h *Handler) auditStream(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	cur := &streamCursor{}

	// Send the snapshot immediately.
	if err := h.sendEvents(ctx, conn, cur, envSnapshot, models.AuditFilter{Limit: snapshotSize}); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendEvents(ctx, conn, cur, envEvents, models.AuditFilter{From: cur.since}); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// Helper: parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// Helper: startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendEvents loads events for f and writes those the client has not seen.
// Polls with nothing new write nothing; the snapshot is always written.
// A load failure is reported to the client and ends the stream.
func (h *Handler) sendEvents(ctx context.Context, conn *websocket.Conn, cur *streamCursor, typ string, f models.AuditFilter) error {
	events, err := h.services.Events(ctx, f)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_list_events_failed", "err", err)
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(wsEnvelope{Type: envError, Error: "failed to load events"})
		return err
	}

	fresh := cur.advance(events)
	if typ != envSnapshot && len(fresh) == 0 {
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: typ, Data: fresh})
}
