package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	commonlogger "jetstream-go/common/logger"
	"jetstream-go/internal/domain"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jetstream_events (
	event_id      TEXT PRIMARY KEY,
	event_type    TEXT        NOT NULL,
	device_name   TEXT        NOT NULL,
	event_time    TIMESTAMPTZ NOT NULL,
	received_time TIMESTAMPTZ,
	payload       JSONB       NOT NULL,
	archived_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_jetstream_events_device_time
	ON jetstream_events (device_name, event_time DESC);
`

// EventRepository archives events in jetstream_events.
type EventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewEventRepository(db *sql.DB, logger *zap.Logger) *EventRepository {
	logger = commonlogger.OrNop(logger)
	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the table and index when missing.
func (r *EventRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create jetstream_events: %w", err)
	}
	return nil
}

// SaveEvent inserts env. It returns false without error when the event id is
// already stored.
func (r *EventRepository) SaveEvent(ctx context.Context, env *domain.Envelope) (bool, error) {
	query := `
		INSERT INTO jetstream_events (event_id, event_type, device_name, event_time, received_time, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
	`

	var received interface{}
	if env.ReceivedTime != nil {
		received = *env.ReceivedTime
	}

	res, err := r.db.ExecContext(ctx, query,
		env.EventID,
		env.EventType,
		env.DeviceName,
		env.EventTime,
		received,
		[]byte(env.Payload),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event %s: %w", env.EventID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// ListEvents returns the newest events of a device, optionally restricted to
// eventTypes.
func (r *EventRepository) ListEvents(ctx context.Context, deviceName string, eventTypes []string, limit int) ([]domain.Envelope, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	query := `
		SELECT event_id, event_type, device_name, event_time, received_time, payload
		FROM jetstream_events
		WHERE device_name = $1
		  AND (cardinality($2::text[]) = 0 OR event_type = ANY($2))
		ORDER BY event_time DESC
		LIMIT $3
	`
	if eventTypes == nil {
		eventTypes = []string{}
	}

	rows, err := r.db.QueryContext(ctx, query, deviceName, pq.Array(eventTypes), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []domain.Envelope
	for rows.Next() {
		var (
			env      domain.Envelope
			received sql.NullTime
			payload  []byte
		)
		if err := rows.Scan(&env.EventID, &env.EventType, &env.DeviceName, &env.EventTime, &received, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if received.Valid {
			t := received.Time
			env.ReceivedTime = &t
		}
		env.Payload = json.RawMessage(payload)
		out = append(out, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return out, nil
}

// CountByType counts archived events per type since the given time.
func (r *EventRepository) CountByType(ctx context.Context, since time.Time) (map[string]int64, error) {
	query := `
		SELECT event_type, COUNT(*)
		FROM jetstream_events
		WHERE event_time >= $1
		GROUP BY event_type
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			eventType string
			n         int64
		)
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[eventType] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counts: %w", err)
	}
	return counts, nil
}
