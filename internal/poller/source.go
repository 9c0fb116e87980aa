package poller

import (
	"context"
	"fmt"

	"jetstream-go/jetstream/application"
	"jetstream-go/jetstream/models"
)

// Batch is one fetch from an EventSource. Events are acknowledged together.
type Batch struct {
	ID       string   // v3 batch id
	EventIDs []string // v1.5 acknowledges by event id
	Events   []models.Event
}

// Len number of top-level events
func (b *Batch) Len() int { return len(b.Events) }

// EventSource pulls pending events and acknowledges processed batches.
type EventSource interface {
	Name() string
	Fetch(ctx context.Context, limit int) (*Batch, error)
	Ack(ctx context.Context, batch *Batch) error
}

// ============================================
// v3
// ============================================

// V3Client is satisfied by *jetstream.Client.
type V3Client interface {
	GetEvents(ctx context.Context, limit int) (*models.EventBatch, error)
	RemoveEvents(ctx context.Context, batchID string) error
}

type v3Source struct {
	client V3Client
}

// NewV3Source reads events with GET v3/events and acknowledges by batch id.
func NewV3Source(client V3Client) EventSource {
	return &v3Source{client: client}
}

func (s *v3Source) Name() string { return "v3" }

func (s *v3Source) Fetch(ctx context.Context, limit int) (*Batch, error) {
	eb, err := s.client.GetEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &Batch{ID: eb.BatchId, Events: eb.Events}, nil
}

func (s *v3Source) Ack(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	if batch.ID == "" {
		return fmt.Errorf("batch of %d events has no id", batch.Len())
	}
	return s.client.RemoveEvents(ctx, batch.ID)
}

// ============================================
// v1.5
// ============================================

// V15Client is satisfied by *application.ServiceClient.
type V15Client interface {
	DoContext(ctx context.Context, r application.Request, out interface{}) error
}

type v15Source struct {
	client V15Client
}

// NewV15Source reads events with the GetEvents action and acknowledges them
// with RemoveEvents by event id.
func NewV15Source(client V15Client) EventSource {
	return &v15Source{client: client}
}

func (s *v15Source) Name() string { return "v1.5" }

func (s *v15Source) Fetch(ctx context.Context, limit int) (*Batch, error) {
	var resp application.GetEventsResponse
	if err := s.client.DoContext(ctx, application.GetEventsRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	events := resp.Events.Models()
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.EventID())
	}
	return &Batch{EventIDs: ids, Events: events}, nil
}

func (s *v15Source) Ack(ctx context.Context, batch *Batch) error {
	if len(batch.EventIDs) == 0 {
		return nil
	}
	return s.client.DoContext(ctx, application.RemoveEventsRequest{EventIds: batch.EventIDs}, nil)
}
