// Package feedback publishes querent ratings for completed readings onto
// NATS for downstream aggregation.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ArcanaLabs/arcana-engine/pkg/metrics"
	"github.com/ArcanaLabs/arcana-engine/pkg/natsutil"
)

// Subject is the NATS subject feedback records are published to.
const Subject = "arcana.feedback"

// Record is one rating event, correlated to a reading by record id.
type Record struct {
	RecordID  string    `json:"record_id"`
	Rating    int       `json:"rating"` // 1..5
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrInvalidRecord marks records rejected before publication.
var ErrInvalidRecord = errors.New("invalid feedback record")

// Validate checks a record before publication.
func (r Record) Validate() error {
	if r.RecordID == "" {
		return fmt.Errorf("%w: record_id required", ErrInvalidRecord)
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("%w: rating %d out of range 1..5", ErrInvalidRecord, r.Rating)
	}
	return nil
}

// Publisher sends feedback records to NATS.
type Publisher struct {
	subject string
	log     *slog.Logger
	now     func() time.Time
	publish func(ctx context.Context, subject string, rec Record) error
}

// NewPublisher wires a publisher over a NATS connection. logger may be nil.
func NewPublisher(nc *nats.Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		subject: Subject,
		log:     logger,
		now:     time.Now,
		publish: func(ctx context.Context, subject string, rec Record) error {
			return natsutil.Publish(ctx, nc, subject, rec)
		},
	}
}

// Publish validates and sends one record, stamping CreatedAt when unset.
func (p *Publisher) Publish(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = p.now().UTC()
	}
	if err := p.publish(ctx, p.subject, rec); err != nil {
		return fmt.Errorf("feedback publish: %w", err)
	}
	p.log.Info("feedback published", "record_id", rec.RecordID, "rating", rec.Rating)
	return nil
}

// CountRatings subscribes to the feedback subject and counts ratings into the
// metrics registry, labelled by rating value.
func CountRatings(nc *nats.Conn, reg *metrics.Registry) (*nats.Subscription, error) {
	return natsutil.Subscribe(nc, Subject, func(_ context.Context, rec Record) {
		if rec.Validate() != nil {
			return
		}
		name := metrics.WithLabels("arcana_feedback_total", "rating", fmt.Sprintf("%d", rec.Rating))
		reg.Counter(name, "Feedback events by rating").Inc()
	})
}
