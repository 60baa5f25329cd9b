package feedback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPublisher(sink *[]Record, err error) *Publisher {
	return &Publisher{
		subject: Subject,
		log:     discardLogger(),
		now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		publish: func(_ context.Context, _ string, rec Record) error {
			if err != nil {
				return err
			}
			*sink = append(*sink, rec)
			return nil
		},
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		rec  Record
		want bool
	}{
		{Record{RecordID: "abc", Rating: 3}, true},
		{Record{RecordID: "abc", Rating: 1}, true},
		{Record{RecordID: "abc", Rating: 5}, true},
		{Record{RecordID: "", Rating: 3}, false},
		{Record{RecordID: "abc", Rating: 0}, false},
		{Record{RecordID: "abc", Rating: 6}, false},
	}
	for _, c := range cases {
		err := c.rec.Validate()
		if (err == nil) != c.want {
			t.Errorf("Validate(%+v) err = %v, want ok=%v", c.rec, err, c.want)
		}
		if err != nil && !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Validate(%+v) err = %v, want ErrInvalidRecord", c.rec, err)
		}
	}
}

func TestPublishStampsCreatedAt(t *testing.T) {
	var sink []Record
	p := testPublisher(&sink, nil)

	err := p.Publish(context.Background(), Record{RecordID: "abc123", Rating: 4, Note: "잘 맞았어요"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(sink) != 1 {
		t.Fatalf("published %d records", len(sink))
	}
	if sink[0].CreatedAt.IsZero() {
		t.Fatal("CreatedAt must be stamped")
	}
	if sink[0].Note != "잘 맞았어요" {
		t.Fatalf("note = %q", sink[0].Note)
	}
}

func TestPublishKeepsExplicitCreatedAt(t *testing.T) {
	var sink []Record
	p := testPublisher(&sink, nil)

	at := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	if err := p.Publish(context.Background(), Record{RecordID: "abc", Rating: 5, CreatedAt: at}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !sink[0].CreatedAt.Equal(at) {
		t.Fatalf("CreatedAt = %v, want %v", sink[0].CreatedAt, at)
	}
}

func TestPublishRejectsInvalid(t *testing.T) {
	var sink []Record
	p := testPublisher(&sink, nil)

	if err := p.Publish(context.Background(), Record{RecordID: "", Rating: 3}); err == nil {
		t.Fatal("expected validation error")
	}
	if len(sink) != 0 {
		t.Fatal("invalid record must not be published")
	}
}

func TestPublishWrapsTransportError(t *testing.T) {
	p := testPublisher(nil, errors.New("nats down"))

	err := p.Publish(context.Background(), Record{RecordID: "abc", Rating: 2})
	if err == nil || !strings.Contains(err.Error(), "feedback publish") {
		t.Fatalf("err = %v, want wrapped transport error", err)
	}
}
