package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/pkg/resilience"
)

type fakeEntry struct {
	key   string
	value []byte
}

func (e *fakeEntry) Bucket() string             { return "readings" }
func (e *fakeEntry) Key() string                { return e.key }
func (e *fakeEntry) Value() []byte              { return e.value }
func (e *fakeEntry) Revision() uint64           { return 1 }
func (e *fakeEntry) Created() time.Time         { return time.Time{} }
func (e *fakeEntry) Delta() uint64              { return 0 }
func (e *fakeEntry) Operation() nats.KeyValueOp { return nats.KeyValuePut }

type fakeKV struct {
	data     map[string][]byte
	getErr   error
	putErr   error
	getCalls int
	putCalls int
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

func (kv *fakeKV) Get(key string) (nats.KeyValueEntry, error) {
	kv.getCalls++
	if kv.getErr != nil {
		return nil, kv.getErr
	}
	v, ok := kv.data[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}
	return &fakeEntry{key: key, value: v}, nil
}

func (kv *fakeKV) Put(key string, value []byte) (uint64, error) {
	kv.putCalls++
	if kv.putErr != nil {
		return 0, kv.putErr
	}
	kv.data[key] = value
	return 1, nil
}

func sampleDraws() []domain.Draw {
	return []domain.Draw{
		{CardID: "MAJOR_0", Orientation: domain.Upright, Domain: domain.AreaLove, Position: "past"},
		{CardID: "MAJOR_13", Orientation: domain.Reversed, Domain: domain.AreaLove, Position: "present"},
	}
}

func sampleReading() domain.Reading {
	return domain.Reading{
		OverallMessage: "흐름이 좋습니다.",
		RecordID:       "abc123def456",
	}
}

func TestKeyDeterministic(t *testing.T) {
	a := Key("질문", sampleDraws(), domain.ThemeLove, "three_card", "ko")
	b := Key("질문", sampleDraws(), domain.ThemeLove, "three_card", "ko")
	if a != b {
		t.Fatal("identical requests must share a key")
	}
	if len(a) != 64 {
		t.Fatalf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestKeySensitivity(t *testing.T) {
	base := Key("질문", sampleDraws(), domain.ThemeLove, "three_card", "ko")

	if Key("다른 질문", sampleDraws(), domain.ThemeLove, "three_card", "ko") == base {
		t.Fatal("question must affect the key")
	}
	if Key("질문", sampleDraws(), domain.ThemeLove, "three_card", "en") == base {
		t.Fatal("locale must affect the key")
	}

	swapped := sampleDraws()
	swapped[0], swapped[1] = swapped[1], swapped[0]
	if Key("질문", swapped, domain.ThemeLove, "three_card", "ko") == base {
		t.Fatal("draw order must affect the key")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, DefaultOpts, nil)
	key := Key("질문", sampleDraws(), domain.ThemeLove, "three_card", "ko")

	if _, ok := c.Get(context.Background(), key); ok {
		t.Fatal("empty cache must miss")
	}

	c.Set(context.Background(), key, sampleReading())

	got, ok := c.Get(context.Background(), key)
	if !ok {
		t.Fatal("expected hit after set")
	}
	if got.RecordID != "abc123def456" {
		t.Fatalf("wrong reading: %+v", got)
	}
	if kv.putCalls != 1 {
		t.Fatalf("kv puts = %d, want 1", kv.putCalls)
	}
}

func TestCacheSkipsDegradedReadings(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, DefaultOpts, nil)

	r := sampleReading()
	r.Degraded = true
	c.Set(context.Background(), "k", r)

	if kv.putCalls != 0 {
		t.Fatal("degraded readings must not reach the kv store")
	}
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Fatal("degraded readings must not be cached locally either")
	}
}

func TestCacheFallsBackToLocalOnKVOutage(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, DefaultOpts, nil)
	key := "outage-key"

	c.Set(context.Background(), key, sampleReading())

	kv.getErr = errors.New("jetstream down")
	got, ok := c.Get(context.Background(), key)
	if !ok || got.RecordID != "abc123def456" {
		t.Fatal("local tier must serve reads during a kv outage")
	}
}

func TestCacheBreakerOpensAfterRepeatedFailures(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("jetstream down")
	c := New(kv, DefaultOpts, nil)

	for i := 0; i < 3; i++ {
		c.Get(context.Background(), "k")
	}
	if c.BreakerState() != resilience.StateOpen {
		t.Fatalf("breaker state = %v, want open", c.BreakerState())
	}

	before := kv.getCalls
	c.Get(context.Background(), "k")
	if kv.getCalls != before {
		t.Fatal("open breaker must short-circuit kv reads")
	}
}

func TestCacheKVMissDoesNotTripBreaker(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, DefaultOpts, nil)

	for i := 0; i < 5; i++ {
		c.Get(context.Background(), "missing")
	}
	if c.BreakerState() != resilience.StateClosed {
		t.Fatal("misses are not failures")
	}
}

func TestCacheWithoutKV(t *testing.T) {
	c := New(nil, DefaultOpts, nil)
	c.Set(context.Background(), "k", sampleReading())
	if _, ok := c.Get(context.Background(), "k"); !ok {
		t.Fatal("local-only cache must still serve")
	}
}

func TestLRUEviction(t *testing.T) {
	l := newLRU(2, time.Hour)
	l.Set("a", []byte("1"))
	l.Set("b", []byte("2"))
	l.Set("c", []byte("3"))

	if _, ok := l.Get("a"); ok {
		t.Fatal("oldest entry must be evicted")
	}
	if _, ok := l.Get("c"); !ok {
		t.Fatal("newest entry must survive")
	}
	if l.Len() != 2 {
		t.Fatalf("len = %d, want 2", l.Len())
	}
}

func TestLRUTouchOnGet(t *testing.T) {
	l := newLRU(2, time.Hour)
	l.Set("a", []byte("1"))
	l.Set("b", []byte("2"))
	l.Get("a")
	l.Set("c", []byte("3"))

	if _, ok := l.Get("a"); !ok {
		t.Fatal("recently read entry must survive eviction")
	}
	if _, ok := l.Get("b"); ok {
		t.Fatal("least recently used entry must be evicted")
	}
}

func TestLRUExpiry(t *testing.T) {
	l := newLRU(10, time.Minute)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	l.Set("a", []byte("1"))
	l.now = func() time.Time { return base.Add(2 * time.Minute) }

	if _, ok := l.Get("a"); ok {
		t.Fatal("expired entry must not be served")
	}
}
