package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMemoryStoreHashExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	if err := s.HSet(ctx, "session:a", map[string]string{"job_id": "job_001"}); err != nil {
		t.Fatalf("HSet err: %v", err)
	}
	if err := s.Expire(ctx, "session:a", time.Minute); err != nil {
		t.Fatalf("Expire err: %v", err)
	}

	got, _ := s.HGetAll(ctx, "session:a")
	if got["job_id"] != "job_001" {
		t.Fatalf("unexpected hash %v", got)
	}

	now = now.Add(time.Minute)
	got, _ = s.HGetAll(ctx, "session:a")
	if len(got) != 0 {
		t.Fatalf("expected expired hash, got %v", got)
	}
}

func TestMemoryStoreSetNX(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "submission:a", "APP-1", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v", ok, err)
	}
	ok, err = s.SetNX(ctx, "submission:a", "APP-2", time.Hour)
	if err != nil || ok {
		t.Fatalf("second SetNX = %v, %v", ok, err)
	}
	val, err := s.Get(ctx, "submission:a")
	if err != nil || val != "APP-1" {
		t.Fatalf("Get = %q, %v", val, err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListAndScan(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.LPush(ctx, "job_applications:job_001", "a", "b")
	_ = s.LPush(ctx, "job_applications:job_001", "c")
	got, _ := s.LRange(ctx, "job_applications:job_001", 0, -1)
	if fmt.Sprint(got) != "[c b a]" {
		t.Fatalf("unexpected list %v", got)
	}
	got, _ = s.LRange(ctx, "job_applications:job_001", 1, 1)
	if fmt.Sprint(got) != "[b]" {
		t.Fatalf("unexpected range %v", got)
	}

	_ = s.HSet(ctx, "submitted_application:1", map[string]string{"a": "1"})
	_ = s.HSet(ctx, "submitted_application:2", map[string]string{"a": "2"})
	_ = s.HSet(ctx, "session:x", map[string]string{"a": "3"})
	keys, _ := s.ScanPrefix(ctx, SubmittedPrefix)
	if fmt.Sprint(keys) != "[submitted_application:1 submitted_application:2]" {
		t.Fatalf("unexpected scan %v", keys)
	}
}

func TestMemoryStorePubSubOrderAndClose(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "application_updates:a")
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	for i := 0; i < 10; i++ {
		_ = s.Publish(ctx, "application_updates:a", fmt.Sprint(i))
	}
	_ = s.Publish(ctx, "application_updates:b", "other")

	for i := 0; i < 10; i++ {
		select {
		case msg := <-sub.Messages():
			if msg.Payload != fmt.Sprint(i) {
				t.Fatalf("message %d out of order: %q", i, msg.Payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}
	if _, ok := <-sub.Messages(); ok {
		t.Fatal("expected closed channel after Close")
	}
	if n := s.SubscriberCount("application_updates:a"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
	// Publishing after close must not panic.
	_ = s.Publish(ctx, "application_updates:a", "late")
}

func TestMemoryStoreCountsAndLogsDroppedUpdates(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewMemoryStore(WithMemoryLogger(zap.New(core)))
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "application_updates:slow")
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	defer sub.Close()

	for i := 0; i < memorySubscriberBuffer+3; i++ {
		if err := s.Publish(ctx, "application_updates:slow", fmt.Sprint(i)); err != nil {
			t.Fatalf("Publish err: %v", err)
		}
	}

	if got := s.Dropped(); got != 3 {
		t.Fatalf("expected 3 dropped updates, got %d", got)
	}
	entries := logs.FilterMessage("subscriber buffer full, update dropped").All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 drop warnings, got %d", len(entries))
	}
	if ch := entries[0].ContextMap()["channel"]; ch != "application_updates:slow" {
		t.Fatalf("unexpected channel field %v", ch)
	}
}
