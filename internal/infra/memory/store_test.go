package memory

import (
	"context"
	"testing"

	"prepsync/internal/app"
	"prepsync/internal/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := Open(app.SchemaVersion, app.Partitions())

	if err := store.Put(ctx, app.PartitionAttempts, "a1", []byte(`{"id":"a1"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	value, ok, err := store.Get(ctx, app.PartitionAttempts, "a1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(value) != `{"id":"a1"}` {
		t.Fatalf("unexpected value %s", value)
	}

	// Last write wins, no duplicate error.
	if err := store.Put(ctx, app.PartitionAttempts, "a1", []byte(`{"id":"a1","v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	all, err := store.GetAll(ctx, app.PartitionAttempts)
	if err != nil {
		t.Fatalf("getall: %v", err)
	}
	if len(all) != 1 || string(all["a1"]) != `{"id":"a1","v":2}` {
		t.Fatalf("expected single overwritten record, got %v", all)
	}
}

func TestStoreMissingKeyIsNotAnError(t *testing.T) {
	ctx := context.Background()
	store := Open(app.SchemaVersion, app.Partitions())

	_, ok, err := store.Get(ctx, app.PartitionOfflineExams, "nonexistent")
	if err != nil {
		t.Fatalf("expected no error for missing key, got %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for missing key")
	}

	// Removing an absent key is a no-op success.
	if err := store.Remove(ctx, app.PartitionOfflineExams, "nonexistent"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
}

func TestStoreUnknownPartition(t *testing.T) {
	ctx := context.Background()
	store := Open(app.SchemaVersion, app.Partitions())

	if err := store.Put(ctx, "bogus", "k", []byte("v")); err != domain.ErrPartitionUnknown {
		t.Fatalf("expected ErrPartitionUnknown, got %v", err)
	}
}

func TestStoreUpgradeKeepsExistingData(t *testing.T) {
	ctx := context.Background()
	v1Partitions := []string{app.PartitionQuestionData, app.PartitionAttempts, app.PartitionSyncQueue}
	store := Open(1, v1Partitions)

	if err := store.Put(ctx, app.PartitionAttempts, "a1", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}

	store.Upgrade(2, app.Partitions())
	store.Upgrade(2, app.Partitions()) // safe to run on every startup

	if store.Version() != 2 {
		t.Fatalf("expected version 2, got %d", store.Version())
	}
	value, ok, err := store.Get(ctx, app.PartitionAttempts, "a1")
	if err != nil || !ok || string(value) != "x" {
		t.Fatalf("pre-existing data changed: ok=%v err=%v value=%s", ok, err, value)
	}
	if err := store.Put(ctx, app.PartitionOfflineExams, "e1", []byte("y")); err != nil {
		t.Fatalf("new partition not usable: %v", err)
	}
}

func TestKeyValue(t *testing.T) {
	kv := NewKeyValue()

	if _, ok := kv.Get("missing"); ok {
		t.Fatalf("expected missing key")
	}
	kv.Set("k", []byte("v"))
	value, ok := kv.Get("k")
	if !ok || string(value) != "v" {
		t.Fatalf("expected v, got %s ok=%v", value, ok)
	}
	kv.Delete("k")
	if _, ok := kv.Get("k"); ok {
		t.Fatalf("expected deleted key")
	}
}
