package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cyp0633/librepeat/recurrence"
	"github.com/cyp0633/librepeat/storage"
	"github.com/google/uuid"
)

var weekly = recurrence.Repeat{Type: recurrence.FrequencyWeekly, Interval: 1}

func TestStore_Event(t *testing.T) {
	store := New()
	ctx := context.Background()

	// Test getting non-existent event
	_, err := store.GetEvent(ctx, "nonexistent")
	if err == nil {
		t.Error("expected error getting non-existent event")
	} else if !storage.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	ev := storage.NewMockEvent("", "", "Dentist", "2025-10-15", recurrence.NoRepeat)
	if err := store.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("unexpected error creating event: %v", err)
	}
	if _, err := uuid.Parse(ev.ID); err != nil {
		t.Errorf("expected a generated uuid, got %q", ev.ID)
	}

	// Test creating duplicate event
	if err := store.CreateEvent(ctx, ev); err == nil {
		t.Error("expected error creating duplicate event")
	} else if !storage.IsAlreadyExists(err) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := store.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("unexpected error getting event: %v", err)
	}
	if got.Title != "Dentist" || got.Date != "2025-10-15" {
		t.Errorf("got event %+v, want %+v", got, ev)
	}

	// Test updating event
	got.Title = "Orthodontist"
	if err := store.UpdateEvent(ctx, got); err != nil {
		t.Errorf("unexpected error updating event: %v", err)
	}
	got, _ = store.GetEvent(ctx, ev.ID)
	if got.Title != "Orthodontist" {
		t.Errorf("got title %s, want Orthodontist", got.Title)
	}

	// Test updating missing event
	missing := storage.NewMockEvent("missing", "", "Ghost", "2025-10-15", recurrence.NoRepeat)
	if err := store.UpdateEvent(ctx, missing); !storage.IsNotFound(err) {
		t.Errorf("expected ErrNotFound updating missing event, got %v", err)
	}

	// Test deleting event
	if err := store.DeleteEvent(ctx, ev.ID); err != nil {
		t.Errorf("unexpected error deleting event: %v", err)
	}
	if _, err := store.GetEvent(ctx, ev.ID); err == nil {
		t.Error("expected error getting deleted event")
	}
	if err := store.DeleteEvent(ctx, ev.ID); !storage.IsNotFound(err) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	ev := storage.NewMockEvent("e1", "", "Original", "2025-10-15", weekly)
	if err := store.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the created value or a fetched value must not change the record
	ev.Title = "changed after create"
	got, _ := store.GetEvent(ctx, "e1")
	got.Title = "changed after get"
	listed, _ := store.ListEvents(ctx, nil)
	listed[0].Repeat = recurrence.NoRepeat

	stored, _ := store.GetEvent(ctx, "e1")
	if stored.Title != "Original" || stored.Repeat != weekly {
		t.Errorf("stored event was modified in place: %+v", stored)
	}
}

func TestStore_CreateEventsIsAtomic(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.CreateEvent(ctx, storage.NewMockEvent("taken", "", "Existing", "2025-10-01", recurrence.NoRepeat)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batch := []*recurrence.Event{
		storage.NewMockEvent("", "s1", "Sync", "2025-10-08", weekly),
		storage.NewMockEvent("taken", "s1", "Sync", "2025-10-15", weekly),
	}
	if err := store.CreateEvents(ctx, batch); !storage.IsAlreadyExists(err) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	events, _ := store.ListEvents(ctx, nil)
	if len(events) != 1 {
		t.Errorf("failed batch should store nothing, got %d events", len(events))
	}
	if batch[0].ID != "" {
		t.Errorf("failed batch should not assign IDs, got %q", batch[0].ID)
	}

	dup := []*recurrence.Event{
		storage.NewMockEvent("same", "", "A", "2025-10-08", recurrence.NoRepeat),
		storage.NewMockEvent("same", "", "B", "2025-10-09", recurrence.NoRepeat),
	}
	if err := store.CreateEvents(ctx, dup); !storage.IsAlreadyExists(err) {
		t.Errorf("expected ErrAlreadyExists for repeated ID in batch, got %v", err)
	}

	if err := store.CreateEvents(ctx, []*recurrence.Event{nil}); err == nil {
		t.Error("expected error for nil event")
	}
}

func TestStore_ListEvents(t *testing.T) {
	store := New()
	ctx := context.Background()

	batch := []*recurrence.Event{
		storage.NewMockEvent("b", "s1", "Sync", "2025-10-22", weekly),
		storage.NewMockEvent("a", "s1", "Sync", "2025-10-15", weekly),
		storage.NewMockEvent("c", "s1", "Sync", "2025-10-29", weekly),
		storage.NewMockEvent("x", "", "Lunch", "2025-10-22", recurrence.NoRepeat),
	}
	if err := store.CreateEvents(ctx, batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all, err := store.ListEvents(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error listing events: %v", err)
	}
	gotIDs := make([]string, 0, len(all))
	for _, ev := range all {
		gotIDs = append(gotIDs, ev.ID)
	}
	if want := "[a b x c]"; fmt.Sprint(gotIDs) != want {
		t.Errorf("got order %v, want %s", gotIDs, want)
	}

	series, _ := store.ListEvents(ctx, &storage.ListOptions{SeriesID: "s1"})
	if len(series) != 3 {
		t.Errorf("got %d series events, want 3", len(series))
	}

	start := time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 10, 25, 0, 0, 0, 0, time.UTC)
	ranged, _ := store.ListEvents(ctx, &storage.ListOptions{Start: &start, End: &end})
	if len(ranged) != 2 {
		t.Errorf("got %d events in range, want 2", len(ranged))
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := New()
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("ev-%d", i)
			ev := storage.NewMockEvent(id, "s1", "Sync", "2025-10-15", weekly)
			if err := store.CreateEvent(ctx, ev); err != nil {
				t.Errorf("create %s: %v", id, err)
				return
			}
			ev.Repeat = recurrence.NoRepeat
			if err := store.UpdateEvent(ctx, ev); err != nil {
				t.Errorf("update %s: %v", id, err)
			}
			if i%2 == 0 {
				if err := store.DeleteEvent(ctx, id); err != nil {
					t.Errorf("delete %s: %v", id, err)
				}
			}
		}(i)
	}
	wg.Wait()

	events, _ := store.ListEvents(ctx, nil)
	if len(events) != workers/2 {
		t.Errorf("got %d events, want %d", len(events), workers/2)
	}
	for _, ev := range events {
		if ev.IsRepeating() {
			t.Errorf("event %s should have been downgraded", ev.ID)
		}
	}
}
