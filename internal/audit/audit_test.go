package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ternlund/lockguard/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func testEvent(id string, typ EventType, sev Severity) Event {
	return Event{
		ID:        id,
		Type:      typ,
		Principal: "alice",
		Context: Context{
			SourceAddress:    "10.0.0.7",
			ClientDescriptor: "curl/8.4",
		},
		Severity: sev,
	}
}

func TestAppendAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	e := testEvent("ev-1", EventLock, SeverityHigh)
	if _, err := store.Append(ctx, store.db, e); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Type != EventLock {
		t.Errorf("Type = %q, want %q", got.Type, EventLock)
	}
	if got.Principal != "alice" {
		t.Errorf("Principal = %q, want alice", got.Principal)
	}
	if got.Context.SourceAddress != "10.0.0.7" {
		t.Errorf("SourceAddress = %q, want 10.0.0.7", got.Context.SourceAddress)
	}
	if got.Resolved {
		t.Error("expected Resolved = false")
	}
	if got.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestAppendGeneratesID(t *testing.T) {
	store := setupStore(t)

	e, err := store.Append(context.Background(), store.db, Event{
		Type:      EventUnlock,
		Principal: "system",
		Severity:  SeverityMedium,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e.ID == "" {
		t.Error("expected a generated ID")
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	events := []Event{
		testEvent("a", EventLock, SeverityHigh),
		testEvent("b", EventFailedAttempt, SeverityCritical),
		testEvent("c", EventUnauthorizedAccess, SeverityCritical),
	}
	events[2].Principal = "mallory"

	for _, e := range events {
		if _, err := store.Append(ctx, store.db, e); err != nil {
			t.Fatalf("Append %s: %v", e.ID, err)
		}
	}

	byType, err := store.Query(ctx, QueryFilter{Type: EventFailedAttempt})
	if err != nil {
		t.Fatalf("Query by type: %v", err)
	}
	if len(byType) != 1 || byType[0].ID != "b" {
		t.Errorf("Query by type = %v, want [b]", byType)
	}

	bySeverity, err := store.Query(ctx, QueryFilter{Severity: SeverityCritical})
	if err != nil {
		t.Fatalf("Query by severity: %v", err)
	}
	if len(bySeverity) != 2 {
		t.Errorf("Query by severity returned %d events, want 2", len(bySeverity))
	}

	byPrincipal, err := store.Query(ctx, QueryFilter{Principal: "mallory"})
	if err != nil {
		t.Fatalf("Query by principal: %v", err)
	}
	if len(byPrincipal) != 1 || byPrincipal[0].ID != "c" {
		t.Errorf("Query by principal = %v, want [c]", byPrincipal)
	}
}

func TestStatsFor(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// 3 critical failed attempts and 2 high locks inside the window.
	for i := 0; i < 3; i++ {
		if _, err := store.Append(ctx, store.db, Event{
			Type: EventFailedAttempt, Principal: "alice", Severity: SeverityCritical,
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := store.Append(ctx, store.db, Event{
			Type: EventLock, Principal: "alice", Severity: SeverityHigh,
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// One old event outside the window must not be counted.
	if _, err := store.Append(ctx, store.db, Event{
		Type: EventUnlock, Principal: "system", Severity: SeverityMedium,
		Timestamp: time.Now().UTC().Add(-48 * time.Hour),
	}); err != nil {
		t.Fatalf("Append old: %v", err)
	}

	stats, err := store.StatsFor(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("StatsFor: %v", err)
	}

	if stats.Total != 5 {
		t.Errorf("Total = %d, want 5", stats.Total)
	}
	if stats.BySeverity[SeverityCritical] != 3 {
		t.Errorf("CRITICAL = %d, want 3", stats.BySeverity[SeverityCritical])
	}
	if stats.BySeverity[SeverityHigh] != 2 {
		t.Errorf("HIGH = %d, want 2", stats.BySeverity[SeverityHigh])
	}
	if stats.ByType[EventFailedAttempt] != 3 {
		t.Errorf("FAILED_ATTEMPT = %d, want 3", stats.ByType[EventFailedAttempt])
	}
	if stats.ByType[EventLock] != 2 {
		t.Errorf("LOCK = %d, want 2", stats.ByType[EventLock])
	}
	if stats.ByType[EventUnlock] != 0 {
		t.Errorf("UNLOCK = %d, want 0 (outside window)", stats.ByType[EventUnlock])
	}
}

func TestResolve(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, store.db, testEvent("ev-1", EventFailedAttempt, SeverityCritical)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := store.Resolve(ctx, "ev-1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got, err := store.GetByID(ctx, "ev-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Resolved {
		t.Error("expected Resolved = true")
	}

	if err := store.Resolve(ctx, "missing"); err == nil {
		t.Error("expected error resolving unknown event")
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	old := testEvent("old", EventLock, SeverityHigh)
	old.Timestamp = time.Now().UTC().Add(-72 * time.Hour)
	if _, err := store.Append(ctx, store.db, old); err != nil {
		t.Fatalf("Append old: %v", err)
	}
	if _, err := store.Append(ctx, store.db, testEvent("new", EventUnlock, SeverityMedium)); err != nil {
		t.Fatalf("Append new: %v", err)
	}

	n, err := store.DeleteBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	if _, err := store.GetByID(ctx, "old"); err == nil {
		t.Error("expected old event to be gone")
	}
	if _, err := store.GetByID(ctx, "new"); err != nil {
		t.Errorf("expected new event to survive: %v", err)
	}
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, store.db, testEvent("ev-1", EventLock, SeverityHigh)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store, NewHub())
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/audit/?type=LOCK")
	if err != nil {
		t.Fatalf("GET /api/audit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ev-1" {
		t.Errorf("events = %v, want [ev-1]", events)
	}

	statsResp, err := http.Get(srv.URL + "/api/audit/stats?window=1h")
	if err != nil {
		t.Fatalf("GET /api/audit/stats: %v", err)
	}
	defer statsResp.Body.Close()

	var stats Stats
	if err := json.NewDecoder(statsResp.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("stats.Total = %d, want 1", stats.Total)
	}

	resolveResp, err := http.Post(srv.URL+"/api/audit/ev-1/resolve", "application/json", nil)
	if err != nil {
		t.Fatalf("POST resolve: %v", err)
	}
	defer resolveResp.Body.Close()
	if resolveResp.StatusCode != http.StatusOK {
		t.Errorf("resolve status = %d, want 200", resolveResp.StatusCode)
	}
}
