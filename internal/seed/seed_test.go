package seed

import (
	"context"
	"testing"
	"time"

	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/repository"
)

func TestLoadSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	created, err := Load(ctx, store.Clients, store.Records, now)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if created != len(demoClients) {
		t.Fatalf("expected %d clients, got %d", len(demoClients), created)
	}

	clients, err := store.Clients.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(clients) != len(demoClients) {
		t.Fatalf("expected %d stored clients, got %d", len(demoClients), len(clients))
	}

	collectors, err := store.Records.List(ctx, domain.RecordFilter{Kind: domain.RecordKindCollector})
	if err != nil {
		t.Fatalf("List records failed: %v", err)
	}
	if len(collectors) != 4 {
		t.Fatalf("expected 4 collectors, got %d", len(collectors))
	}
	for _, collector := range collectors {
		if collector.LastSeenAt == nil {
			t.Fatalf("collector %s missing last seen", collector.Name)
		}
	}

	for _, client := range clients {
		details, err := store.Clients.GetDetails(ctx, client.ID)
		if err != nil {
			t.Fatalf("GetDetails failed: %v", err)
		}
		if client.Name == "Acme Financial" {
			if len(details.EPS) != 12 || details.EPSSummary.Latest == 0 {
				t.Fatalf("unexpected EPS details: %+v", details.EPSSummary)
			}
			if details.Infrastructure.Collectors != 3 {
				t.Fatalf("unexpected infrastructure: %+v", details.Infrastructure)
			}
		}
	}
}

func TestLoadSkipsPopulatedStore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	now := time.Now()

	if _, err := Load(ctx, store.Clients, store.Records, now); err != nil {
		t.Fatalf("first Load failed: %v", err)
	}
	created, err := Load(ctx, store.Clients, store.Records, now)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected no clients on second load, got %d", created)
	}

	clients, _ := store.Clients.List(ctx)
	if len(clients) != len(demoClients) {
		t.Fatalf("expected %d clients, got %d", len(demoClients), len(clients))
	}
}
