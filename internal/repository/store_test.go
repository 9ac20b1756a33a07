package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpattn/clientops/internal/db"
	"github.com/rpattn/clientops/internal/domain"

	"github.com/google/uuid"
)

func newSQLiteTestStore(t *testing.T) Store {
	t.Helper()

	conn, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "clientops.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.MigrateSQLite(conn); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return NewSQLiteStore(conn)
}

func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteTestStore(t)) })
}

func sampleClient(name string) domain.Client {
	return domain.NewClient(domain.ClientInput{
		Name:             name,
		ContactEmail:     "ops@" + name + ".example",
		AssignedEngineer: "Dana",
		Industry:         "Finance",
	})
}

func TestClientRepositoryRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		acme, err := store.Clients.Create(ctx, sampleClient("acme"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := store.Clients.Create(ctx, sampleClient("beta")); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := store.Clients.GetByID(ctx, acme.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "acme" || got.Status != domain.ClientStatusPlanning {
			t.Fatalf("unexpected client: %+v", got)
		}

		if _, err := store.Clients.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		if _, err := store.Clients.Create(ctx, sampleClient("ACME")); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict for duplicate name, got %v", err)
		}

		list, err := store.Clients.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].Name != "acme" || list[1].Name != "beta" {
			t.Fatalf("unexpected list: %+v", list)
		}

		byIDs, err := store.Clients.GetByIDs(ctx, []uuid.UUID{acme.ID, uuid.New()})
		if err != nil {
			t.Fatalf("get by ids: %v", err)
		}
		if len(byIDs) != 1 || byIDs[0].ID != acme.ID {
			t.Fatalf("unexpected clients by ids: %+v", byIDs)
		}

		updated := acme.WithInput(domain.ClientInput{
			Name:             "Acme Corp",
			ContactEmail:     "soc@acme.example",
			AssignedEngineer: "Lee",
			Status:           domain.ClientStatusProduction,
		})
		stored, err := store.Clients.Update(ctx, updated)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if stored.Name != "Acme Corp" || stored.Status != domain.ClientStatusProduction {
			t.Fatalf("unexpected updated client: %+v", stored)
		}
	})
}

func TestClientDetailsDefaultsAndStorage(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		client, err := store.Clients.Create(ctx, sampleClient("acme"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		empty, err := store.Clients.GetDetails(ctx, client.ID)
		if err != nil {
			t.Fatalf("get empty details: %v", err)
		}
		if empty.HealthChecks == nil || empty.EPS == nil || empty.Deployments == nil {
			t.Fatalf("expected empty slices, got %+v", empty)
		}

		base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		err = store.Clients.PutDetails(ctx, domain.ClientDetails{
			Client:         client,
			EPS:            []domain.EPSSample{{At: base, Value: 100}, {At: base.Add(time.Minute), Value: 300}},
			Infrastructure: domain.Infrastructure{Collectors: 2, Servers: 10},
		})
		if err != nil {
			t.Fatalf("put details: %v", err)
		}

		details, err := store.Clients.GetDetails(ctx, client.ID)
		if err != nil {
			t.Fatalf("get details: %v", err)
		}
		if details.EPSSummary.Latest != 300 || details.Infrastructure.Servers != 10 {
			t.Fatalf("unexpected details: %+v", details)
		}

		missing := domain.ClientDetails{Client: domain.Client{ID: uuid.New()}}
		if err := store.Clients.PutDetails(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTicketUpsertKeepsOnePerSlot(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		client, err := store.Clients.Create(ctx, sampleClient("acme"))
		if err != nil {
			t.Fatalf("create client: %v", err)
		}

		submitted := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		first, err := store.Tickets.Upsert(ctx, domain.DailyUpdateTicket{
			ID:          uuid.New(),
			ClientID:    client.ID,
			Category:    domain.TicketCategoryCollectors,
			Date:        "2026-03-10",
			Informed:    false,
			ReasonCode:  domain.ReasonOnLeave,
			SubmittedBy: "Dana",
			SubmittedAt: submitted,
		})
		if err != nil {
			t.Fatalf("first upsert: %v", err)
		}

		snapshot := []uuid.UUID{uuid.New()}
		second, err := store.Tickets.Upsert(ctx, domain.DailyUpdateTicket{
			ID:            uuid.New(),
			ClientID:      client.ID,
			Category:      domain.TicketCategoryCollectors,
			Date:          "2026-03-10",
			Informed:      true,
			EmailSubject:  "Collectors back online",
			AffectedCount: 1,
			SnapshotIDs:   snapshot,
			SubmittedBy:   "Lee",
			SubmittedAt:   submitted.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("second upsert: %v", err)
		}
		if second.ID != first.ID {
			t.Fatalf("expected slot to keep id %s, got %s", first.ID, second.ID)
		}

		if _, err := store.Tickets.Upsert(ctx, domain.DailyUpdateTicket{
			ID:          uuid.New(),
			ClientID:    client.ID,
			Category:    domain.TicketCategoryMissingLogs,
			Date:        "2026-03-10",
			Informed:    true,
			SubmittedAt: submitted,
		}); err != nil {
			t.Fatalf("other category upsert: %v", err)
		}

		tickets, err := store.Tickets.ListByDate(ctx, "2026-03-10")
		if err != nil {
			t.Fatalf("list by date: %v", err)
		}
		if len(tickets) != 2 {
			t.Fatalf("expected 2 tickets, got %d", len(tickets))
		}

		stored, err := store.Tickets.GetByID(ctx, first.ID)
		if err != nil {
			t.Fatalf("get ticket: %v", err)
		}
		if !stored.Informed || stored.EmailSubject != "Collectors back online" || stored.SubmittedBy != "Lee" {
			t.Fatalf("expected replacement ticket, got %+v", stored)
		}
		if len(stored.SnapshotIDs) != 1 || stored.SnapshotIDs[0] != snapshot[0] {
			t.Fatalf("unexpected snapshot ids: %v", stored.SnapshotIDs)
		}

		byClient, err := store.Tickets.ListByClient(ctx, client.ID)
		if err != nil {
			t.Fatalf("list by client: %v", err)
		}
		if len(byClient) != 2 {
			t.Fatalf("expected 2 tickets for client, got %d", len(byClient))
		}

		other, err := store.Tickets.ListByDate(ctx, "2026-03-11")
		if err != nil {
			t.Fatalf("list other date: %v", err)
		}
		if len(other) != 0 {
			t.Fatalf("expected no tickets on other date, got %d", len(other))
		}
	})
}

func TestWatchRecordLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		client, err := store.Clients.Create(ctx, sampleClient("acme"))
		if err != nil {
			t.Fatalf("create client: %v", err)
		}

		seen := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
		collector, err := store.Records.Create(ctx, domain.NewWatchRecord(domain.WatchRecordInput{
			ClientID:   client.ID,
			Kind:       domain.RecordKindCollector,
			Name:       "collector-01",
			Address:    "10.0.0.5",
			LastSeenAt: &seen,
		}))
		if err != nil {
			t.Fatalf("create collector: %v", err)
		}
		if collector.LastSeenAt == nil || !collector.LastSeenAt.Equal(seen) {
			t.Fatalf("unexpected last seen: %v", collector.LastSeenAt)
		}

		if _, err := store.Records.Create(ctx, domain.NewWatchRecord(domain.WatchRecordInput{
			ClientID: client.ID,
			Kind:     domain.RecordKindIgnoredLogType,
			Name:     "DNS debug",
		})); err != nil {
			t.Fatalf("create ignored type: %v", err)
		}

		collectors, err := store.Records.List(ctx, domain.RecordFilter{ClientID: &client.ID, Kind: domain.RecordKindCollector})
		if err != nil {
			t.Fatalf("list collectors: %v", err)
		}
		if len(collectors) != 1 || collectors[0].ID != collector.ID {
			t.Fatalf("unexpected collectors: %+v", collectors)
		}

		toggled, err := store.Records.SetActive(ctx, collector.ID, false)
		if err != nil {
			t.Fatalf("set active: %v", err)
		}
		if toggled.Active {
			t.Fatalf("expected inactive record")
		}

		active := true
		activeRecords, err := store.Records.List(ctx, domain.RecordFilter{Active: &active})
		if err != nil {
			t.Fatalf("list active: %v", err)
		}
		if len(activeRecords) != 1 || activeRecords[0].Kind != domain.RecordKindIgnoredLogType {
			t.Fatalf("unexpected active records: %+v", activeRecords)
		}

		if err := store.Records.Delete(ctx, collector.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := store.Records.Delete(ctx, collector.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
		if _, err := store.Records.SetActive(ctx, collector.ID, true); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on toggle, got %v", err)
		}
	})
}

func TestClientNamesFoldBeyondASCII(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		if _, err := store.Clients.Create(ctx, sampleClient("Ärzte Verbund")); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := store.Clients.Create(ctx, sampleClient("ärzte verbund")); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict for non-ASCII case variant, got %v", err)
		}

		other, err := store.Clients.Create(ctx, sampleClient("Öl Service"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		renamed := other.WithInput(domain.ClientInput{
			Name:             "ÄRZTE VERBUND",
			ContactEmail:     other.ContactEmail,
			AssignedEngineer: other.AssignedEngineer,
		})
		if _, err := store.Clients.Update(ctx, renamed); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict on rename, got %v", err)
		}

		list, err := store.Clients.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].Name != "Ärzte Verbund" || list[1].Name != "Öl Service" {
			t.Fatalf("unexpected list: %+v", list)
		}
	})
}

func TestImportLogRecordAndList(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		acme, err := store.Clients.Create(ctx, sampleClient("acme"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		beta, err := store.Clients.Create(ctx, sampleClient("beta"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		earlier := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
		later := earlier.Add(24 * time.Hour)
		row := func(n int) *int { return &n }
		for _, entry := range []domain.ImportLogEntry{
			{ClientID: acme.ID, Kind: domain.RecordKindCollector, FileName: "old.csv", RowNumber: row(3), Message: "address is invalid", CreatedAt: earlier},
			{ClientID: acme.ID, Kind: domain.RecordKindCollector, FileName: "new.csv", RowNumber: row(7), Message: "name is required", CreatedAt: later},
			{ClientID: acme.ID, Kind: domain.RecordKindCollector, FileName: "new.csv", RowNumber: row(4), Message: "name is required", CreatedAt: later},
			{ClientID: beta.ID, Kind: domain.RecordKindMissingLog, FileName: "logs.csv", Message: "no name column", CreatedAt: later},
		} {
			if err := store.ImportLogs.Record(ctx, entry); err != nil {
				t.Fatalf("record: %v", err)
			}
		}

		logs, err := store.ImportLogs.List(ctx, domain.ImportLogFilter{ClientID: &acme.ID, Kind: domain.RecordKindCollector})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(logs) != 3 {
			t.Fatalf("expected 3 logs, got %+v", logs)
		}
		if logs[0].FileName != "new.csv" || *logs[0].RowNumber != 4 || *logs[1].RowNumber != 7 || logs[2].FileName != "old.csv" {
			t.Fatalf("unexpected order: %+v", logs)
		}
		if logs[0].ID == uuid.Nil || !logs[0].CreatedAt.Equal(later) {
			t.Fatalf("expected id and timestamp to be kept: %+v", logs[0])
		}

		page, err := store.ImportLogs.List(ctx, domain.ImportLogFilter{ClientID: &acme.ID, Limit: 1, Offset: 2})
		if err != nil {
			t.Fatalf("list page: %v", err)
		}
		if len(page) != 1 || page[0].FileName != "old.csv" {
			t.Fatalf("unexpected page: %+v", page)
		}

		betaLogs, err := store.ImportLogs.List(ctx, domain.ImportLogFilter{FileName: "logs.csv"})
		if err != nil {
			t.Fatalf("list by file: %v", err)
		}
		if len(betaLogs) != 1 || betaLogs[0].ClientID != beta.ID || betaLogs[0].RowNumber != nil {
			t.Fatalf("unexpected file logs: %+v", betaLogs)
		}
	})
}
