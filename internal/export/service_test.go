package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rpattn/clientops/internal/adminpanel"
	"github.com/rpattn/clientops/internal/clients"
	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/repository"
	"github.com/rpattn/clientops/internal/tickets"
	"github.com/rpattn/clientops/internal/watchlist"

	"github.com/xuri/excelize/v2"
)

var testNow = time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

type recordingStore struct {
	keys []string
	err  error
}

func (s *recordingStore) Put(_ context.Context, key, _ string, _ []byte) error {
	s.keys = append(s.keys, key)
	return s.err
}

func (s *recordingStore) Close() error { return nil }

func setup(t *testing.T, opts ...Option) (*Service, repository.Store) {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()

	clock := func() time.Time { return testNow }
	clientService := clients.NewService(store.Clients)
	recordService := watchlist.NewService(store.Clients, store.Records, watchlist.WithClock(clock))
	ticketService := tickets.NewService(store.Clients, store.Tickets, store.Records,
		tickets.WithLocation(time.UTC), tickets.WithClock(clock))
	panelService := adminpanel.NewService(store.Clients, store.Tickets,
		adminpanel.WithCutoff(domain.Cutoff{Hour: 16, Location: time.UTC}), adminpanel.WithClock(clock))

	for i := 0; i < 15; i++ {
		status := domain.ClientStatusProduction
		if i%3 == 0 {
			status = domain.ClientStatusPlanning
		}
		client, err := clientService.Onboard(ctx, domain.ClientInput{
			Name:             fmt.Sprintf("Client %02d", i),
			ContactEmail:     fmt.Sprintf("soc%d@example.com", i),
			AssignedEngineer: "Dana",
			Status:           status,
		})
		if err != nil {
			t.Fatalf("onboard: %v", err)
		}
		if i == 0 {
			if _, err := recordService.Create(ctx, domain.WatchRecordInput{
				ClientID: client.ID,
				Kind:     domain.RecordKindCollector,
				Name:     "col-01",
				Address:  "10.0.0.1",
			}); err != nil {
				t.Fatalf("create record: %v", err)
			}
			informed := true
			if _, err := ticketService.Submit(ctx, tickets.Input{
				ClientID:     client.ID,
				Category:     string(domain.TicketCategoryCollectors),
				Date:         "2026-03-10",
				Informed:     &informed,
				EmailSubject: "Collector down",
				SubmittedBy:  "Dana",
			}); err != nil {
				t.Fatalf("submit ticket: %v", err)
			}
		}
	}

	opts = append([]Option{WithLocation(time.UTC), WithClock(clock)}, opts...)
	return NewService(clientService, recordService, ticketService, panelService, opts...), store
}

func TestExportClientsIncludesEveryFilteredRow(t *testing.T) {
	svc, _ := setup(t)

	file, err := svc.Export(context.Background(), Request{
		Dataset: DatasetClients,
		Format:  FormatCSV,
		List:    domain.ListQuery{Status: "production", PageSize: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Name != "clients-production-2026-03-10.csv" {
		t.Fatalf("unexpected file name %q", file.Name)
	}
	if file.Rows != 10 {
		t.Fatalf("expected all 10 production clients, got %d", file.Rows)
	}
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	if len(lines) != 11 || !strings.HasPrefix(lines[0], "Name,Status") {
		t.Fatalf("unexpected csv body:\n%s", file.Body)
	}
}

func TestExportAdminPanelXLSX(t *testing.T) {
	svc, _ := setup(t)

	file, err := svc.Export(context.Background(), Request{
		Dataset: DatasetAdminPanel,
		Format:  FormatXLSX,
		List:    domain.ListQuery{Status: "OVERDUE"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Name != "admin-panel-overdue-2026-03-10.xlsx" || !strings.Contains(file.ContentType, "spreadsheetml") {
		t.Fatalf("unexpected file: %s %s", file.Name, file.ContentType)
	}

	f, err := excelize.OpenReader(bytes.NewReader(file.Body))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("admin-panel")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 16 {
		t.Fatalf("expected header plus 15 overdue rows, got %d", len(rows))
	}
	for _, row := range rows[1:] {
		if row[5] != "OVERDUE" {
			t.Fatalf("unexpected row: %v", row)
		}
	}
}

func TestExportRecordsAndTickets(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	collectors, err := svc.Table(ctx, Request{Dataset: DatasetCollectors})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(collectors.Rows) != 1 || collectors.Rows[0][0] != "Client 00" || collectors.Rows[0][3] != "UNKNOWN" {
		t.Fatalf("unexpected collectors table: %+v", collectors.Rows)
	}

	ticketTable, err := svc.Table(ctx, Request{Dataset: DatasetTickets, Date: "2026-03-10", List: domain.ListQuery{Status: "informed"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ticketTable.Rows) != 1 || ticketTable.Rows[0][3] != "Yes" || ticketTable.Rows[0][6] != "1" {
		t.Fatalf("unexpected tickets table: %+v", ticketTable.Rows)
	}
}

func TestExportArchivesCopy(t *testing.T) {
	archive := &recordingStore{}
	svc, _ := setup(t, WithArchive(archive, "/exports/"))

	if _, err := svc.Export(context.Background(), Request{Dataset: DatasetClients}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(archive.keys) != 1 || archive.keys[0] != "exports/2026-03-10/clients-all-2026-03-10.csv" {
		t.Fatalf("unexpected archive keys: %v", archive.keys)
	}

	archive.err = errors.New("bucket unavailable")
	if _, err := svc.Export(context.Background(), Request{Dataset: DatasetClients}); err != nil {
		t.Fatalf("archive failures must not fail the export: %v", err)
	}
}

func TestParseDataset(t *testing.T) {
	if d, err := ParseDataset("Missing_Logs"); err != nil || d != DatasetMissingLogs {
		t.Fatalf("unexpected dataset %q %v", d, err)
	}
	if _, err := ParseDataset("users"); err == nil {
		t.Fatalf("expected error for unknown dataset")
	}
}
