package ingestion

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/repository"
	"github.com/rpattn/clientops/internal/watchlist"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var importNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, repository.Store, domain.Client) {
	t.Helper()
	store := repository.NewMemoryStore()
	client, err := store.Clients.Create(context.Background(), domain.NewClient(domain.ClientInput{
		Name:             "Acme",
		ContactEmail:     "soc@acme.example",
		AssignedEngineer: "Dana",
	}))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	records := watchlist.NewService(store.Clients, store.Records)
	return NewService(store.Clients, records, store.ImportLogs, WithClock(func() time.Time { return importNow })), store, client
}

func TestImportCSVAlternativeIPs(t *testing.T) {
	svc, store, client := setup(t)

	csvData := "\xEF\xBB\xBFPrimary IP,Alternative IP,Notes,Active\n" +
		"192.168.1.100,10.0.0.1,edge firewall,yes\n" +
		"\n" +
		"256.1.1.1,10.0.0.2,,\n" +
		"192.168.1.101,10.0.0.3,,no\n"

	summary, err := svc.Import(context.Background(), Request{
		ClientID: client.ID,
		Kind:     "alternative-ips",
		FileName: "ips.csv",
		Data:     strings.NewReader(csvData),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalRows != 3 || summary.Created != 2 || summary.Invalid != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	// the blank line is dropped by the csv reader, so the bad row is record 3
	if summary.Errors[0].Row != 3 || len(summary.Errors[0].Fields) != 1 || summary.Errors[0].Fields[0] != "name" {
		t.Fatalf("unexpected row error: %+v", summary.Errors[0])
	}

	records, err := store.Records.List(context.Background(), domain.RecordFilter{ClientID: &client.ID})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	byName := map[string]domain.WatchRecord{}
	for _, record := range records {
		byName[record.Name] = record
	}
	first := byName["192.168.1.100"]
	if first.Address != "10.0.0.1" || first.Description != "edge firewall" || !first.Active {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if byName["192.168.1.101"].Active {
		t.Fatalf("expected second record to be inactive")
	}
}

func TestImportXLSXCollectors(t *testing.T) {
	svc, store, client := setup(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Collector report"},
		{"Hostname", "Collector IP", "Last Seen"},
		{"col-01", "10.1.0.10", "2026-03-10 11:55:00"},
		{"col-02", "", ""},
		{"col-03", "10.1.0", ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	headerRow := 1
	summary, err := svc.Import(context.Background(), Request{
		ClientID:       client.ID,
		Kind:           "COLLECTOR",
		FileName:       "collectors.XLSX",
		HeaderRowIndex: &headerRow,
		Data:           &buf,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Created != 2 || summary.Invalid != 1 || summary.Errors[0].Fields[0] != "address" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Errors[0].Row != 5 {
		t.Fatalf("expected the sheet row of col-03, got %d", summary.Errors[0].Row)
	}

	records, err := store.Records.List(context.Background(), domain.RecordFilter{Kind: domain.RecordKindCollector})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	for _, record := range records {
		if record.Name == "col-01" && (record.LastSeenAt == nil || record.LastSeenAt.Hour() != 11) {
			t.Fatalf("expected last seen to be imported: %+v", record)
		}
	}
}

func TestImportRejectsBadRequests(t *testing.T) {
	svc, _, client := setup(t)
	ctx := context.Background()

	if _, err := svc.Import(ctx, Request{ClientID: client.ID, Kind: "MISSING_LOG", FileName: "logs.txt", Data: strings.NewReader("name\nfoo\n")}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := svc.Import(ctx, Request{ClientID: uuid.New(), Kind: "MISSING_LOG", FileName: "logs.csv", Data: strings.NewReader("name\nfoo\n")}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Import(ctx, Request{ClientID: client.ID, Kind: "widgets", FileName: "logs.csv", Data: strings.NewReader("name\nfoo\n")}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := svc.Import(ctx, Request{ClientID: client.ID, Kind: "MISSING_LOG", FileName: "logs.csv", Data: strings.NewReader("owner,team\nfoo,bar\n")}); err == nil {
		t.Fatalf("expected error when no name column exists")
	}
}

func TestPreviewReportsColumns(t *testing.T) {
	svc, _, _ := setup(t)

	result, err := svc.Preview(context.Background(), PreviewRequest{
		FileName: "types.csv",
		Limit:    1,
		Data:     strings.NewReader("Log Type,Description,Log Type\nsyslog,noisy,dup\nnetflow,,\n"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalRows != 2 || len(result.Rows) != 1 {
		t.Fatalf("unexpected rows: %+v", result)
	}
	if result.Headers[0].Name != "log_type" || result.Headers[0].Field != "name" {
		t.Fatalf("unexpected first header: %+v", result.Headers[0])
	}
	if result.Headers[2].Name != "log_type_2" || result.Headers[2].Field != "" {
		t.Fatalf("duplicate header should be suffixed and unmapped: %+v", result.Headers[2])
	}
	if len(result.HeaderCandidates) != 1 || !result.HeaderCandidates[0].Current {
		t.Fatalf("unexpected candidates: %+v", result.HeaderCandidates)
	}
}

func TestImportReportsSheetRowsBelowPreamble(t *testing.T) {
	svc, store, client := setup(t)

	csvData := "Exported from the SIEM on 2026-03-10\n" +
		"\n" +
		"Collector,Collector IP\n" +
		"col-01,10.1.0.10\n" +
		"\n" +
		"col-02,not-an-ip\n"

	headerRow := 1
	summary, err := svc.Import(context.Background(), Request{
		ClientID:       client.ID,
		Kind:           "collectors",
		FileName:       "collectors.csv",
		HeaderRowIndex: &headerRow,
		Data:           strings.NewReader(csvData),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Created != 1 || summary.Invalid != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Errors[0].Row != 4 {
		t.Fatalf("expected row 4, got %+v", summary.Errors[0])
	}

	logs, err := store.ImportLogs.List(context.Background(), domain.ImportLogFilter{ClientID: &client.ID})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].RowNumber == nil || *logs[0].RowNumber != 4 {
		t.Fatalf("unexpected logs: %+v", logs)
	}
	if logs[0].Kind != domain.RecordKindCollector || logs[0].FileName != "collectors.csv" || !logs[0].CreatedAt.Equal(importNow) {
		t.Fatalf("unexpected log entry: %+v", logs[0])
	}
	if logs[0].Message != summary.Errors[0].Message {
		t.Fatalf("log message %q should match the summary %q", logs[0].Message, summary.Errors[0].Message)
	}
}

func TestImportLogsWholeFileFailures(t *testing.T) {
	svc, _, client := setup(t)
	ctx := context.Background()

	if _, err := svc.Import(ctx, Request{ClientID: client.ID, Kind: "MISSING_LOG", FileName: "owners.csv", Data: strings.NewReader("owner,team\nfoo,bar\n")}); err == nil {
		t.Fatalf("expected error when no name column exists")
	}
	// requests rejected before the client is known are not logged
	if _, err := svc.Import(ctx, Request{ClientID: uuid.New(), Kind: "MISSING_LOG", FileName: "stray.csv", Data: strings.NewReader("name\nfoo\n")}); err == nil {
		t.Fatalf("expected error for unknown client")
	}

	logs, err := svc.Logs(ctx, domain.ImportLogFilter{})
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 || logs[0].FileName != "owners.csv" || logs[0].RowNumber != nil {
		t.Fatalf("unexpected logs: %+v", logs)
	}
	if !strings.Contains(logs[0].Message, "no name column") {
		t.Fatalf("unexpected message: %q", logs[0].Message)
	}
}
