package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestImportLogFilterMatchesAndPages(t *testing.T) {
	clientID := uuid.New()
	entry := ImportLogEntry{ClientID: clientID, Kind: RecordKindCollector, FileName: "collectors.csv"}

	if !(ImportLogFilter{}).Matches(entry) {
		t.Fatalf("empty filter should match")
	}
	if !(ImportLogFilter{ClientID: &clientID, Kind: RecordKindCollector, FileName: "collectors.csv"}).Matches(entry) {
		t.Fatalf("full filter should match")
	}
	other := uuid.New()
	if (ImportLogFilter{ClientID: &other}).Matches(entry) || (ImportLogFilter{Kind: RecordKindMissingLog}).Matches(entry) {
		t.Fatalf("mismatching filter should not match")
	}

	if limit, offset := (ImportLogFilter{Offset: -3}).Page(); limit != DefaultImportLogLimit || offset != 0 {
		t.Fatalf("unexpected page %d/%d", limit, offset)
	}
}

func TestImportLogLessOrdersNewestThenRow(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	row := func(n int) *int { return &n }

	newer := ImportLogEntry{CreatedAt: at.Add(time.Minute), RowNumber: row(9)}
	fileLevel := ImportLogEntry{CreatedAt: at}
	early := ImportLogEntry{CreatedAt: at, RowNumber: row(2)}

	if !ImportLogLess(newer, early) {
		t.Fatalf("newer import should sort first")
	}
	if !ImportLogLess(fileLevel, early) || ImportLogLess(early, fileLevel) {
		t.Fatalf("file level entries should lead their import")
	}
}

func TestNameKeyFoldsUnicode(t *testing.T) {
	if NameKey("  ÄRZTE Verbund ") != NameKey("ärzte verbund") {
		t.Fatalf("expected non-ASCII names to fold together")
	}
	if NameKey("Acme") == NameKey("Acme Corp") {
		t.Fatalf("distinct names should not collide")
	}
}
