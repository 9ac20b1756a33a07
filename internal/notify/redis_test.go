package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rpattn/clientops/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRedisProducerAppendsTicketEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	stream := "clientops:tickets"

	producer, err := NewRedisProducer(mr.Addr(), stream)
	if err != nil {
		t.Fatalf("new producer failed: %v", err)
	}
	t.Cleanup(func() {
		_ = producer.Close()
	})

	ticket := domain.DailyUpdateTicket{
		ID:          uuid.New(),
		ClientID:    uuid.New(),
		Category:    domain.TicketCategoryMissingLogs,
		Date:        "2026-03-10",
		Informed:    false,
		ReasonCode:  domain.ReasonOther,
		ReasonText:  "waiting on firewall change",
		SubmittedBy: "Dana",
		SubmittedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	if err := producer.PublishTicket(ctx, NewTicketEvent(ticket, "Acme")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	rows, err := client.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 stream row, got %d", len(rows))
	}

	payload, ok := rows[0].Values["payload"].(string)
	if !ok {
		t.Fatalf("expected string payload, got %T", rows[0].Values["payload"])
	}
	var event TicketEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if event.TicketID != ticket.ID || event.ClientName != "Acme" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Reason != "OTHER: waiting on firewall change" {
		t.Fatalf("unexpected reason %q", event.Reason)
	}
}

func TestNewRedisProducerFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisProducer(addr, "clientops:tickets"); err == nil {
		t.Fatalf("expected ping failure")
	}
}
