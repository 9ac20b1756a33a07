// Package seed loads demo clients into an empty store.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/repository"
)

type demoRecord struct {
	kind        domain.RecordKind
	name        string
	address     string
	description string
	lastSeenAgo time.Duration
}

type demoClient struct {
	input   domain.ClientInput
	infra   domain.Infrastructure
	baseEPS float64
	records []demoRecord
}

var demoClients = []demoClient{
	{
		input: domain.ClientInput{
			Name:             "Acme Financial",
			ContactName:      "Jordan Reyes",
			ContactEmail:     "jordan.reyes@acme-financial.example",
			ContactPhone:     "+1 555 0100",
			AssignedEngineer: "alex.morgan",
			Status:           domain.ClientStatusProduction,
			Industry:         "Finance",
			Website:          "https://acme-financial.example",
		},
		infra:   domain.Infrastructure{Collectors: 3, Servers: 42, Firewalls: 4, Endpoints: 850},
		baseEPS: 1200,
		records: []demoRecord{
			{kind: domain.RecordKindCollector, name: "acme-col-01", address: "10.10.0.11", lastSeenAgo: 2 * time.Minute},
			{kind: domain.RecordKindCollector, name: "acme-col-02", address: "10.10.0.12", lastSeenAgo: 3 * time.Hour},
			{kind: domain.RecordKindMissingLog, name: "core-fw-01", address: "10.10.1.1", description: "No syslog since firmware upgrade"},
			{kind: domain.RecordKindAlternativeIP, name: "10.10.0.11", address: "172.16.5.11", description: "NAT address"},
			{kind: domain.RecordKindIgnoredLogType, name: "windows-debug", description: "Excluded by client request"},
		},
	},
	{
		input: domain.ClientInput{
			Name:             "Northwind Health",
			ContactName:      "Sam Patel",
			ContactEmail:     "sam.patel@northwind.example",
			AssignedEngineer: "casey.lee",
			Status:           domain.ClientStatusProduction,
			Industry:         "Healthcare",
		},
		infra:   domain.Infrastructure{Collectors: 2, Servers: 18, Firewalls: 2, Endpoints: 400},
		baseEPS: 650,
		records: []demoRecord{
			{kind: domain.RecordKindCollector, name: "nw-col-01", address: "192.168.20.5", lastSeenAgo: 30 * time.Minute},
			{kind: domain.RecordKindMissingLog, name: "ehr-app-02", description: "Application audit log missing"},
		},
	},
	{
		input: domain.ClientInput{
			Name:             "Globex Retail",
			ContactName:      "Riley Chen",
			ContactEmail:     "riley.chen@globex.example",
			AssignedEngineer: "alex.morgan",
			Status:           domain.ClientStatusStaging,
			Industry:         "Retail",
			Website:          "https://globex.example",
		},
		infra:   domain.Infrastructure{Collectors: 1, Servers: 9, Firewalls: 1, Endpoints: 120},
		baseEPS: 300,
		records: []demoRecord{
			{kind: domain.RecordKindCollector, name: "globex-col-01", address: "10.30.0.5", lastSeenAgo: 5 * time.Minute},
		},
	},
	{
		input: domain.ClientInput{
			Name:             "Initech Manufacturing",
			ContactName:      "Morgan Blake",
			ContactEmail:     "morgan.blake@initech.example",
			AssignedEngineer: "casey.lee",
			Status:           domain.ClientStatusPlanning,
			Industry:         "Manufacturing",
		},
		infra: domain.Infrastructure{Servers: 4, Firewalls: 1, Endpoints: 60},
	},
}

// Load inserts the demo clients, their details and watch records when the
// client store is empty. It returns the number of clients created.
func Load(ctx context.Context, clients repository.ClientRepository, records repository.WatchRecordRepository, now time.Time) (int, error) {
	existing, err := clients.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list clients: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("[seed] store already has %d clients, skipping", len(existing))
		return 0, nil
	}

	for _, demo := range demoClients {
		client, err := clients.Create(ctx, domain.NewClient(demo.input))
		if err != nil {
			return 0, fmt.Errorf("failed to seed client %q: %w", demo.input.Name, err)
		}

		if err := clients.PutDetails(ctx, demoDetails(client, demo, now)); err != nil {
			return 0, fmt.Errorf("failed to seed details for %q: %w", client.Name, err)
		}

		for _, rec := range demo.records {
			input := domain.WatchRecordInput{
				ClientID:    client.ID,
				Kind:        rec.kind,
				Name:        rec.name,
				Address:     rec.address,
				Description: rec.description,
			}
			if rec.kind == domain.RecordKindCollector {
				seen := now.Add(-rec.lastSeenAgo)
				input.LastSeenAt = &seen
			}
			if _, err := records.Create(ctx, domain.NewWatchRecord(input)); err != nil {
				return 0, fmt.Errorf("failed to seed record %q for %q: %w", rec.name, client.Name, err)
			}
		}
	}

	log.Printf("[seed] loaded %d demo clients", len(demoClients))
	return len(demoClients), nil
}

func demoDetails(client domain.Client, demo demoClient, now time.Time) domain.ClientDetails {
	details := domain.ClientDetails{
		Client:         client,
		Infrastructure: demo.infra,
		HealthChecks: []domain.HealthCheck{
			{Name: "Log ingestion", Status: "healthy", CheckedAt: now},
			{Name: "Correlation rules", Status: "healthy", CheckedAt: now},
		},
	}
	if demo.infra.Collectors > 0 {
		details.HealthChecks = append(details.HealthChecks, domain.HealthCheck{
			Name: "Collector heartbeat", Status: "warning", Message: "one or more collectors are late", CheckedAt: now,
		})
	}

	if demo.baseEPS > 0 {
		for i := 11; i >= 0; i-- {
			// gentle sawtooth around the base rate
			variation := float64((i*37)%20-10) / 100
			details.EPS = append(details.EPS, domain.EPSSample{
				At:    now.Add(-time.Duration(i) * 5 * time.Minute),
				Value: demo.baseEPS * (1 + variation),
			})
		}
		details.Deployments = []domain.Deployment{
			{Version: "2.4.1", Environment: "production", Status: "succeeded", DeployedAt: now.AddDate(0, 0, -14)},
			{Version: "2.5.0", Environment: "staging", Status: "succeeded", DeployedAt: now.AddDate(0, 0, -2)},
		}
	}
	return details.Summarize()
}
