package domain

import (
	"encoding/json"
	"time"
)

// HealthCheck is one row of the client health board.
type HealthCheck struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// EPSSample is a single events-per-second measurement.
type EPSSample struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// Deployment records a rollout to one of the client's environments.
type Deployment struct {
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	Status      string    `json:"status"`
	DeployedAt  time.Time `json:"deployed_at"`
}

// Infrastructure counts the monitored assets of a client.
type Infrastructure struct {
	Collectors int `json:"collectors"`
	Servers    int `json:"servers"`
	Firewalls  int `json:"firewalls"`
	Endpoints  int `json:"endpoints"`
}

// EPSSummary aggregates an EPS series.
type EPSSummary struct {
	Latest  float64 `json:"latest"`
	Average float64 `json:"average"`
	Peak    float64 `json:"peak"`
}

// ClientDetails is the read-only drill-down view of a client.
type ClientDetails struct {
	Client         Client         `json:"client"`
	HealthChecks   []HealthCheck  `json:"health_checks"`
	EPS            []EPSSample    `json:"eps"`
	EPSSummary     EPSSummary     `json:"eps_summary"`
	Deployments    []Deployment   `json:"deployments"`
	Infrastructure Infrastructure `json:"infrastructure"`
}

// Summarize fills EPSSummary from the EPS series. Latest is the sample with the
// greatest timestamp, not the last element.
func (d ClientDetails) Summarize() ClientDetails {
	d.EPSSummary = SummarizeEPS(d.EPS)
	return d
}

// SummarizeEPS computes latest, average and peak over a series.
func SummarizeEPS(samples []EPSSample) EPSSummary {
	if len(samples) == 0 {
		return EPSSummary{}
	}
	var (
		sum     float64
		summary EPSSummary
		latest  time.Time
	)
	for i, sample := range samples {
		sum += sample.Value
		if i == 0 || sample.Value > summary.Peak {
			summary.Peak = sample.Value
		}
		if i == 0 || sample.At.After(latest) {
			latest = sample.At
			summary.Latest = sample.Value
		}
	}
	summary.Average = sum / float64(len(samples))
	return summary
}

// detailsDocument is the persisted JSON layout for the descriptive parts of a client.
type detailsDocument struct {
	HealthChecks   []HealthCheck  `json:"health_checks"`
	EPS            []EPSSample    `json:"eps"`
	Deployments    []Deployment   `json:"deployments"`
	Infrastructure Infrastructure `json:"infrastructure"`
}

// DetailsToJSON marshals everything but the client record for storage.
func (d ClientDetails) DetailsToJSON() (json.RawMessage, error) {
	doc := detailsDocument{
		HealthChecks:   d.HealthChecks,
		EPS:            d.EPS,
		Deployments:    d.Deployments,
		Infrastructure: d.Infrastructure,
	}
	if doc.HealthChecks == nil {
		doc.HealthChecks = []HealthCheck{}
	}
	if doc.EPS == nil {
		doc.EPS = []EPSSample{}
	}
	if doc.Deployments == nil {
		doc.Deployments = []Deployment{}
	}
	return json.Marshal(doc)
}

// ClientDetailsFromJSON hydrates stored details for the given client.
func ClientDetailsFromJSON(client Client, data []byte) (ClientDetails, error) {
	details := ClientDetails{
		Client:       client,
		HealthChecks: []HealthCheck{},
		EPS:          []EPSSample{},
		Deployments:  []Deployment{},
	}
	if len(data) == 0 {
		return details, nil
	}
	var doc detailsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return ClientDetails{}, err
	}
	if doc.HealthChecks != nil {
		details.HealthChecks = doc.HealthChecks
	}
	if doc.EPS != nil {
		details.EPS = doc.EPS
	}
	if doc.Deployments != nil {
		details.Deployments = doc.Deployments
	}
	details.Infrastructure = doc.Infrastructure
	return details.Summarize(), nil
}
