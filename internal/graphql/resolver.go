package graphql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpattn/clientops/internal/adminpanel"
	"github.com/rpattn/clientops/internal/clientloader"
	"github.com/rpattn/clientops/internal/clients"
	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/middleware"
	"github.com/rpattn/clientops/internal/repository"
	"github.com/rpattn/clientops/internal/tickets"
	"github.com/rpattn/clientops/internal/watchlist"

	"github.com/google/uuid"
)

// Resolver handles GraphQL queries
type Resolver struct {
	clients *clients.Service
	records *watchlist.Service
	tickets *tickets.Service
	panel   *adminpanel.Service
}

// NewResolver creates a new GraphQL resolver
func NewResolver(
	clientService *clients.Service,
	recordService *watchlist.Service,
	ticketService *tickets.Service,
	panelService *adminpanel.Service,
) *Resolver {
	return &Resolver{
		clients: clientService,
		records: recordService,
		tickets: ticketService,
		panel:   panelService,
	}
}

// Resolvers maps every object type of the schema to its field resolver.
func (r *Resolver) Resolvers() map[string]ObjectResolver {
	return map[string]ObjectResolver{
		"Query":             r.query,
		"Client":            r.client,
		"ClientDetails":     clientDetails,
		"HealthCheck":       healthCheck,
		"EPSSample":         epsSample,
		"EPSSummary":        epsSummary,
		"Deployment":        deployment,
		"Infrastructure":    infrastructure,
		"Ticket":            r.ticket,
		"AdminPanel":        adminPanel,
		"AdminPanelRow":     r.adminPanelRow,
		"AdminPanelSummary": adminPanelSummary,
		"WatchRecord":       r.watchRecord,
	}
}

// Query resolvers

func (r *Resolver) query(ctx context.Context, _ any, field string, args map[string]any) (any, error) {
	switch field {
	case "clients":
		list, err := r.clients.Filter(ctx, domain.ListQuery{
			Search:  stringArg(args, "search"),
			Status:  stringArg(args, "status"),
			SortBy:  stringArg(args, "sortBy"),
			SortDir: domain.ParseSortDirection(stringArg(args, "sortDir")),
		})
		if err != nil {
			return nil, err
		}
		return toList(list), nil

	case "client":
		id, err := uuid.Parse(stringArg(args, "id"))
		if err != nil {
			return nil, fmt.Errorf("invalid client ID: %w", err)
		}
		client, err := r.clients.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return client, nil

	case "adminPanel":
		return r.panel.Build(ctx, stringArg(args, "date"), stringArg(args, "status"))

	case "tickets":
		clientID, err := optionalUUIDArg(args, "clientId")
		if err != nil {
			return nil, err
		}
		list, err := r.tickets.List(ctx, stringArg(args, "date"), clientID)
		if err != nil {
			return nil, err
		}
		return toList(list), nil

	case "records":
		clientID, err := optionalUUIDArg(args, "clientId")
		if err != nil {
			return nil, err
		}
		filter := domain.RecordFilter{ClientID: clientID}
		if kind := stringArg(args, "kind"); kind != "" {
			filter.Kind = domain.ParseRecordKind(kind)
		}
		list, err := r.records.Filter(ctx, watchlist.Query{
			Filter: filter,
			List:   domain.ListQuery{Search: stringArg(args, "search"), Status: stringArg(args, "status")},
		})
		if err != nil {
			return nil, err
		}
		return toList(list), nil
	}
	return nil, unknownField("Query", field)
}

// Object resolvers

func (r *Resolver) client(ctx context.Context, obj any, field string, args map[string]any) (any, error) {
	c := obj.(domain.Client)
	switch field {
	case "id":
		return c.ID.String(), nil
	case "name":
		return c.Name, nil
	case "contactName":
		return c.ContactName, nil
	case "contactEmail":
		return c.ContactEmail, nil
	case "contactPhone":
		return c.ContactPhone, nil
	case "assignedEngineer":
		return c.AssignedEngineer, nil
	case "status":
		return string(c.Status), nil
	case "industry":
		return c.Industry, nil
	case "website":
		return c.Website, nil
	case "createdAt":
		return formatTime(c.CreatedAt), nil
	case "updatedAt":
		return formatTime(c.UpdatedAt), nil
	case "details":
		details, err := r.clients.Details(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		return details.Summarize(), nil
	case "records":
		filter := domain.RecordFilter{ClientID: &c.ID}
		if kind := stringArg(args, "kind"); kind != "" {
			filter.Kind = domain.ParseRecordKind(kind)
		}
		list, err := r.records.Filter(ctx, watchlist.Query{Filter: filter})
		if err != nil {
			return nil, err
		}
		return toList(list), nil
	}
	return nil, unknownField("Client", field)
}

func clientDetails(_ context.Context, obj any, field string, _ map[string]any) (any, error) {
	d := obj.(domain.ClientDetails)
	switch field {
	case "healthChecks":
		return toList(d.HealthChecks), nil
	case "epsSamples":
		return toList(d.EPS), nil
	case "epsSummary":
		return d.EPSSummary, nil
	case "deployments":
		return toList(d.Deployments), nil
	case "infrastructure":
		return d.Infrastructure, nil
	}
	return nil, unknownField("ClientDetails", field)
}

func healthCheck(_ context.Context, obj any, field string, _ map[string]any) (any, error) {
	h := obj.(domain.HealthCheck)
	switch field {
	case "name":
		return h.Name, nil
	case "status":
		return h.Status, nil
	case "message":
		return optionalString(h.Message), nil
	case "checkedAt":
		return formatTime(h.CheckedAt), nil
	}
	return nil, unknownField("HealthCheck", field)
}

func epsSample(_ context.Context, obj any, field string, _ map[string]any) (any, error) {
	s := obj.(domain.EPSSample)
	switch field {
	case "at":
		return formatTime(s.At), nil
	case "value":
		return s.Value, nil
	}
	return nil, unknownField("EPSSample", field)
}

func epsSummary(_ context.Context, obj any, field string, _ map[string]any) (any, error) {
	s := obj.(domain.EPSSummary)
	switch field {
	case "latest":
		return s.Latest, nil
	case "average":
		return s.Average, nil
	case "peak":
		return s.Peak, nil
	}
	return nil, unknownField("EPSSummary", field)
}

func deployment(_ context.Context, obj any, field string, _ map[string]any) (any, error) {
	d := obj.(domain.Deployment)
	switch field {
	case "version":
		return d.Version, nil
	case "environment":
		return d.Environment, nil
	case "status":
		return d.Status, nil
	case "deployedAt":
		return formatTime(d.DeployedAt), nil
	}
	return nil, unknownField("Deployment", field)
}

func infrastructure(_ context.Context, obj any, field string, _ map[string]any) (any, error) {
	i := obj.(domain.Infrastructure)
	switch field {
	case "collectors":
		return i.Collectors, nil
	case "servers":
		return i.Servers, nil
	case "firewalls":
		return i.Firewalls, nil
	case "endpoints":
		return i.Endpoints, nil
	}
	return nil, unknownField("Infrastructure", field)
}

func (r *Resolver) ticket(ctx context.Context, obj any, field string, _ map[string]any) (any, error) {
	t := obj.(domain.DailyUpdateTicket)
	switch field {
	case "id":
		return t.ID.String(), nil
	case "clientId":
		return t.ClientID.String(), nil
	case "client":
		return r.loadClient(ctx, t.ClientID)
	case "category":
		return string(t.Category), nil
	case "date":
		return t.Date, nil
	case "informed":
		return t.Informed, nil
	case "emailSubject":
		return optionalString(t.EmailSubject), nil
	case "reasonCode":
		return optionalString(string(t.ReasonCode)), nil
	case "reasonText":
		return optionalString(t.ReasonText), nil
	case "reason":
		return optionalString(t.Reason()), nil
	case "affectedCount":
		return t.AffectedCount, nil
	case "snapshotIds":
		ids := make([]any, len(t.SnapshotIDs))
		for i, id := range t.SnapshotIDs {
			ids[i] = id.String()
		}
		return ids, nil
	case "submittedBy":
		return t.SubmittedBy, nil
	case "submittedAt":
		return formatTime(t.SubmittedAt), nil
	}
	return nil, unknownField("Ticket", field)
}

func adminPanel(_ context.Context, obj any, field string, _ map[string]any) (any, error) {
	p := obj.(domain.AdminPanel)
	switch field {
	case "date":
		return p.Date, nil
	case "cutoff":
		return p.Cutoff, nil
	case "pastCutoff":
		return p.PastCutoff, nil
	case "generatedAt":
		return formatTime(p.GeneratedAt), nil
	case "rows":
		return toList(p.Rows), nil
	case "summary":
		return p.Summary, nil
	}
	return nil, unknownField("AdminPanel", field)
}

func (r *Resolver) adminPanelRow(ctx context.Context, obj any, field string, _ map[string]any) (any, error) {
	row := obj.(domain.AdminPanelRow)
	switch field {
	case "clientId":
		return row.ClientID.String(), nil
	case "client":
		return r.loadClient(ctx, row.ClientID)
	case "clientName":
		return row.ClientName, nil
	case "assignedEngineer":
		return row.AssignedEngineer, nil
	case "date":
		return row.Date, nil
	case "collectorsStatus":
		return string(row.CollectorsStatus), nil
	case "missingLogsStatus":
		return string(row.MissingLogsStatus), nil
	case "overallStatus":
		return string(row.OverallStatus), nil
	case "collectorsReason":
		return optionalString(row.CollectorsReason), nil
	case "missingLogsReason":
		return optionalString(row.MissingLogsReason), nil
	case "lastUpdate":
		if row.LastUpdate == nil {
			return nil, nil
		}
		return formatTime(*row.LastUpdate), nil
	}
	return nil, unknownField("AdminPanelRow", field)
}

func adminPanelSummary(_ context.Context, obj any, field string, _ map[string]any) (any, error) {
	s := obj.(domain.AdminPanelSummary)
	switch field {
	case "total":
		return s.Total, nil
	case "done":
		return s.Done, nil
	case "pending":
		return s.Pending, nil
	case "overdue":
		return s.Overdue, nil
	case "notInformed":
		return s.NotInformed, nil
	}
	return nil, unknownField("AdminPanelSummary", field)
}

func (r *Resolver) watchRecord(ctx context.Context, obj any, field string, _ map[string]any) (any, error) {
	rec := obj.(domain.WatchRecord)
	switch field {
	case "id":
		return rec.ID.String(), nil
	case "clientId":
		return rec.ClientID.String(), nil
	case "client":
		return r.loadClient(ctx, rec.ClientID)
	case "kind":
		return string(rec.Kind), nil
	case "name":
		return rec.Name, nil
	case "address":
		return optionalString(rec.Address), nil
	case "description":
		return optionalString(rec.Description), nil
	case "active":
		return rec.Active, nil
	case "lastSeenAt":
		if rec.LastSeenAt == nil {
			return nil, nil
		}
		return formatTime(*rec.LastSeenAt), nil
	case "health":
		if rec.Health == nil {
			return nil, nil
		}
		return string(*rec.Health), nil
	case "createdAt":
		return formatTime(rec.CreatedAt), nil
	case "updatedAt":
		return formatTime(rec.UpdatedAt), nil
	}
	return nil, unknownField("WatchRecord", field)
}

// loadClient goes through the request's dataloader when one is attached.
func (r *Resolver) loadClient(ctx context.Context, id uuid.UUID) (any, error) {
	if loader := middleware.ClientLoaderFromContext(ctx); loader != nil {
		client, ok, err := clientloader.Load(ctx, loader, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return client, nil
	}

	client, err := r.clients.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// helpers

func toList[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func stringArg(args map[string]any, name string) string {
	if value, ok := args[name].(string); ok {
		return value
	}
	return ""
}

func optionalUUIDArg(args map[string]any, name string) (*uuid.UUID, error) {
	raw := stringArg(args, name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &id, nil
}

// optionalString maps "" to null.
func optionalString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func unknownField(typeName, field string) error {
	return fmt.Errorf("unknown field %s.%s", typeName, field)
}
