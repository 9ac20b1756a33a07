package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rpattn/clientops/internal/domain"

	"github.com/google/uuid"
)

// Dataset names an exportable table view.
type Dataset string

const (
	DatasetClients         Dataset = "clients"
	DatasetCollectors      Dataset = "collectors"
	DatasetMissingLogs     Dataset = "missing-logs"
	DatasetAlternativeIPs  Dataset = "alternative-ips"
	DatasetIgnoredLogTypes Dataset = "ignored-log-types"
	DatasetTickets         Dataset = "tickets"
	DatasetAdminPanel      Dataset = "admin-panel"
)

// Datasets lists every exportable view.
var Datasets = []Dataset{
	DatasetClients,
	DatasetCollectors,
	DatasetMissingLogs,
	DatasetAlternativeIPs,
	DatasetIgnoredLogTypes,
	DatasetTickets,
	DatasetAdminPanel,
}

// ParseDataset accepts the dataset names in any case, with "_" for "-".
func ParseDataset(raw string) (Dataset, error) {
	value := Dataset(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-"))
	for _, dataset := range Datasets {
		if value == dataset {
			return dataset, nil
		}
	}
	return "", fmt.Errorf("unknown export dataset %q", raw)
}

// RecordKind is the watch record kind behind a record dataset.
func (d Dataset) RecordKind() (domain.RecordKind, bool) {
	switch d {
	case DatasetCollectors:
		return domain.RecordKindCollector, true
	case DatasetMissingLogs:
		return domain.RecordKindMissingLog, true
	case DatasetAlternativeIPs:
		return domain.RecordKindAlternativeIP, true
	case DatasetIgnoredLogTypes:
		return domain.RecordKindIgnoredLogType, true
	default:
		return "", false
	}
}

// ClientsTable renders the client list.
func ClientsTable(clients []domain.Client) Table {
	table := Table{
		Name:    string(DatasetClients),
		Headers: []string{"Name", "Status", "Industry", "Assigned Engineer", "Contact Name", "Contact Email", "Contact Phone", "Website", "Created"},
		Rows:    make([][]string, 0, len(clients)),
	}
	for _, client := range clients {
		table.Rows = append(table.Rows, []string{
			client.Name,
			formatValue(client.Status),
			client.Industry,
			client.AssignedEngineer,
			client.ContactName,
			client.ContactEmail,
			client.ContactPhone,
			client.Website,
			formatValue(client.CreatedAt),
		})
	}
	return table
}

// RecordsTable renders one kind of watch record with its client's name.
func RecordsTable(dataset Dataset, records []domain.WatchRecord, clientNames map[uuid.UUID]string) Table {
	table := Table{Name: string(dataset), Rows: make([][]string, 0, len(records))}

	switch dataset {
	case DatasetAlternativeIPs:
		table.Headers = []string{"Client", "Primary IP", "Alternative IP", "Description", "Active", "Created"}
	case DatasetIgnoredLogTypes:
		table.Headers = []string{"Client", "Log Type", "Description", "Active", "Created"}
	case DatasetCollectors:
		table.Headers = []string{"Client", "Collector", "IP Address", "Health", "Last Seen", "Active", "Description"}
	default:
		table.Headers = []string{"Client", "Source", "IP Address", "Last Seen", "Active", "Description"}
	}

	for _, record := range records {
		client := clientNames[record.ClientID]
		var row []string
		switch dataset {
		case DatasetAlternativeIPs:
			row = []string{client, record.Name, record.Address, record.Description, formatValue(record.Active), formatValue(record.CreatedAt)}
		case DatasetIgnoredLogTypes:
			row = []string{client, record.Name, record.Description, formatValue(record.Active), formatValue(record.CreatedAt)}
		case DatasetCollectors:
			health := ""
			if record.Health != nil {
				health = string(*record.Health)
			}
			row = []string{client, record.Name, record.Address, health, formatValue(record.LastSeenAt), formatValue(record.Active), record.Description}
		default:
			row = []string{client, record.Name, record.Address, formatValue(record.LastSeenAt), formatValue(record.Active), record.Description}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// TicketsTable renders daily update tickets with their client's name.
func TicketsTable(tickets []domain.DailyUpdateTicket, clientNames map[uuid.UUID]string) Table {
	table := Table{
		Name:    string(DatasetTickets),
		Headers: []string{"Date", "Client", "Category", "Informed", "Email Subject", "Reason", "Affected", "Submitted By", "Submitted At"},
		Rows:    make([][]string, 0, len(tickets)),
	}
	for _, ticket := range tickets {
		informed := "No"
		if ticket.Informed {
			informed = "Yes"
		}
		table.Rows = append(table.Rows, []string{
			ticket.Date,
			clientNames[ticket.ClientID],
			string(ticket.Category),
			informed,
			ticket.EmailSubject,
			ticket.Reason(),
			strconv.Itoa(ticket.AffectedCount),
			ticket.SubmittedBy,
			formatValue(ticket.SubmittedAt),
		})
	}
	return table
}

// AdminPanelTable renders the daily rollup rows.
func AdminPanelTable(panel domain.AdminPanel) Table {
	table := Table{
		Name:    string(DatasetAdminPanel),
		Headers: []string{"Date", "Client", "Assigned Engineer", "Collectors", "Missing Logs", "Overall", "Collectors Reason", "Missing Logs Reason", "Last Update"},
		Rows:    make([][]string, 0, len(panel.Rows)),
	}
	for _, row := range panel.Rows {
		table.Rows = append(table.Rows, []string{
			row.Date,
			row.ClientName,
			row.AssignedEngineer,
			string(row.CollectorsStatus),
			string(row.MissingLogsStatus),
			string(row.OverallStatus),
			row.CollectorsReason,
			row.MissingLogsReason,
			formatValue(row.LastUpdate),
		})
	}
	return table
}
