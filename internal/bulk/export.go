package bulk

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExportContacts materializes the full contact list in the requested
// encoding ("json" or "csv"). This is a single read, not a batch: failures
// and unsupported encodings come back as a structured error payload, never
// as a Report.
func (e *Executor) ExportContacts(ctx context.Context, format string) (string, error) {
	if e.limiter != nil {
		if err := e.limiter.Acquire(ctx, "read"); err != nil {
			return "", err
		}
	}

	contacts, err := e.client.GetContacts(ctx)
	if err != nil {
		return errorPayload(err.Error())
	}

	switch format {
	case "json":
		b, err := json.MarshalIndent(contacts, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode contacts: %w", err)
		}
		return string(b), nil
	case "csv":
		var sb strings.Builder
		w := csv.NewWriter(&sb)
		if err := w.Write([]string{"ID", "First Name", "Last Name", "Username", "Phone", "Is Bot"}); err != nil {
			return "", fmt.Errorf("write csv header: %w", err)
		}
		for _, c := range contacts {
			row := []string{
				strconv.FormatInt(c.ID, 10),
				c.FirstName,
				c.LastName,
				c.Username,
				c.Phone,
				strconv.FormatBool(c.IsBot),
			}
			if err := w.Write(row); err != nil {
				return "", fmt.Errorf("write csv row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", fmt.Errorf("flush csv: %w", err)
		}
		return sb.String(), nil
	default:
		return errorPayload("Unsupported format")
	}
}

// errorPayload encodes a contained failure as a JSON object.
func errorPayload(msg string) (string, error) {
	b, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
