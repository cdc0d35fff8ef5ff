package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"telegram-bridge/internal/telegram"
)

func TestExportContactsJSON(t *testing.T) {
	exec := newTestExecutor(newFakeClient(), testRegistry())

	out, err := exec.ExportContacts(context.Background(), "json")
	if err != nil {
		t.Fatal(err)
	}

	var contacts []telegram.Contact
	if err := json.Unmarshal([]byte(out), &contacts); err != nil {
		t.Fatalf("invalid json export: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(contacts))
	}
	if contacts[0].FirstName != "Alice" || !contacts[1].IsBot {
		t.Fatalf("contact fields lost: %+v", contacts)
	}
}

func TestExportContactsCSV(t *testing.T) {
	exec := newTestExecutor(newFakeClient(), testRegistry())

	out, err := exec.ExportContacts(context.Background(), "csv")
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "ID,First Name,Last Name,Username,Phone,Is Bot" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1,Alice") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "true") {
		t.Fatalf("bot flag missing in %q", lines[2])
	}
}

func TestExportContactsUnsupportedFormat(t *testing.T) {
	exec := newTestExecutor(newFakeClient(), testRegistry())

	out, err := exec.ExportContacts(context.Background(), "xml")
	if err != nil {
		t.Fatal(err)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("error payload must be json: %v", err)
	}
	if payload["error"] != "Unsupported format" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

type failingContactsClient struct {
	*fakeClient
}

func (f failingContactsClient) GetContacts(context.Context) ([]telegram.Contact, error) {
	return nil, errors.New("connection reset")
}

func TestExportContactsClientErrorContained(t *testing.T) {
	exec := newTestExecutor(failingContactsClient{newFakeClient()}, testRegistry())

	out, err := exec.ExportContacts(context.Background(), "json")
	if err != nil {
		t.Fatal(err)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("error payload must be json: %v", err)
	}
	if payload["error"] != "connection reset" {
		t.Fatalf("unexpected payload %v", payload)
	}
}
