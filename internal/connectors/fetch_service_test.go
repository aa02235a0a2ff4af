package connectors

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jhillyerd/enmime"

	"procure/internal"
	"procure/internal/storage"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
	queries  []FetchQuery
}

func (f *fakeConnector) FetchInbox(_ context.Context, q FetchQuery) ([]internal.FetchedMailMessage, error) {
	f.queries = append(f.queries, q)
	return f.messages, nil
}

func buildMail(t *testing.T, subject, attachment string) []byte {
	t.Helper()
	b := enmime.Builder().
		From("Stores", "stores@example.com").
		To("Planning", "planning@example.com").
		Subject(subject).
		Text([]byte("hello"))
	if attachment != "" {
		b = b.AddAttachment([]byte("Order No.,Part No.,Order Qty,GRN Qty\n"), "text/csv", attachment)
	}
	part, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFetchAndStoreClassifiesMessages(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "mail.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	conn := &fakeConnector{messages: []internal.FetchedMailMessage{
		{Provider: ProviderIMAP, MessageID: "<1@test>", Subject: "PO tracker", Raw: buildMail(t, "PO tracker", "tracker.csv")},
		{Provider: ProviderIMAP, MessageID: "<2@test>", Subject: "Lunch", Raw: buildMail(t, "Lunch", "")},
	}}
	svc := NewFetchService(db, filepath.Join(dir, "raw"), conn, nil)

	res, err := svc.FetchAndStore(context.Background(), FetchQuery{Label: "INBOX", Max: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.Fetched != 2 || res.Stored != 1 || res.Ignored != 1 || res.Known != 0 {
		t.Fatalf("res=%+v", res)
	}
	if conn.queries[0].Label != "INBOX" || conn.queries[0].Max != 10 {
		t.Fatalf("query=%+v", conn.queries[0])
	}

	tracker, err := db.MustEmailByProviderMessageID(ProviderIMAP, "<1@test>")
	if err != nil {
		t.Fatal(err)
	}
	if tracker.Status != StatusFetched {
		t.Fatalf("status=%q", tracker.Status)
	}
	if _, err := os.Stat(tracker.RawRef); err != nil {
		t.Fatalf("raw not written: %v", err)
	}
	if filepath.Base(filepath.Dir(tracker.RawRef)) != "imap" {
		t.Fatalf("rawRef=%q", tracker.RawRef)
	}

	lunch, err := db.MustEmailByProviderMessageID(ProviderIMAP, "<2@test>")
	if err != nil {
		t.Fatal(err)
	}
	if lunch.Status != StatusIgnored {
		t.Fatalf("status=%q", lunch.Status)
	}

	again, err := svc.FetchAndStore(context.Background(), FetchQuery{Label: "INBOX", Max: 10})
	if err != nil {
		t.Fatal(err)
	}
	if again.Known != 2 || again.Stored != 0 {
		t.Fatalf("again=%+v", again)
	}
}

func TestSafeName(t *testing.T) {
	if got := safeName("<a/b:c>"); got != "_a_b_c_" {
		t.Fatalf("got %q", got)
	}
	if got := safeName("  "); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}
