package connectors

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"

	"procure/internal"
	"procure/internal/storage"
)

// Email statuses written at fetch time. The import step moves "fetched"
// rows on to imported, skipped or failed.
const (
	StatusFetched = "fetched"
	StatusIgnored = "ignored"
)

type MailStoreService struct {
	db         *storage.DB
	rawMailDir string
}

func NewMailStoreService(db *storage.DB, rawMailDir string) *MailStoreService {
	return &MailStoreService{db: db, rawMailDir: rawMailDir}
}

// Store keeps the raw message under <dir>/<provider>/<sha256>.eml and
// records it with the given status.
func (s *MailStoreService) Store(msg internal.FetchedMailMessage, status string) (internal.EmailRow, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	dir := filepath.Join(s.rawMailDir, safeName(msg.Provider))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return internal.EmailRow{}, fmt.Errorf("ensure raw mail dir: %w", err)
	}

	rawPath := filepath.Join(dir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.EmailRow{}, err
		}
	}

	return s.db.UpsertEmail(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, status)
}

// envelopeSummary is what tracker detection needs from a raw message.
type envelopeSummary struct {
	Subject     string
	Text        string
	Attachments []string
}

func inspect(raw []byte) (envelopeSummary, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return envelopeSummary{}, err
	}
	out := envelopeSummary{Subject: env.GetHeader("Subject"), Text: env.Text}
	for _, part := range append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...) {
		if name := strings.TrimSpace(part.FileName); name != "" {
			out.Attachments = append(out.Attachments, name)
		}
	}
	return out, nil
}

func safeName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(strings.TrimSpace(input))
	if out == "" {
		out = "unknown"
	}
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
