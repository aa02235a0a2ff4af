package pipeline

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"procure/internal"
	"procure/internal/config"
	"procure/internal/logging"
	"procure/internal/storage"
	"procure/internal/util"
)

var ErrNoSnapshot = errors.New("no tracker snapshot imported yet")

type ImportService struct {
	db     *storage.DB
	cfg    config.Config
	reader Reader
	log    *logging.Logger
	now    func() time.Time
}

func NewImportService(db *storage.DB, cfg config.Config, log *logging.Logger) *ImportService {
	return &ImportService{db: db, cfg: cfg, reader: NewReader(cfg), log: log, now: time.Now}
}

type ImportResult struct {
	Import internal.ImportRecord
	// Reused is set when identical content had already been imported.
	Reused bool
}

func (s *ImportService) ImportFile(path, sheet string) (ImportResult, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportBytes(filepath.Base(path), blob, sheet, nil)
}

// ImportBytes validates the content as a tracker table and stores its raw
// snapshot. Content already stored under the same sheet is not stored twice.
func (s *ImportService) ImportBytes(name string, content []byte, sheet string, emailID *int) (ImportResult, error) {
	start := time.Now()
	raw, err := s.reader.Read(name, content, sheet)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read %s: %w", name, err)
	}
	table, err := NormalizeTable(raw, s.cfg.Columns, s.now())
	if err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", name, err)
	}
	if len(table.Clamped) > 0 {
		s.log.Warn("%s: negative quantities read as 0 on rows %v", name, table.Clamped)
	}

	hash := contentHash(content, raw.Sheet)
	existing, err := s.db.FindImportByHash(hash)
	if err != nil {
		return ImportResult{}, err
	}
	if existing != nil {
		s.log.Info("import %s already stored as %s", name, existing.ID)
		return ImportResult{Import: *existing, Reused: true}, nil
	}

	if raw.Source == SourceXLSX || raw.Source == SourceCSV || raw.Source == SourceHTML {
		raw.Source = raw.Source + ":" + name
	}
	rec, err := s.db.SaveImport(raw, hash, emailID)
	if err != nil {
		return ImportResult{}, err
	}

	_ = s.db.InsertRun(traceID(), rec.ID, emailID,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		map[string]int{"rows": len(raw.Rows), "items": len(table.Items), "columns": len(table.Present)})
	s.log.Info("imported %s: %d rows, %d line items (import %s)", name, len(raw.Rows), len(table.Items), rec.ID)
	return ImportResult{Import: rec}, nil
}

type EmailImportResult struct {
	EmailID  int
	Status   string
	ImportID string
}

func (s *ImportService) ImportByProviderMessageID(provider, messageID string) (EmailImportResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return EmailImportResult{}, err
	}
	return s.ImportEmail(email)
}

// ImportPending imports fetched emails and returns how many produced a snapshot.
func (s *ImportService) ImportPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	handled, imported := 0, 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ImportEmail(email)
		if err != nil {
			return handled, imported, err
		}
		handled++
		if res.ImportID != "" {
			imported++
		}
	}
	return handled, imported, nil
}

func (s *ImportService) ImportEmail(email internal.EmailRow) (EmailImportResult, error) {
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return EmailImportResult{}, err
	}

	att, err := s.reader.FindEmailAttachment(raw)
	detect := DetectTrackerEmail(util.FirstNonEmpty(att.Subject, email.Subject), "", att.AttachmentNames)
	if errors.Is(err, ErrNoAttachment) || !detect.IsTracker {
		s.log.Info("email %d skipped: %s (score %.2f)", email.ID, detect.Reason, detect.Score)
		if err := s.db.UpdateEmailStatus(email.ID, "skipped"); err != nil {
			return EmailImportResult{}, err
		}
		return EmailImportResult{EmailID: email.ID, Status: "skipped"}, nil
	}
	if err != nil {
		return EmailImportResult{}, err
	}

	id := email.ID
	res, err := s.ImportBytes(att.FileName, att.Content, "", &id)
	if err != nil {
		s.log.Warn("email %d attachment %s rejected: %v", email.ID, att.FileName, err)
		if uerr := s.db.UpdateEmailStatus(email.ID, "failed"); uerr != nil {
			return EmailImportResult{}, uerr
		}
		return EmailImportResult{EmailID: email.ID, Status: "failed"}, nil
	}
	if err := s.db.UpdateEmailStatus(email.ID, "imported"); err != nil {
		return EmailImportResult{}, err
	}
	return EmailImportResult{EmailID: email.ID, Status: "imported", ImportID: res.Import.ID}, nil
}

// Load normalizes a stored snapshot; an empty id selects the latest import.
func (s *ImportService) Load(importID string) (internal.Table, internal.ImportRecord, error) {
	var rec *internal.ImportRecord
	var err error
	if importID == "" {
		rec, err = s.db.LatestImport()
	} else {
		rec, err = s.db.GetImport(importID)
	}
	if err != nil {
		return internal.Table{}, internal.ImportRecord{}, err
	}
	if rec == nil {
		if importID == "" {
			return internal.Table{}, internal.ImportRecord{}, ErrNoSnapshot
		}
		return internal.Table{}, internal.ImportRecord{}, fmt.Errorf("%w: %s", ErrNoSnapshot, importID)
	}

	raw, err := s.db.LoadRawTable(rec.ID)
	if err != nil {
		return internal.Table{}, internal.ImportRecord{}, err
	}
	table, err := NormalizeTable(raw, s.cfg.Columns, s.now())
	if err != nil {
		return internal.Table{}, internal.ImportRecord{}, err
	}
	return table, *rec, nil
}

func contentHash(content []byte, sheet string) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(sheet))
	return hex.EncodeToString(h.Sum(nil))
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
