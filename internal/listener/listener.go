package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"procure/internal/config"
	"procure/internal/connectors"
	gmailconnector "procure/internal/connectors/gmail"
	imapconnector "procure/internal/connectors/imap"
	"procure/internal/logging"
	"procure/internal/pipeline"
	"procure/internal/render"
	"procure/internal/storage"
	"procure/internal/tracker"
)

// NewConnector builds the mail connector for a provider name.
func NewConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case connectors.ProviderGmail:
		return gmailconnector.NewConnector(ctx, cfg)
	case connectors.ProviderIMAP:
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", connectors.ErrUnsupportedProvider, provider)
	}
}

type Service struct {
	db       *storage.DB
	cfg      config.Config
	log      *logging.Logger
	importer *pipeline.ImportService
	connect  func(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error)
}

// CycleResult reports one poll of the mailbox.
type CycleResult struct {
	Fetch    connectors.FetchResult
	Handled  int
	Imported int
	Exported string
}

func NewService(db *storage.DB, cfg config.Config, log *logging.Logger) *Service {
	return &Service{
		db:       db,
		cfg:      cfg,
		log:      log,
		importer: pipeline.NewImportService(db, cfg, log),
		connect:  NewConnector,
	}
}

// Run polls until ctx is cancelled. A failed cycle is logged and retried on
// the next tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		res, err := s.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error("listener cycle: %v", err)
		} else {
			s.log.Info("listener cycle provider=%s fetched=%d stored=%d ignored=%d imported=%d export=%s",
				s.cfg.MailListenerProvider, res.Fetch.Fetched, res.Fetch.Stored, res.Fetch.Ignored, res.Imported, res.Exported)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle fetches new mail, imports tracker attachments and, when a new
// snapshot arrived, writes its order summary workbook.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	conn, err := s.connect(ctx, s.cfg, provider)
	if err != nil {
		return CycleResult{}, err
	}

	fetcher := connectors.NewFetchService(s.db, s.cfg.RawMailDir, conn, s.log)
	fetched, err := fetcher.FetchAndStore(ctx, connectors.FetchQuery{Label: s.cfg.MailListenerLabel, Max: s.cfg.MailListenerFetchMax})
	if err != nil {
		return CycleResult{}, err
	}
	res := CycleResult{Fetch: fetched}

	res.Handled, res.Imported, err = s.importer.ImportPending(s.cfg.MailListenerImportBatch, provider)
	if err != nil {
		return res, err
	}

	if s.cfg.MailListenerAutoExport && res.Imported > 0 {
		path, err := s.exportLatest()
		if err != nil {
			return res, err
		}
		res.Exported = path
	}
	return res, nil
}

func (s *Service) exportLatest() (string, error) {
	table, rec, err := s.importer.Load("")
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.cfg.OutputDir, "listener", fmt.Sprintf("order-summary-%s.xlsx", rec.ID))
	if err := render.SaveXLSX(tracker.SummaryDocument(table), path); err != nil {
		return "", fmt.Errorf("export order summary: %w", err)
	}
	_ = s.db.SetMetadata("listener.last_export", path)
	return path, nil
}
