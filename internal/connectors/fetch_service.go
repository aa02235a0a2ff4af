package connectors

import (
	"context"

	"procure/internal/logging"
	"procure/internal/pipeline"
	"procure/internal/storage"
	"procure/internal/util"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
	log       *logging.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
	// Known counts messages already stored with identical content.
	Known   int
	Ignored int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, log *logging.Logger) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		log:       log,
	}
}

// FetchAndStore pulls messages and stores them. Messages that do not look
// like tracker mail are kept with status "ignored" so they are not re-read
// by the import step.
func (s *FetchService) FetchAndStore(ctx context.Context, q FetchQuery) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, q)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		existing, err := s.db.GetEmailByProviderMessageID(msg.Provider, msg.MessageID)
		if err != nil {
			return res, err
		}

		status := StatusFetched
		env, err := inspect(msg.Raw)
		if err != nil {
			s.log.Warn("message %s: unreadable envelope: %v", msg.MessageID, err)
			status = StatusIgnored
		} else {
			detect := pipeline.DetectTrackerEmail(util.FirstNonEmpty(env.Subject, msg.Subject), env.Text, env.Attachments)
			if !detect.IsTracker {
				status = StatusIgnored
			}
		}

		row, err := s.store.Store(msg, status)
		if err != nil {
			return res, err
		}
		switch {
		case existing != nil && existing.Hash == row.Hash:
			res.Known++
		case row.Status == StatusIgnored:
			res.Ignored++
		default:
			res.Stored++
		}
	}
	return res, nil
}
