package connectors

import (
	"context"
	"errors"

	"procure/internal"
)

const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
)

var ErrUnsupportedProvider = errors.New("unsupported mail provider")

// FetchQuery narrows what a connector pulls from the mailbox.
type FetchQuery struct {
	Label string
	Max   int
}

type MailConnector interface {
	FetchInbox(ctx context.Context, q FetchQuery) ([]internal.FetchedMailMessage, error)
}
