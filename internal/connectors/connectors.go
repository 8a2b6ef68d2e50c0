package connectors

import (
	"context"

	"painel/internal"
)

// MailConnector lists messages that may carry a report.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}

// Acknowledger is implemented by connectors that need to hear about messages
// once they are safely stored.
type Acknowledger interface {
	Ack(msg internal.FetchedMailMessage) error
}
