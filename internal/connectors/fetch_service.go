package connectors

import (
	"context"

	"go.uber.org/zap"

	"painel/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
	log       *zap.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, log *zap.Logger) *FetchService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		log:       log,
	}
}

func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	acker, _ := s.connector.(Acknowledger)
	stored := 0
	for _, msg := range messages {
		row, err := s.store.Store(msg)
		if err != nil {
			return FetchResult{Fetched: len(messages), Stored: stored}, err
		}
		stored++
		s.log.Debug("message stored",
			zap.String("provider", row.Provider),
			zap.String("messageId", row.MessageID),
			zap.String("status", row.Status))
		if acker != nil {
			if err := acker.Ack(msg); err != nil {
				s.log.Warn("ack failed", zap.String("messageId", msg.MessageID), zap.Error(err))
			}
		}
	}

	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
