package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"

	"painel/internal"
	"painel/internal/storage"
)

type MailStoreService struct {
	db         *storage.DB
	rawMailDir string
}

func NewMailStoreService(db *storage.DB, rawMailDir string) *MailStoreService {
	return &MailStoreService{db: db, rawMailDir: rawMailDir}
}

// Store keeps the raw message under its sha256 and registers it as fetched.
// A message seen before keeps whatever status it already reached.
func (s *MailStoreService) Store(msg internal.FetchedMailMessage) (internal.EmailRow, error) {
	if len(msg.Raw) == 0 {
		return internal.EmailRow{}, errors.New("empty message body")
	}
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.EmailRow{}, err
	}
	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.EmailRow{}, err
		}
	}

	messageID := msg.MessageID
	if messageID == "" {
		messageID = "sha256-" + hash
	}
	received := msg.ReceivedAt
	if received == "" {
		received = time.Now().UTC().Format(time.RFC3339)
	}
	return s.db.UpsertEmail(msg.Provider, messageID, msg.Subject, msg.From, received, hash, rawPath, storage.EmailFetched)
}
