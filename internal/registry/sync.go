package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"painel/internal/config"
	"painel/internal/storage"
)

const lastPullKey = "registry.last_pull"

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
	log    *zap.Logger
}

func NewSyncService(db *storage.DB, cfg config.Config, log *zap.Logger) *SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg, log: log}
}

// Pull replaces the local registry with the remote copy once it parses and
// carries the name column. Returns the number of records.
func (s *SyncService) Pull(ctx context.Context) (int, error) {
	blob, err := s.client.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	reg, err := Parse(blob, s.cfg.RegistryNameColumn)
	if err != nil {
		return 0, fmt.Errorf("remote registry rejected: %w", err)
	}
	if dups := reg.Duplicates(); len(dups) > 0 {
		s.log.Warn("registry has duplicate institution names", zap.Strings("names", dups))
	}

	if err := writeFileAtomic(s.cfg.DadosPath, blob); err != nil {
		return 0, err
	}
	if s.db != nil {
		if err := s.db.SetMetadata(lastPullKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
			s.log.Warn("record registry pull", zap.Error(err))
		}
	}
	s.log.Info("registry pulled", zap.String("path", s.cfg.DadosPath), zap.Int("records", len(reg.Records)))
	return len(reg.Records), nil
}

func writeFileAtomic(path string, blob []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
