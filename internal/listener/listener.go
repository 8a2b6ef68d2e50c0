package listener

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"painel/internal/config"
	"painel/internal/connectors"
	dirconnector "painel/internal/connectors/dir"
	gmailconnector "painel/internal/connectors/gmail"
	imapconnector "painel/internal/connectors/imap"
	"painel/internal/pipeline"
	"painel/internal/storage"
)

const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
	ProviderDir   = "dir"

	settleDelay = 300 * time.Millisecond
)

var droppedReportExts = map[string]bool{".csv": true, ".tsv": true, ".txt": true, ".xlsx": true, ".html": true, ".htm": true}

type Service struct {
	db        *storage.DB
	cfg       config.Config
	log       *zap.Logger
	processor *pipeline.ProcessingService
	connector connectors.MailConnector
}

func NewService(db *storage.DB, cfg config.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:        db,
		cfg:       cfg,
		log:       log,
		processor: pipeline.NewProcessingService(db, cfg, log),
	}
}

func (s *Service) provider() string {
	return strings.ToLower(strings.TrimSpace(s.cfg.ListenerProvider))
}

// Run polls the mailbox every interval, or watches the drop folder for the
// dir provider, until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.connector == nil {
		c, err := NewConnector(s.cfg, s.provider())
		if err != nil {
			return err
		}
		s.connector = c
	}
	if s.provider() == ProviderDir {
		return s.watch(ctx)
	}
	return s.poll(ctx)
}

func (s *Service) interval() time.Duration {
	sec := s.cfg.ListenerIntervalSec
	if sec <= 0 {
		sec = 300
	}
	return time.Duration(sec) * time.Second
}

func (s *Service) poll(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval()):
		}
	}
}

func (s *Service) watch(ctx context.Context) error {
	dir := s.cfg.ListenerWatchDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.log.Info("watching drop folder", zap.String("dir", dir))

	cycle := func() {
		if err := s.runCycle(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("listener cycle failed", zap.Error(err))
		}
	}
	cycle()

	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				settle = time.After(settleDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", zap.Error(err))
		case <-settle:
			settle = nil
			cycle()
		case <-ticker.C:
			cycle()
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := s.provider()
	if provider == ProviderDir {
		if err := s.processDroppedReports(ctx); err != nil {
			return err
		}
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, s.connector, s.log)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.ListenerLabel, s.cfg.ListenerFetchMax)
	if err != nil {
		return err
	}

	processed, failed, err := s.processor.ProcessPending(ctx, s.cfg.ListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	s.log.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", fetchResult.Fetched),
		zap.Int("stored", fetchResult.Stored),
		zap.Int("processed", processed),
		zap.Int("failed", failed))
	return nil
}

// processDroppedReports runs the pipeline on report files placed directly in
// the watch folder and moves each one to done/ or failed/.
func (s *Service) processDroppedReports(ctx context.Context) error {
	dir := s.cfg.ListenerWatchDir
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if droppedReportExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		opts := pipeline.OptionsFromConfig(s.cfg)
		opts.ReportPath = path
		opts.Source = ProviderDir
		opts.InputRef = path
		if s.cfg.ListenerExportXLSX {
			opts.WorkbookPath = filepath.Join(s.cfg.OutputDir, strings.TrimSuffix(name, filepath.Ext(name))+".xlsx")
		}

		dest := "done"
		res, err := s.processor.Run(ctx, opts)
		if err != nil {
			dest = "failed"
			s.log.Error("dropped report failed", zap.String("path", path), zap.Error(err))
		} else {
			s.log.Info("dropped report processed",
				zap.String("path", path),
				zap.String("traceId", res.TraceID),
				zap.Int("pendencies", res.Pendencies))
		}
		if err := moveInto(path, filepath.Join(dir, dest)); err != nil {
			return err
		}
	}
	return nil
}

func moveInto(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	err := os.Rename(path, filepath.Join(dir, filepath.Base(path)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func NewConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderGmail:
		return gmailconnector.NewConnector(cfg)
	case ProviderIMAP:
		return imapconnector.NewConnector(cfg)
	case ProviderDir:
		return dirconnector.NewConnector(cfg.ListenerWatchDir)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
