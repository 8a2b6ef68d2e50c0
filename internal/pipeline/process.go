package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"painel/internal"
	"painel/internal/config"
	"painel/internal/dictionary"
	"painel/internal/registry"
	"painel/internal/storage"
	"painel/internal/util"
)

const (
	SourceFile  = "file"
	SourceEmail = "email"
)

type RunOptions struct {
	ReportPath        string
	RegistryPath      string
	EquivalenciasPath string
	ConditionsPath    string
	Outputs           OutputPaths
	Columns           ColumnCandidates
	NameColumn        string
	WorkbookPath      string

	Source   string
	InputRef string
}

// OptionsFromConfig fills run options from the environment. The registry is
// read from and written back to the same dataset path.
func OptionsFromConfig(cfg config.Config) RunOptions {
	return RunOptions{
		ReportPath:        cfg.ReportPath,
		RegistryPath:      cfg.DadosPath,
		EquivalenciasPath: cfg.EquivalenciasPath,
		ConditionsPath:    cfg.MapaDeficienciasPath,
		Outputs: OutputPaths{
			Dados:      cfg.DadosPath,
			Demografia: cfg.DemografiaPath,
			Pendencias: cfg.PendenciasPath,
		},
		Columns:    DefaultColumnCandidates().WithOverrides(cfg.InstitutionColumns, cfg.AgeColumns, cfg.DisabilityColumns),
		NameColumn: cfg.RegistryNameColumn,
		Source:     SourceFile,
	}
}

type RunResult struct {
	RunID         int64
	TraceID       string
	RowsProcessed int
	RowsApplied   int
	Pendencies    int
	Outputs       OutputPaths
	WroteReport   bool
	Aggregation   *Aggregation
}

type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
	log *zap.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, log *zap.Logger) *ProcessingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProcessingService{db: db, cfg: cfg, log: log}
}

func (s *ProcessingService) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	table, err := ReadReport(opts.ReportPath)
	if err != nil {
		return RunResult{}, err
	}
	if opts.InputRef == "" {
		opts.InputRef = opts.ReportPath
	}
	return s.RunTable(ctx, table, opts)
}

// RunTable executes one full pass over an already parsed report.
func (s *ProcessingService) RunTable(ctx context.Context, table *internal.Table, opts RunOptions) (RunResult, error) {
	if err := ctx.Err(); err != nil {
		return RunResult{}, err
	}
	start := time.Now()
	traceID := uuid.NewString()
	log := s.log.With(zap.String("traceId", traceID), zap.String("input", table.Source))

	cols, err := ResolveColumns(table.Header, opts.Columns)
	if err != nil {
		return RunResult{}, err
	}

	matcher, reg, err := s.loadLookups(opts, log)
	if err != nil {
		return RunResult{}, err
	}
	loadMs := msSince(start)

	scanStart := time.Now()
	agg := NewAggregation(reg)
	matcher.Scan(agg, table, cols)
	scanMs := msSince(scanStart)

	writeStart := time.Now()
	if err := WriteOutputs(agg, opts.Outputs); err != nil {
		return RunResult{}, err
	}
	if opts.WorkbookPath != "" {
		sheets := []Sheet{agg.InstitutionSheet(), agg.DemographicSheet(), agg.PendencySheet()}
		if err := ExportWorkbookXLSX(sheets, opts.WorkbookPath); err != nil {
			log.Warn("workbook export failed", zap.String("path", opts.WorkbookPath), zap.Error(err))
		}
	}
	writeMs := msSince(writeStart)

	result := RunResult{
		TraceID:       traceID,
		RowsProcessed: agg.RowsProcessed,
		RowsApplied:   agg.RowsApplied,
		Pendencies:    len(agg.Pendencies),
		Outputs:       opts.Outputs,
		WroteReport:   len(agg.Pendencies) > 0,
		Aggregation:   agg,
	}

	if s.db != nil {
		counts := agg.CategoryTotals()
		for reason, n := range agg.ReasonTotals() {
			counts[reason] = n
		}
		runID, err := s.db.InsertRun(storage.RunRecord{
			TraceID:       traceID,
			Source:        util.FirstNonEmpty(opts.Source, SourceFile),
			InputRef:      opts.InputRef,
			RowsProcessed: agg.RowsProcessed,
			RowsApplied:   agg.RowsApplied,
			Counts:        counts,
			Timings: map[string]float64{
				"loadMs":  loadMs,
				"scanMs":  scanMs,
				"writeMs": writeMs,
				"totalMs": msSince(start),
			},
			Pendencies: agg.Pendencies,
		})
		if err != nil {
			log.Warn("run history not recorded", zap.Error(err))
		} else {
			result.RunID = runID
		}
	}

	log.Info("run finished",
		zap.Int("rows", result.RowsProcessed),
		zap.Int("applied", result.RowsApplied),
		zap.Int("pendencies", result.Pendencies),
		zap.Float64("totalMs", msSince(start)),
	)
	return result, nil
}

func (s *ProcessingService) loadLookups(opts RunOptions, log *zap.Logger) (*Matcher, *registry.Registry, error) {
	aliases, err := loadDictionary(opts.EquivalenciasPath, log)
	if err != nil {
		return nil, nil, err
	}
	conditions, err := loadDictionary(opts.ConditionsPath, log)
	if err != nil {
		return nil, nil, err
	}
	classifier, err := NewClassifier(conditions)
	if err != nil {
		return nil, nil, &ConfigError{Path: opts.ConditionsPath, Err: err}
	}
	for _, o := range dictionary.Conflicting(dictionary.Overlaps(conditions)) {
		log.Warn("condition key shadowed in substring matching",
			zap.String("key", o.Shadowed.Raw), zap.String("by", o.By.Raw))
	}

	nameColumn := util.FirstNonEmpty(opts.NameColumn, registry.DefaultNameColumn)
	reg, err := registry.Load(opts.RegistryPath, nameColumn)
	if err != nil {
		return nil, nil, &ConfigError{Path: opts.RegistryPath, Err: err}
	}
	for _, name := range reg.Duplicates() {
		log.Warn("duplicate institution name, last row wins", zap.String("name", name))
	}

	return NewMatcher(NewInstitutionResolver(aliases, reg), classifier), reg, nil
}

func loadDictionary(path string, log *zap.Logger) (*dictionary.Map, error) {
	m, err := dictionary.Load(path)
	if errors.Is(err, dictionary.ErrNotFound) {
		log.Warn("dictionary missing, using empty map", zap.String("path", path))
		return m, nil
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return m, nil
}

type EmailResult struct {
	EmailID int
	Status  string
	Run     *RunResult
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (EmailResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return EmailResult{}, err
	}
	return s.ProcessEmail(ctx, email)
}

// ProcessPending handles fetched emails oldest first. A failing email is
// marked failed and the batch goes on.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (processed, failed int, err error) {
	pending, err := s.db.ListEmails(storage.EmailFilter{Status: storage.EmailFetched, Provider: provider, Limit: limit})
	if err != nil {
		return 0, 0, err
	}
	for _, email := range pending {
		if err := ctx.Err(); err != nil {
			return processed, failed, err
		}
		if _, err := s.ProcessEmail(ctx, email); err != nil {
			failed++
			continue
		}
		processed++
	}
	return processed, failed, nil
}

func (s *ProcessingService) ProcessEmail(ctx context.Context, email internal.EmailRow) (EmailResult, error) {
	log := s.log.With(zap.Int("emailId", email.ID), zap.String("messageId", email.MessageID))

	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return s.failEmail(email, log, err)
	}
	table, err := ReadReportBytes("message.eml", raw)
	if errors.Is(err, ErrNoReport) {
		log.Info("email has no report, skipping", zap.String("subject", email.Subject))
		if err := s.db.UpdateEmailStatus(email.ID, storage.EmailSkipped); err != nil {
			return EmailResult{}, err
		}
		return EmailResult{EmailID: email.ID, Status: storage.EmailSkipped}, nil
	}
	if err != nil {
		return s.failEmail(email, log, err)
	}

	opts := OptionsFromConfig(s.cfg)
	opts.Source = SourceEmail
	opts.InputRef = fmt.Sprintf("%s:%s", email.Provider, email.MessageID)
	if s.cfg.ListenerExportXLSX {
		opts.WorkbookPath = workbookPath(s.cfg.OutputDir, email.ID)
	}

	run, err := s.RunTable(ctx, table, opts)
	if err != nil {
		return s.failEmail(email, log, err)
	}
	if err := s.db.UpdateEmailStatus(email.ID, storage.EmailProcessed); err != nil {
		return EmailResult{}, err
	}
	return EmailResult{EmailID: email.ID, Status: storage.EmailProcessed, Run: &run}, nil
}

func (s *ProcessingService) failEmail(email internal.EmailRow, log *zap.Logger, cause error) (EmailResult, error) {
	log.Error("email processing failed", zap.Error(cause))
	if err := s.db.UpdateEmailStatus(email.ID, storage.EmailFailed); err != nil {
		return EmailResult{}, errors.Join(cause, err)
	}
	return EmailResult{EmailID: email.ID, Status: storage.EmailFailed}, cause
}

func workbookPath(dir string, emailID int) string {
	return filepath.Join(dir, fmt.Sprintf("painel_email_%d.xlsx", emailID))
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
