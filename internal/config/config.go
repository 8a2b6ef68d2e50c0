package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string
	LogLevel   string

	ReportPath           string
	DadosPath            string
	DemografiaPath       string
	PendenciasPath       string
	EquivalenciasPath    string
	MapaDeficienciasPath string

	RegistryNameColumn string
	InstitutionColumns []string
	AgeColumns         []string
	DisabilityColumns  []string

	RegistryURL         string
	RegistryToken       string
	RegistryTimeoutMs   int
	RegistryMaxAttempts int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailSubjectFilter string

	ListenerProvider     string
	ListenerLabel        string
	ListenerIntervalSec  int
	ListenerFetchMax     int
	ListenerProcessBatch int
	ListenerWatchDir     string
	ListenerExportXLSX   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}
	scripts := filepath.Join(cwd, "scripts")

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "painel.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		ReportPath:           getEnv("RELATORIO_PATH", filepath.Join(cwd, "relatorio.csv")),
		DadosPath:            getEnv("DADOS_PATH", filepath.Join(cwd, "dados.csv")),
		DemografiaPath:       getEnv("DEMOGRAFIA_PATH", filepath.Join(cwd, "demografia.csv")),
		PendenciasPath:       getEnv("PENDENCIAS_PATH", filepath.Join(scripts, "etl_relatorio_pendencias.csv")),
		EquivalenciasPath:    getEnv("EQUIVALENCIAS_PATH", filepath.Join(scripts, "instituicoes_equivalencias.json")),
		MapaDeficienciasPath: getEnv("MAPA_DEFICIENCIAS_PATH", filepath.Join(scripts, "deficiencias_para_tipo.json")),

		RegistryNameColumn: getEnv("REGISTRY_NAME_COLUMN", "nome"),
		InstitutionColumns: getEnvList("COLUMNS_INSTITUTION", nil),
		AgeColumns:         getEnvList("COLUMNS_AGE", nil),
		DisabilityColumns:  getEnvList("COLUMNS_DISABILITY", nil),

		RegistryURL:         getEnv("REGISTRY_URL", ""),
		RegistryToken:       getEnv("REGISTRY_TOKEN", ""),
		RegistryTimeoutMs:   getEnvInt("REGISTRY_TIMEOUT_MS", 30000),
		RegistryMaxAttempts: getEnvInt("REGISTRY_MAX_ATTEMPTS", 5),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailSubjectFilter: getEnv("MAIL_SUBJECT_FILTER", ""),

		ListenerProvider:     getEnv("LISTENER_PROVIDER", "imap"),
		ListenerLabel:        getEnv("LISTENER_LABEL", "INBOX"),
		ListenerIntervalSec:  getEnvInt("LISTENER_INTERVAL_SEC", 300),
		ListenerFetchMax:     getEnvInt("LISTENER_FETCH_MAX", 20),
		ListenerProcessBatch: getEnvInt("LISTENER_PROCESS_BATCH", 20),
		ListenerWatchDir:     getEnv("LISTENER_WATCH_DIR", filepath.Join(cwd, "data", "inbox")),
		ListenerExportXLSX:   getEnvBool("LISTENER_EXPORT_XLSX", false),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvList splits on ';' because header labels may contain commas.
func getEnvList(key string, fallback []string) []string {
	value := getEnv(key, "")
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
