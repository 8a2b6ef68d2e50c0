package registry

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/internal/config"
	"painel/internal/storage"
)

func TestPullReplacesLocalRegistry(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "painel.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := config.Config{
		DadosPath:           filepath.Join(dir, "dados.csv"),
		RegistryNameColumn:  "nome",
		RegistryURL:         "https://example.test/dados.csv",
		RegistryMaxAttempts: 1,
	}
	require.NoError(t, os.WriteFile(cfg.DadosPath, []byte("nome\nAntiga\n"), 0o644))

	svc := NewSyncService(db, cfg, nil)
	svc.client = testClient(t, func(r *http.Request) (*http.Response, error) {
		return response(http.StatusOK, "nome,cidade\nAlfa,Lages\nBeta,Blumenau\n"), nil
	})

	n, err := svc.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	blob, err := os.ReadFile(cfg.DadosPath)
	require.NoError(t, err)
	assert.Equal(t, "nome,cidade\nAlfa,Lages\nBeta,Blumenau\n", string(blob))

	stamp, err := db.GetMetadata(lastPullKey)
	require.NoError(t, err)
	assert.NotNil(t, stamp)
}

func TestPullKeepsLocalRegistryOnBadPayload(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		DadosPath:          filepath.Join(dir, "dados.csv"),
		RegistryNameColumn: "nome",
	}
	require.NoError(t, os.WriteFile(cfg.DadosPath, []byte("nome\nAntiga\n"), 0o644))

	svc := NewSyncService(nil, cfg, nil)
	svc.client = testClient(t, func(r *http.Request) (*http.Response, error) {
		return response(http.StatusOK, "<html>login</html>"), nil
	})

	_, err := svc.Pull(context.Background())
	require.Error(t, err)

	blob, err := os.ReadFile(cfg.DadosPath)
	require.NoError(t, err)
	assert.Equal(t, "nome\nAntiga\n", string(blob))
}
