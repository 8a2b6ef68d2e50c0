package dir

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/internal/connectors"
	"painel/internal/storage"
)

const sample = "From: sistema@example.org\r\n" +
	"Subject: Relatorio\r\n" +
	"Message-ID: <r1@example.org>\r\n" +
	"Date: Mon, 02 Mar 2026 10:00:00 -0300\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"corpo\r\n"

func TestFetchAndAck(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.eml"), []byte(sample), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.csv"), []byte("x"), 0o644))

	c, err := NewConnector(root)
	require.NoError(t, err)

	msgs, err := c.FetchInbox(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "dir", msgs[0].Provider)
	assert.Equal(t, "<r1@example.org>", msgs[0].MessageID)
	assert.Equal(t, "Relatorio", msgs[0].Subject)
	assert.Equal(t, "2026-03-02T13:00:00Z", msgs[0].ReceivedAt)

	require.NoError(t, c.Ack(msgs[0]))
	_, err = os.Stat(filepath.Join(root, doneDir, "a.eml"))
	assert.NoError(t, err)

	msgs, err = c.FetchInbox(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestFetchServiceStoresAndAcks(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"1.eml", "2.eml"} {
		path := filepath.Join(root, name)
		body := "Subject: r\r\nMessage-ID: <" + name + ">\r\n\r\nx\r\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		require.NoError(t, os.Chtimes(path, base, base.Add(time.Duration(i)*time.Minute)))
	}

	db, err := storage.Open(filepath.Join(t.TempDir(), "painel.db"))
	require.NoError(t, err)
	defer db.Close()

	c, err := NewConnector(root)
	require.NoError(t, err)
	svc := connectors.NewFetchService(db, filepath.Join(t.TempDir(), "raw"), c, nil)

	res, err := svc.FetchAndStore(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, connectors.FetchResult{Fetched: 1, Stored: 1}, res)

	row, err := db.MustEmailByProviderMessageID("dir", "<1.eml>")
	require.NoError(t, err)
	assert.Equal(t, storage.EmailFetched, row.Status)

	_, err = os.Stat(filepath.Join(root, "2.eml"))
	assert.NoError(t, err, "second message stays until the next fetch")
}
