// Package dir reads .eml files dropped into a local folder.
package dir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"painel/internal"
	"painel/internal/connectors"
)

const doneDir = "done"

type Connector struct {
	root string
}

func NewConnector(root string) (*Connector, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("missing LISTENER_WATCH_DIR")
	}
	if err := os.MkdirAll(filepath.Join(root, doneDir), 0o755); err != nil {
		return nil, err
	}
	return &Connector{root: root}, nil
}

// FetchInbox returns up to max .eml files, oldest first. The label is unused.
func (c *Connector) FetchInbox(ctx context.Context, _ string, max int) ([]internal.FetchedMailMessage, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		path string
		mod  int64
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".eml") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{path: filepath.Join(c.root, e.Name()), mod: info.ModTime().UnixNano()})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].mod != files[j].mod {
			return files[i].mod < files[j].mod
		}
		return files[i].path < files[j].path
	})
	if max > 0 && len(files) > max {
		files = files[:max]
	}

	out := make([]internal.FetchedMailMessage, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(f.path)
		if err != nil {
			return nil, err
		}
		msg, err := connectors.MessageFromRaw("dir", raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.path, err)
		}
		if msg.MessageID == "" {
			msg.MessageID = filepath.Base(f.path)
		}
		msg.Ref = f.path
		out = append(out, msg)
	}
	return out, nil
}

// Ack moves a stored message out of the watched folder.
func (c *Connector) Ack(msg internal.FetchedMailMessage) error {
	if msg.Ref == "" {
		return nil
	}
	return os.Rename(msg.Ref, filepath.Join(c.root, doneDir, filepath.Base(msg.Ref)))
}
