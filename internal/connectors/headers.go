package connectors

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"painel/internal"
	"painel/internal/util"
)

// MessageFromRaw fills a FetchedMailMessage from the headers of a raw
// RFC 5322 message.
func MessageFromRaw(provider string, raw []byte) (internal.FetchedMailMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.FetchedMailMessage{}, fmt.Errorf("parse message: %w", err)
	}
	msg := internal.FetchedMailMessage{
		Provider:  provider,
		MessageID: strings.TrimSpace(env.GetHeader("Message-ID")),
		Subject:   env.GetHeader("Subject"),
		From:      env.GetHeader("From"),
		Raw:       raw,
	}
	if date := env.GetHeader("Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			msg.ReceivedAt = t.UTC().Format(time.RFC3339)
		}
	}
	return msg, nil
}

// SubjectMatches reports whether subject contains filter, ignoring case and
// accents. An empty filter matches everything.
func SubjectMatches(subject, filter string) bool {
	filter = util.Normalize(filter)
	if filter == "" {
		return true
	}
	return strings.Contains(util.Normalize(subject), filter)
}
