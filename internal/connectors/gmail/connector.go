package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"painel/internal"
	"painel/internal/config"
	"painel/internal/connectors"
)

type Connector struct {
	service       *gmail.Service
	subjectFilter string
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc, subjectFilter: cfg.MailSubjectFilter}, nil
}

// FetchInbox lists messages with attachments under label. The subject filter
// runs as a Gmail query and again locally.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	listCall := c.service.Users.Messages.List("me").LabelIds(label).MaxResults(int64(max)).Q(searchQuery(c.subjectFilter)).Context(ctx)
	listResp, err := listCall.Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMailMessage, 0, len(listResp.Messages))
	for _, msgRef := range listResp.Messages {
		if msgRef.Id == "" {
			continue
		}

		rawResp, err := c.service.Users.Messages.Get("me", msgRef.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		if rawResp.Raw == "" {
			continue
		}
		rawBytes, err := decodeBase64URL(rawResp.Raw)
		if err != nil {
			return nil, err
		}

		msg, err := connectors.MessageFromRaw("gmail", rawBytes)
		if err != nil {
			return nil, fmt.Errorf("gmail message %s: %w", msgRef.Id, err)
		}
		if !connectors.SubjectMatches(msg.Subject, c.subjectFilter) {
			continue
		}
		if msg.MessageID == "" {
			msg.MessageID = msgRef.Id
		}
		if msg.ReceivedAt == "" && rawResp.InternalDate > 0 {
			msg.ReceivedAt = time.UnixMilli(rawResp.InternalDate).UTC().Format(time.RFC3339)
		}
		out = append(out, msg)
	}

	return out, nil
}

func searchQuery(subjectFilter string) string {
	q := "has:attachment"
	if f := strings.TrimSpace(subjectFilter); f != "" {
		q += fmt.Sprintf(" subject:(%s)", f)
	}
	return q
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
