package registry

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"painel/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func testClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client := NewClient(config.Config{
		RegistryURL:         "https://example.test/painel/dados.csv",
		RegistryToken:       "secret",
		RegistryMaxAttempts: 3,
		RegistryTimeoutMs:   1000,
	})
	client.httpClient = &http.Client{Transport: rt}
	client.sleep = func(time.Duration) {}
	return client
}

func TestFetchRetriesServerErrors(t *testing.T) {
	attempt := 0
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("authorization=%q", got)
		}
		attempt++
		if attempt < 3 {
			return response(http.StatusServiceUnavailable, "busy"), nil
		}
		return response(http.StatusOK, "nome\nAlfa\n"), nil
	})

	blob, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != "nome\nAlfa\n" || attempt != 3 {
		t.Fatalf("blob=%q attempts=%d", blob, attempt)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	attempt := 0
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		attempt++
		return response(http.StatusNotFound, "missing"), nil
	})

	_, err := client.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status=404") {
		t.Fatalf("err=%v", err)
	}
	if attempt != 1 {
		t.Fatalf("attempts=%d", attempt)
	}
}

func TestFetchGivesUpAfterMaxAttempts(t *testing.T) {
	attempt := 0
	client := testClient(t, func(r *http.Request) (*http.Response, error) {
		attempt++
		return response(http.StatusBadGateway, "down"), nil
	})

	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if attempt != 3 {
		t.Fatalf("attempts=%d", attempt)
	}
}

func TestFetchRequiresURL(t *testing.T) {
	client := NewClient(config.Config{})
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
