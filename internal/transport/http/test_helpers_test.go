package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat-server/internal/auth"
	"github.com/vovakirdan/pairchat-server/internal/config"
	"github.com/vovakirdan/pairchat-server/internal/core"
	"github.com/vovakirdan/pairchat-server/internal/identity/sqlite"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "test-secret-change-me"
	cfg.PresenceInterval = 50 * time.Millisecond

	logger := nopLogger()
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	clk := clock.New()
	registry := core.NewRegistry(logger)
	manager := core.NewManager(registry, st, cfg.ChatDuration, clk, logger)
	presence := core.NewPublisher(st, cfg.PresenceInterval, clk, logger)

	server := NewServer(registry, manager, presence, authService, cfg, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path, bearer string, body any) (int, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}

	parsed := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("unmarshal response %q: %v", data, err)
		}
	}
	return resp.StatusCode, parsed
}

// registerAndLogin creates the user and returns its session JWT.
func registerAndLogin(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()

	status, body := postJSON(t, ts, "/api/register", "", RegisterRequest{Username: username})
	if status != http.StatusCreated {
		t.Fatalf("register %s: unexpected status %d", username, status)
	}
	credential, _ := body["token"].(string)

	status, body = postJSON(t, ts, "/api/login", "", LoginRequest{Token: credential})
	if status != http.StatusOK {
		t.Fatalf("login %s: unexpected status %d", username, status)
	}
	jwtToken, _ := body["token"].(string)
	if jwtToken == "" {
		t.Fatalf("login %s: empty session token", username)
	}
	return jwtToken
}
