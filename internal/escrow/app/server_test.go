package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/grant"
	"github.com/WuodOdhis/trackflow/internal/escrow/ledger"
)

// setServerEnv configures the integrity and grant environment and returns
// the grant signing key.
func setServerEnv(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	t.Setenv("TRACKFLOW_EVENT_HMAC_KEY", "app-test-key")
	t.Setenv("TRACKFLOW_EVENT_HMAC_KEYS", "")
	t.Setenv("TRACKFLOW_EVENT_HMAC_KEY_ID", "")
	t.Setenv(grant.EnvGrantIssuer, "")
	t.Setenv(grant.EnvGrantAudience, "")
	t.Setenv(grant.EnvGrantPublicKey, base64.RawStdEncoding.EncodeToString(pub))
	return priv
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Addr:   "127.0.0.1:0",
		DBPath: filepath.Join(t.TempDir(), "escrow.db"),
	}
}

func TestNewRequiresAddr(t *testing.T) {
	setServerEnv(t)
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without a listen address")
	}
}

func TestNewRequiresHMACKey(t *testing.T) {
	setServerEnv(t)
	t.Setenv("TRACKFLOW_EVENT_HMAC_KEY", "")
	if _, err := New(testConfig(t)); err == nil {
		t.Fatal("expected error without an event HMAC key")
	}
}

func TestNewRequiresGrantKey(t *testing.T) {
	setServerEnv(t)
	t.Setenv(grant.EnvGrantPublicKey, "")
	if _, err := New(testConfig(t)); err == nil {
		t.Fatal("expected error without a grant public key")
	}
}

func TestSeedLedger(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "empty spec", spec: ""},
		{name: "single account", spec: "shipper-1=100"},
		{name: "multiple accounts", spec: "shipper-1=100, carrier-1=50"},
		{name: "missing separator", spec: "shipper-1", wantErr: true},
		{name: "bad amount", spec: "shipper-1=lots", wantErr: true},
		{name: "non-positive amount", spec: "shipper-1=0", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			funds := ledger.NewMemory()
			err := seedLedger(funds, tc.spec)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("seedLedger() error = %v", err)
			}
		})
	}

	t.Run("credits accounts", func(t *testing.T) {
		funds := ledger.NewMemory()
		if err := seedLedger(funds, "shipper-1=100,carrier-1=25"); err != nil {
			t.Fatalf("seedLedger() error = %v", err)
		}
		got, err := funds.Balance(context.Background(), "shipper-1")
		if err != nil {
			t.Fatalf("Balance() error = %v", err)
		}
		if got != 100 {
			t.Fatalf("expected balance 100, got %d", got)
		}
	})
}

// TestServerWiring drives a contract creation through the composed handler
// to prove the grant, engine, storage, and metrics wiring holds together.
func TestServerWiring(t *testing.T) {
	priv := setServerEnv(t)
	cfg := testConfig(t)
	cfg.LedgerSeed = "shipper-1=100"

	server, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer server.Close()

	handler := server.httpServer.Handler

	t.Run("healthz", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if recorder.Code != http.StatusOK {
			t.Fatalf("healthz status = %d", recorder.Code)
		}
		if got := recorder.Body.String(); got != "OK" {
			t.Fatalf("healthz body = %q", got)
		}
	})

	t.Run("create contract", func(t *testing.T) {
		token, err := grant.IssueGrant(grant.IssueInput{
			Issuer:   "trackflow-escrow",
			Audience: "trackflow-party",
			Subject:  "shipper-1",
			TTL:      time.Hour,
		}, priv)
		if err != nil {
			t.Fatalf("IssueGrant() error = %v", err)
		}

		body := map[string]any{
			"carrier":   "carrier-1",
			"recipient": "recipient-1",
			"payment":   100,
			"milestones": []map[string]string{
				{"location": "warehouse-a", "verifier": "verifier-1"},
			},
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/v1/contracts", strings.NewReader(string(encoded)))
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusCreated {
			t.Fatalf("create status = %d body=%s", recorder.Code, recorder.Body)
		}
		if got := recorder.Header().Get("X-Request-ID"); got == "" {
			t.Fatal("expected request id header from middleware")
		}
	})

	t.Run("metrics", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if recorder.Code != http.StatusOK {
			t.Fatalf("metrics status = %d", recorder.Code)
		}
		if !strings.Contains(recorder.Body.String(), "trackflow_operations_total") {
			t.Fatal("expected operation counter in metrics exposition")
		}
	})
}

// TestListenAndServeStopsOnCancel verifies the bounded shutdown path.
func TestListenAndServeStopsOnCancel(t *testing.T) {
	setServerEnv(t)

	server, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe(ctx)
	}()

	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop on cancel")
	}
}
