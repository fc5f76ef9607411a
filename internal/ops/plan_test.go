package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/cycler/internal/core/config"
	"github.com/vietddude/cycler/internal/core/domain"
	"github.com/vietddude/cycler/internal/infra/transport"
)

func testWallet(t *testing.T) domain.Wallet {
	t.Helper()
	signer, err := NewHMACSigner("test-secret")
	if err != nil {
		t.Fatalf("NewHMACSigner failed: %v", err)
	}
	return domain.Wallet{Address: "0xabc", Signer: signer}
}

// rpcStub answers JSON-RPC methods from a fixed result table.
func rpcStub(t *testing.T, results map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		res, ok := results[req.Method]
		if !ok {
			t.Fatalf("unexpected method %q", req.Method)
		}
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": res})
	}))
}

func dialDirect(t *testing.T) *transport.Conn {
	t.Helper()
	conn, err := transport.NewDialer("", 5*time.Second).Dial(context.Background(), "")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBuilder_OrderAndUnknown(t *testing.T) {
	conn := dialDirect(t)

	b := NewBuilder(config.PlanConfig{
		Operations: []string{"auth", "checkin", "transfer", "stake"},
		RPCURL:     "http://localhost:0",
	})
	plan, err := b.Build(testWallet(t), conn)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := []string{"auth", "checkin", "transfer", "stake"}
	if len(plan) != len(want) {
		t.Fatalf("plan has %d ops, want %d", len(plan), len(want))
	}
	for i, name := range want {
		if plan[i].Name != name {
			t.Errorf("plan[%d] = %q, want %q", i, plan[i].Name, name)
		}
	}

	if _, err := NewBuilder(config.PlanConfig{Operations: []string{"yolo"}}).Build(testWallet(t), conn); err == nil {
		t.Error("expected error for unknown operation")
	}
}

func TestAuthOp(t *testing.T) {
	srv := rpcStub(t, map[string]any{"account_authenticate": true})
	defer srv.Close()

	plan, err := NewBuilder(config.PlanConfig{Operations: []string{"auth"}, RPCURL: srv.URL}).
		Build(testWallet(t), dialDirect(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out, err := plan[0].Run(context.Background())
	if err != nil {
		t.Fatalf("auth op failed: %v", err)
	}
	if !out.Succeeded() {
		t.Errorf("auth outcome = %+v, want Done", out)
	}
}

func TestTransferOp_DeclinesOnZeroBalance(t *testing.T) {
	srv := rpcStub(t, map[string]any{"account_balance": float64(0)})
	defer srv.Close()

	plan, err := NewBuilder(config.PlanConfig{Operations: []string{"transfer"}, RPCURL: srv.URL}).
		Build(testWallet(t), dialDirect(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out, err := plan[0].Run(context.Background())
	if err != nil {
		t.Fatalf("transfer op errored: %v", err)
	}
	if out.Status != domain.OutcomeDeclined {
		t.Errorf("outcome = %+v, want Declined", out)
	}
}

func TestStakeOp_Submits(t *testing.T) {
	srv := rpcStub(t, map[string]any{
		"account_balance": float64(42),
		"ledger_submit":   true,
	})
	defer srv.Close()

	plan, err := NewBuilder(config.PlanConfig{Operations: []string{"stake"}, RPCURL: srv.URL}).
		Build(testWallet(t), dialDirect(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out, err := plan[0].Run(context.Background())
	if err != nil {
		t.Fatalf("stake op failed: %v", err)
	}
	if !out.Succeeded() {
		t.Errorf("outcome = %+v, want Done", out)
	}
}

func TestHMACSigner(t *testing.T) {
	s1, err := NewHMACSigner("k1")
	if err != nil {
		t.Fatalf("NewHMACSigner failed: %v", err)
	}
	s2, _ := NewHMACSigner("k2")

	sig1, _ := s1.Sign([]byte("msg"))
	sig1again, _ := s1.Sign([]byte("msg"))
	sig2, _ := s2.Sign([]byte("msg"))

	if string(sig1) != string(sig1again) {
		t.Error("signer is not deterministic")
	}
	if string(sig1) == string(sig2) {
		t.Error("different keys produced identical signatures")
	}

	if _, err := NewHMACSigner(""); err == nil {
		t.Error("expected error for empty secret")
	}
}
