package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/cycler/internal/core/domain"
)

func TestDial_InvalidProxy(t *testing.T) {
	d := NewDialer("", 5*time.Second)

	cases := []string{"://bad", "no-scheme-host"}
	for _, c := range cases {
		if _, err := d.Dial(context.Background(), domain.Proxy(c)); err == nil {
			t.Errorf("Dial(%q) succeeded, want error", c)
		}
	}
}

func TestDial_DirectConnection(t *testing.T) {
	d := NewDialer("", 5*time.Second)

	conn, err := d.Dial(context.Background(), "")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if conn.HTTP == nil {
		t.Error("expected HTTP client")
	}
	if conn.GRPC != nil {
		t.Error("expected no gRPC conn without a target")
	}
}

func TestDial_WithGRPCTarget(t *testing.T) {
	d := NewDialer("ledger.example.com:9000", 5*time.Second)

	conn, err := d.Dial(context.Background(), "http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// gRPC client connects lazily; the handle must exist even though the
	// proxy is unreachable.
	if conn.GRPC == nil {
		t.Error("expected gRPC conn with a target configured")
	}
}

func TestRPCClient_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x10"}`))
	}))
	defer srv.Close()

	conn, err := NewDialer("", 5*time.Second).Dial(context.Background(), "")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	result, err := NewRPCClient(conn, srv.URL).Call(context.Background(), "eth_blockNumber", []any{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result != "0x10" {
		t.Errorf("result = %v, want 0x10", result)
	}
}

func TestRPCClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			"rate limited",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(429) },
			"429",
		},
		{
			"blocked",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(403) },
			"403",
		},
		{
			"rpc error",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"nonce too low"}}`))
			},
			"nonce too low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			conn, err := NewDialer("", 5*time.Second).Dial(context.Background(), "")
			if err != nil {
				t.Fatalf("Dial failed: %v", err)
			}
			defer conn.Close()

			_, err = NewRPCClient(conn, srv.URL).Call(context.Background(), "eth_call", []any{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}
