package ops

import (
	"context"
	"fmt"

	"github.com/vietddude/cycler/internal/infra/transport"
)

// Balances implements sequencer.BalanceFetcher over a direct (unproxied)
// connection. It exists for observability logging only.
type Balances struct {
	client *transport.RPCClient
}

// NewBalances creates the balance snapshotter.
func NewBalances(conn *transport.Conn, endpoint string) *Balances {
	return &Balances{client: transport.NewRPCClient(conn, endpoint)}
}

// Balance fetches the wallet's current balance.
func (b *Balances) Balance(ctx context.Context, address string) (string, error) {
	res, err := b.client.Call(ctx, "account_balance", []any{address})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", res), nil
}
