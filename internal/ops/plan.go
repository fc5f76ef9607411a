// Package ops assembles operation plans from protocol-specific callbacks.
// The sequencer depends only on the assembled plan, not on this package.
package ops

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/vietddude/cycler/internal/core/config"
	"github.com/vietddude/cycler/internal/core/domain"
	"github.com/vietddude/cycler/internal/infra/transport"
)

// Builder assembles a wallet's plan from the configured operation names.
// Operations appear in the plan in configuration order.
type Builder struct {
	cfg config.PlanConfig
}

// NewBuilder creates a Builder.
func NewBuilder(cfg config.PlanConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build produces the plan for one wallet over its fresh connection.
func (b *Builder) Build(wallet domain.Wallet, conn *transport.Conn) (domain.Plan, error) {
	client := transport.NewRPCClient(conn, b.cfg.RPCURL)

	var plan domain.Plan
	for _, name := range b.cfg.Operations {
		var fn domain.OperationFunc
		switch name {
		case "auth":
			fn = authOp(client, wallet)
		case "checkin":
			fn = checkinOp(client, wallet)
		case "transfer":
			fn = transferOp(client, wallet)
		case "stake":
			fn = stakeOp(client, wallet)
		default:
			return nil, fmt.Errorf("unknown operation %q", name)
		}
		plan = append(plan, domain.Operation{Name: name, Run: fn})
	}
	return plan, nil
}

func sign(wallet domain.Wallet, payload string) (string, error) {
	sig, err := wallet.Signer.Sign([]byte(payload))
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

func authOp(client *transport.RPCClient, wallet domain.Wallet) domain.OperationFunc {
	return func(ctx context.Context) (domain.Outcome, error) {
		sig, err := sign(wallet, "auth:"+wallet.Address)
		if err != nil {
			return domain.Outcome{}, err
		}
		res, err := client.Call(ctx, "account_authenticate", []any{wallet.Address, sig})
		if err != nil {
			return domain.Outcome{}, err
		}
		if ok, isBool := res.(bool); isBool && !ok {
			return domain.Declined("authentication rejected"), nil
		}
		return domain.Done(), nil
	}
}

func checkinOp(client *transport.RPCClient, wallet domain.Wallet) domain.OperationFunc {
	return func(ctx context.Context) (domain.Outcome, error) {
		sig, err := sign(wallet, "checkin:"+wallet.Address)
		if err != nil {
			return domain.Outcome{}, err
		}
		res, err := client.Call(ctx, "account_checkin", []any{wallet.Address, sig})
		if err != nil {
			return domain.Outcome{}, err
		}
		if ok, isBool := res.(bool); isBool && !ok {
			return domain.Declined("already checked in today"), nil
		}
		return domain.Done(), nil
	}
}

// submitOp covers the ledger-mutating operations: fetch balance, decline
// when there is nothing to move, otherwise sign and submit.
func submitOp(
	client *transport.RPCClient,
	wallet domain.Wallet,
	kind string,
) domain.OperationFunc {
	return func(ctx context.Context) (domain.Outcome, error) {
		res, err := client.Call(ctx, "account_balance", []any{wallet.Address})
		if err != nil {
			return domain.Outcome{}, err
		}
		balance, _ := res.(float64)
		if balance <= 0 {
			return domain.Declined("insufficient balance"), nil
		}

		sig, err := sign(wallet, kind+":"+wallet.Address)
		if err != nil {
			return domain.Outcome{}, err
		}
		res, err = client.Call(ctx, "ledger_submit", []any{wallet.Address, kind, sig})
		if err != nil {
			return domain.Outcome{}, err
		}
		if ok, isBool := res.(bool); isBool && !ok {
			return domain.Declined(kind + " rejected by ledger"), nil
		}
		return domain.Done(), nil
	}
}

func transferOp(client *transport.RPCClient, wallet domain.Wallet) domain.OperationFunc {
	return submitOp(client, wallet, "transfer")
}

func stakeOp(client *transport.RPCClient, wallet domain.Wallet) domain.OperationFunc {
	return submitOp(client, wallet, "stake")
}
