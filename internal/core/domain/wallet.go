package domain

import (
	"time"
)

// Signer is the signing capability a wallet carries. The core never calls
// it; operation callbacks built by protocol packages do.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// Wallet represents one credentialed account the runner acts on behalf of.
// Loaded once at startup and immutable for the process lifetime.
type Wallet struct {
	ID        uint64
	Address   string
	Signer    Signer
	Label     string
	CreatedAt time.Time
}

// Proxy is an opaque proxy connection URL. The core never interprets it
// beyond passing it to the transport layer. The empty value means direct
// connection.
type Proxy string

func (p Proxy) IsZero() bool { return p == "" }
