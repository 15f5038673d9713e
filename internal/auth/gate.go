package auth

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthenticated is returned for any refused handshake credential.
// The cause is deliberately not distinguished to the caller.
var ErrUnauthenticated = errors.New("unauthenticated")

// Gate validates the bearer credential presented at connection setup.
// It is the hard boundary in front of the realtime core: a connection
// that fails here never creates any presence or room state.
type Gate struct {
	cfg     *JWTConfig
	timeout time.Duration
}

// NewGate builds a gate. The timeout bounds the rest of connection
// setup (hub attach) via Timeout; token verification itself is pure
// CPU work and needs no deadline of its own.
func NewGate(cfg *JWTConfig, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gate{cfg: cfg, timeout: timeout}
}

// Timeout returns the setup deadline the transport applies after the
// credential is accepted.
func (g *Gate) Timeout() time.Duration {
	return g.timeout
}

// Authenticate verifies the raw token and returns the claims it proves.
// The credential is presented once, at connection time, never
// per-message. A handshake whose context is already gone is refused
// outright.
func (g *Gate) Authenticate(ctx context.Context, rawToken string) (*Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnauthenticated
	}
	if rawToken == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := ValidateToken(g.cfg, rawToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}
