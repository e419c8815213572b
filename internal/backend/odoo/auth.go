package odoo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kosarica/rule-resolver/internal/session"
)

// ErrInvalidCredentials is returned when the server refuses the login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator logs in through the common service.
type Authenticator struct {
	client *Client
}

// NewAuthenticator creates an authenticator using client.
func NewAuthenticator(client *Client) *Authenticator {
	return &Authenticator{client: client}
}

// Login implements session.Authenticator. Odoo answers with the user id, or
// false when the credentials are wrong.
func (a *Authenticator) Login(ctx context.Context, creds session.Credentials) (session.Handle, error) {
	var uid any
	err := a.client.Call(ctx, "common", "login", []any{creds.Database, creds.Username, creds.Password}, &uid)
	if err != nil {
		return session.Handle{}, err
	}

	n, ok := uid.(float64)
	if !ok || n <= 0 {
		return session.Handle{}, fmt.Errorf("database %s: %w", creds.Database, ErrInvalidCredentials)
	}
	return session.Handle{UID: int64(n), AcquiredAt: time.Now()}, nil
}

var _ session.Authenticator = (*Authenticator)(nil)
