package ports

import "context"

// TokenSource supplies the bearer credential used to authenticate the
// realtime connection. The core reads it at connect time and before every
// reconnect attempt; it never refreshes or stores the credential itself.
//
// Implementations return domain.ErrNoToken when no credential exists and
// domain.ErrTokenExpired when the stored credential is past its exp claim.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
