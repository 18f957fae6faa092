// Package session provides the credential store the realtime client reads
// its bearer token from. The store never refreshes or owns the token; it
// only hands it out and pre-checks expiry so the client does not replay a
// credential that died while it was offline.
package session

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

// FileStore reads the bearer token from a file on disk, the headless
// equivalent of the dashboard's browser session storage. The file is re-read
// on every call so an external login flow can rotate it in place.
type FileStore struct {
	path string
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Token returns the stored credential. domain.ErrNoToken when the file is
// missing or empty, domain.ErrTokenExpired when its exp claim has passed.
func (s *FileStore) Token(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrNoToken
		}
		return "", err
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", domain.ErrNoToken
	}
	if err := checkExpiry(token, s.now()); err != nil {
		return "", err
	}
	return token, nil
}

// StaticStore serves a fixed token, still subject to the expiry pre-check.
// Useful for tests and for wiring a token straight from the environment.
type StaticStore struct {
	token string
	now   func() time.Time
}

func NewStaticStore(token string) *StaticStore {
	return &StaticStore{token: token, now: time.Now}
}

func (s *StaticStore) Token(_ context.Context) (string, error) {
	if s.token == "" {
		return "", domain.ErrNoToken
	}
	if err := checkExpiry(s.token, s.now()); err != nil {
		return "", err
	}
	return s.token, nil
}

// checkExpiry inspects the exp claim without verifying the signature — the
// backend is the authority on validity, this is only a local pre-check to
// avoid a doomed connect. Tokens that do not parse as JWTs pass through
// untouched and are left for the backend to reject.
func checkExpiry(token string, now time.Time) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if now.After(exp.Time) {
		return domain.ErrTokenExpired
	}
	return nil
}
