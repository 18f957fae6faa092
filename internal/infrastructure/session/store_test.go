package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "test",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func writeTokenFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jwt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write token file: %v", err)
	}
	return path
}

func TestFileStore_MissingFileIsNoToken(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist"))
	if _, err := s.Token(context.Background()); !errors.Is(err, domain.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestFileStore_EmptyFileIsNoToken(t *testing.T) {
	s := NewFileStore(writeTokenFile(t, "  \n"))
	if _, err := s.Token(context.Background()); !errors.Is(err, domain.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestFileStore_ValidToken(t *testing.T) {
	want := signedToken(t, time.Now().Add(time.Hour))
	s := NewFileStore(writeTokenFile(t, want+"\n"))

	got, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("token mangled: got %q", got)
	}
}

func TestFileStore_ExpiredToken(t *testing.T) {
	s := NewFileStore(writeTokenFile(t, signedToken(t, time.Now().Add(-time.Minute))))
	if _, err := s.Token(context.Background()); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestFileStore_NonJWTPassesThrough(t *testing.T) {
	// Opaque credentials are left for the backend to judge.
	s := NewFileStore(writeTokenFile(t, "opaque-credential"))
	got, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "opaque-credential" {
		t.Fatalf("token mangled: got %q", got)
	}
}

func TestFileStore_ReadsFileOnEveryCall(t *testing.T) {
	path := writeTokenFile(t, "first")
	s := NewFileStore(path)

	if got, _ := s.Token(context.Background()); got != "first" {
		t.Fatalf("expected first token, got %q", got)
	}

	if err := os.WriteFile(path, []byte("second"), 0o600); err != nil {
		t.Fatalf("failed to rotate token: %v", err)
	}
	if got, _ := s.Token(context.Background()); got != "second" {
		t.Fatalf("rotation not picked up, got %q", got)
	}
}

func TestStaticStore(t *testing.T) {
	if _, err := NewStaticStore("").Token(context.Background()); !errors.Is(err, domain.ErrNoToken) {
		t.Fatalf("empty static store must report ErrNoToken, got %v", err)
	}

	got, err := NewStaticStore("tok").Token(context.Background())
	if err != nil || got != "tok" {
		t.Fatalf("unexpected result: %q, %v", got, err)
	}

	expired := signedToken(t, time.Now().Add(-time.Minute))
	if _, err := NewStaticStore(expired).Token(context.Background()); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}
