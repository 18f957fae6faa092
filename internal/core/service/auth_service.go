package service

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
	"github.com/cmo-ops/realtime-system/internal/core/ports"
)

// AuthService implements registration and login for the gateway. Tokens it
// issues are the same ones the realtime client replays in its auth frame.
type AuthService struct {
	repo      ports.AccountRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(repo ports.AccountRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

func (s *AuthService) Register(ctx context.Context, nombre, email, password, rol string, area *domain.Area) (*domain.Account, error) {
	if nombre == "" || email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !domain.ValidRole(rol) {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		PresenceID:   presenceID(email),
		Nombre:       nombre,
		Email:        email,
		PasswordHash: string(hash),
		Rol:          rol,
		Area:         area,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return s.repo.Create(ctx, account)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(account)
	if err != nil {
		return "", nil, err
	}

	return token, account, nil
}

func (s *AuthService) generateToken(account *domain.Account) (string, error) {
	claims := jwt.MapClaims{
		"sub":    account.ID,
		"id":     account.PresenceID,
		"nombre": account.Nombre,
		"email":  account.Email,
		"rol":    account.Rol,
		"exp":    time.Now().Add(s.tokenTTL).Unix(),
	}
	if account.Area != nil {
		claims["area_id"] = account.Area.ID
		claims["area_nombre"] = account.Area.Nombre
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// presenceID derives the stable numeric ID shown in the presence roster from
// the account email. FNV-1a keeps it deterministic across restarts.
func presenceID(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	// Keep it positive and comfortably inside int range.
	return int(h.Sum32() & 0x7fffffff)
}
