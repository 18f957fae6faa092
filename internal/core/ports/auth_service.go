package ports

import (
	"context"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, nombre, email, password, rol string, area *domain.Area) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
}
