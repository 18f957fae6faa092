package ports

import (
	"context"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
}
