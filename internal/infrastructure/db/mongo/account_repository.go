package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

const accountCollection = "accounts"

type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountCollection)}
}

type mongoAccount struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	PresenceID   int                `bson:"presence_id"`
	Nombre       string             `bson:"nombre"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Rol          string             `bson:"rol"`
	AreaID       int                `bson:"area_id,omitempty"`
	AreaNombre   string             `bson:"area_nombre,omitempty"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	doc := mongoAccount{
		PresenceID:   account.PresenceID,
		Nombre:       account.Nombre,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		Rol:          account.Rol,
		CreatedAt:    account.CreatedAt.Unix(),
		UpdatedAt:    account.UpdatedAt.Unix(),
	}
	if account.Area != nil {
		doc.AreaID = account.Area.ID
		doc.AreaNombre = account.Area.Nombre
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	// fetch back to get the generated ID
	return r.FindByEmail(ctx, account.Email)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var ma mongoAccount
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&ma); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	account := &domain.Account{
		ID:           ma.ID.Hex(),
		PresenceID:   ma.PresenceID,
		Nombre:       ma.Nombre,
		Email:        ma.Email,
		PasswordHash: ma.PasswordHash,
		Rol:          ma.Rol,
		CreatedAt:    unixToTime(ma.CreatedAt),
		UpdatedAt:    unixToTime(ma.UpdatedAt),
	}
	if ma.AreaID != 0 || ma.AreaNombre != "" {
		account.Area = &domain.Area{ID: ma.AreaID, Nombre: ma.AreaNombre}
	}
	return account, nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
