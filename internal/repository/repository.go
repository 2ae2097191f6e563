package repository

import (
	"context"

	"github.com/mmeshcher/scissor/internal/models"
)

// Repository is the storage shared by the link and account services.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	CreateLink(ctx context.Context, link *models.Link) (*models.Link, error)
	LinkByCode(ctx context.Context, code string) (*models.Link, error)
	LinkByOwnerAndTarget(ctx context.Context, ownerID int64, longLink string) (*models.Link, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	LinksByOwner(ctx context.Context, ownerID int64) ([]models.Link, error)
	ResolveAndCount(ctx context.Context, code string) (string, error)
	UpdatePath(ctx context.Context, id int64, path string) (*models.Link, error)
	SetQRCodePath(ctx context.Context, id int64, path string) error
	DeleteLink(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
