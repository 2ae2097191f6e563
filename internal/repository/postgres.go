package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var linkColumns = []string{
	"id",
	"long_link",
	"short_link",
	"COALESCE(custom_path, '')",
	"clicks",
	"created_at",
	"COALESCE(qr_code_path, '')",
	"COALESCE(user_id, 0)",
}

var userColumns = []string{"id", "username", "email", "password_hash", "created_at"}

// dbPool is the subset of *pgxpool.Pool the repository uses.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type PostgresRepository struct {
	pool   dbPool
	sb     squirrel.StatementBuilderType
	logger *zap.Logger
}

func NewPostgresRepository(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	logger.Info("Migrations applied")

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("PostgreSQL repository initialized")

	return newPostgresRepository(pool, logger), nil
}

func newPostgresRepository(pool dbPool, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{
		pool:   pool,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger: logger,
	}
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func (p *PostgresRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	query, args, err := p.sb.
		Insert("users").
		Columns("username", "email", "password_hash").
		Values(user.Username, user.Email, user.PasswordHash).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	created := *user
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&created.ID, &created.CreatedAt); err != nil {
		if mapped := uniqueViolation(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &created, nil
}

func (p *PostgresRepository) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return p.findUser(ctx, squirrel.Eq{"id": id})
}

func (p *PostgresRepository) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.findUser(ctx, squirrel.Eq{"email": email})
}

func (p *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return p.exists(ctx, "users", squirrel.Eq{"username": username})
}

func (p *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return p.exists(ctx, "users", squirrel.Eq{"email": email})
}

func (p *PostgresRepository) findUser(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	query, args, err := p.sb.
		Select(userColumns...).
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u models.User
	err = p.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query row: %w", err)
	}

	return &u, nil
}

func (p *PostgresRepository) CreateLink(ctx context.Context, link *models.Link) (*models.Link, error) {
	query, args, err := p.sb.
		Insert("links").
		Columns("long_link", "short_link", "custom_path", "qr_code_path", "user_id").
		Values(link.LongLink, link.ShortLink, nullString(link.CustomPath), nullString(link.QRCodePath), nullID(link.UserID)).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	created := *link
	created.Clicks = 0
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&created.ID, &created.CreatedAt); err != nil {
		if mapped := uniqueViolation(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert link: %w", err)
	}

	return &created, nil
}

func (p *PostgresRepository) LinkByCode(ctx context.Context, code string) (*models.Link, error) {
	query, args, err := p.sb.
		Select(linkColumns...).
		From("links").
		Where(squirrel.Eq{"short_link": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return p.queryLink(ctx, query, args)
}

func (p *PostgresRepository) LinkByOwnerAndTarget(ctx context.Context, ownerID int64, longLink string) (*models.Link, error) {
	query, args, err := p.sb.
		Select(linkColumns...).
		From("links").
		Where(squirrel.Eq{"user_id": ownerID, "long_link": longLink}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return p.queryLink(ctx, query, args)
}

// CodeExists reports whether code is used as a short link or a custom path.
func (p *PostgresRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	return p.exists(ctx, "links", squirrel.Or{
		squirrel.Eq{"short_link": code},
		squirrel.Eq{"custom_path": code},
	})
}

func (p *PostgresRepository) LinksByOwner(ctx context.Context, ownerID int64) ([]models.Link, error) {
	query, args, err := p.sb.
		Select(linkColumns...).
		From("links").
		Where(squirrel.Eq{"user_id": ownerID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := make([]models.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		links = append(links, *link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return links, nil
}

// ResolveAndCount increments the click counter of code and returns its target
// in one statement.
func (p *PostgresRepository) ResolveAndCount(ctx context.Context, code string) (string, error) {
	query, args, err := p.sb.
		Update("links").
		Set("clicks", squirrel.Expr("clicks + 1")).
		Where(squirrel.Eq{"short_link": code}).
		Suffix("RETURNING long_link").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}

	var longLink string
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&longLink); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("query row: %w", err)
	}

	return longLink, nil
}

// UpdatePath makes path both the custom path and the short link of the link
// and drops its stored QR code.
func (p *PostgresRepository) UpdatePath(ctx context.Context, id int64, path string) (*models.Link, error) {
	query, args, err := p.sb.
		Update("links").
		Set("short_link", path).
		Set("custom_path", path).
		Set("qr_code_path", nil).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(linkColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return p.queryLink(ctx, query, args)
}

func (p *PostgresRepository) SetQRCodePath(ctx context.Context, id int64, path string) error {
	query, args, err := p.sb.
		Update("links").
		Set("qr_code_path", nullString(path)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("execute query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *PostgresRepository) DeleteLink(ctx context.Context, id int64) error {
	query, args, err := p.sb.
		Delete("links").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("execute query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *PostgresRepository) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresRepository) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresRepository) exists(ctx context.Context, table string, where squirrel.Sqlizer) (bool, error) {
	query, args, err := p.sb.
		Select("1").
		From(table).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query row: %w", err)
	}

	return true, nil
}

func (p *PostgresRepository) queryLink(ctx context.Context, query string, args []any) (*models.Link, error) {
	link, err := scanLink(p.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if mapped := uniqueViolation(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("query row: %w", err)
	}

	return link, nil
}

func scanLink(row pgx.Row) (*models.Link, error) {
	var l models.Link
	err := row.Scan(&l.ID, &l.LongLink, &l.ShortLink, &l.CustomPath, &l.Clicks, &l.CreatedAt, &l.QRCodePath, &l.UserID)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
