package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/models"
)

var linkRowColumns = []string{"id", "long_link", "short_link", "custom_path", "clicks", "created_at", "qr_code_path", "user_id"}

func newMockRepository(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPostgresRepository(mock, zap.NewNop()), mock
}

func TestPostgresRepositoryCreateLink(t *testing.T) {
	now := time.Now()

	type want struct {
		id  int64
		err error
	}

	tests := []struct {
		name  string
		setup func(mock pgxmock.PgxPoolIface)
		link  models.Link
		want  want
	}{
		{
			name: "generated code",
			link: models.Link{LongLink: "http://example.com", ShortLink: "abcde", UserID: 3},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO links").
					WithArgs("http://example.com", "abcde", nil, nil, int64(3)).
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))
			},
			want: want{id: 11},
		},
		{
			name: "negative: custom path constraint",
			link: models.Link{LongLink: "http://example.com", ShortLink: "mylink", CustomPath: "mylink", UserID: 3},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO links").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintCustomPath})
			},
			want: want{err: ErrCodeTaken},
		},
		{
			name: "negative: short link constraint",
			link: models.Link{LongLink: "http://example.com", ShortLink: "abcde", UserID: 3},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO links").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintShortLink})
			},
			want: want{err: ErrCodeTaken},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setup(mock)

			created, err := repo.CreateLink(context.Background(), &tt.link)

			if tt.want.err != nil {
				require.ErrorIs(t, err, tt.want.err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want.id, created.ID)
				assert.True(t, now.Equal(created.CreatedAt))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepositoryResolveAndCount(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(mock pgxmock.PgxPoolIface)
		target string
		err    error
	}{
		{
			name: "existing code",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE links SET clicks = clicks \+ 1 WHERE short_link = \$1 RETURNING long_link`).
					WithArgs("abcde").
					WillReturnRows(pgxmock.NewRows([]string{"long_link"}).AddRow("http://example.com"))
			},
			target: "http://example.com",
		},
		{
			name: "negative: missing code",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("UPDATE links").
					WithArgs("abcde").
					WillReturnRows(pgxmock.NewRows([]string{"long_link"}))
			},
			err: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setup(mock)

			target, err := repo.ResolveAndCount(context.Background(), "abcde")

			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.target, target)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepositoryCodeExists(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT 1 FROM links WHERE").
		WithArgs("taken", "taken").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM links WHERE").
		WithArgs("free", "free").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}))

	exists, err := repo.CodeExists(context.Background(), "taken")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.CodeExists(context.Background(), "free")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryUpdatePath(t *testing.T) {
	now := time.Now()

	t.Run("updated", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery("UPDATE links SET short_link").
			WithArgs("fresh", "fresh", nil, int64(5)).
			WillReturnRows(pgxmock.NewRows(linkRowColumns).
				AddRow(int64(5), "http://example.com", "fresh", "fresh", int64(2), now, "", int64(1)))

		link, err := repo.UpdatePath(context.Background(), 5, "fresh")
		require.NoError(t, err)
		assert.Equal(t, "fresh", link.ShortLink)
		assert.Equal(t, "fresh", link.CustomPath)
		assert.Equal(t, int64(2), link.Clicks)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative: path taken", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery("UPDATE links SET short_link").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintShortLink})

		_, err := repo.UpdatePath(context.Background(), 5, "taken")
		assert.ErrorIs(t, err, ErrCodeTaken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepositoryLinksByOwner(t *testing.T) {
	now := time.Now()
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT .* FROM links WHERE user_id = \\$1 ORDER BY created_at DESC").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(linkRowColumns).
			AddRow(int64(2), "http://b.com", "bbbbb", "", int64(0), now, "", int64(1)).
			AddRow(int64(1), "http://a.com", "mine", "mine", int64(4), now.Add(-time.Hour), "static/qr-codes/mine.png", int64(1)))

	links, err := repo.LinksByOwner(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "bbbbb", links[0].ShortLink)
	assert.Equal(t, "mine", links[1].CustomPath)
	assert.Equal(t, "static/qr-codes/mine.png", links[1].QRCodePath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryCreateUser(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		setup func(mock pgxmock.PgxPoolIface)
		err   error
	}{
		{
			name: "created",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO users").
					WithArgs("alice", "alice@example.com", "hash").
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
			},
		},
		{
			name: "negative: username taken",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO users").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintUsername})
			},
			err: ErrUsernameTaken,
		},
		{
			name: "negative: email taken",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO users").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintEmail})
			},
			err: ErrEmailTaken,
		},
		{
			name: "negative: connection error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO users").WillReturnError(errors.New("connection reset"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setup(mock)

			user, err := repo.CreateUser(context.Background(), &models.User{
				Username:     "alice",
				Email:        "alice@example.com",
				PasswordHash: "hash",
			})

			switch {
			case tt.err != nil:
				require.ErrorIs(t, err, tt.err)
			case tt.name == "negative: connection error":
				require.Error(t, err)
				assert.Contains(t, err.Error(), "insert user")
			default:
				require.NoError(t, err)
				assert.Equal(t, int64(1), user.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepositoryUserByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT id, username, email, password_hash, created_at FROM users").
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns))

	_, err := repo.UserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryDeleteLink(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("DELETE FROM links WHERE id = \\$1").WithArgs(int64(4)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM links WHERE id = \\$1").WithArgs(int64(4)).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.DeleteLink(context.Background(), 4))
	assert.ErrorIs(t, repo.DeleteLink(context.Background(), 4), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
