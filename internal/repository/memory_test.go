package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/models"
)

func newTestMemoryRepository(t *testing.T) *MemoryRepository {
	t.Helper()
	repo, err := NewMemoryRepository("", zap.NewNop())
	require.NoError(t, err)
	return repo
}

func TestMemoryRepositoryCreateLink(t *testing.T) {
	ctx := context.Background()

	type want struct {
		err error
	}

	tests := []struct {
		name     string
		existing []models.Link
		link     models.Link
		want     want
	}{
		{
			name: "fresh code",
			link: models.Link{LongLink: "http://example.com", ShortLink: "abcde", UserID: 1},
		},
		{
			name:     "negative: short link taken",
			existing: []models.Link{{LongLink: "http://a.com", ShortLink: "abcde", UserID: 1}},
			link:     models.Link{LongLink: "http://b.com", ShortLink: "abcde", UserID: 2},
			want:     want{err: ErrCodeTaken},
		},
		{
			name:     "negative: custom path equals existing short link",
			existing: []models.Link{{LongLink: "http://a.com", ShortLink: "mylink", UserID: 1}},
			link:     models.Link{LongLink: "http://b.com", ShortLink: "mylink", CustomPath: "mylink", UserID: 2},
			want:     want{err: ErrCodeTaken},
		},
		{
			name:     "negative: custom path taken",
			existing: []models.Link{{LongLink: "http://a.com", ShortLink: "mylink", CustomPath: "mylink", UserID: 1}},
			link:     models.Link{LongLink: "http://b.com", ShortLink: "mylink", CustomPath: "mylink", UserID: 1},
			want:     want{err: ErrCodeTaken},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestMemoryRepository(t)
			for i := range tt.existing {
				_, err := repo.CreateLink(ctx, &tt.existing[i])
				require.NoError(t, err)
			}

			created, err := repo.CreateLink(ctx, &tt.link)

			if tt.want.err != nil {
				require.ErrorIs(t, err, tt.want.err)
				links, err := repo.LinksByOwner(ctx, tt.link.UserID)
				require.NoError(t, err)
				for _, l := range links {
					assert.NotEqual(t, tt.link.LongLink, l.LongLink, "no row must be created")
				}
				return
			}

			require.NoError(t, err)
			assert.NotZero(t, created.ID)
			assert.False(t, created.CreatedAt.IsZero())
			assert.Zero(t, created.Clicks)

			exists, err := repo.CodeExists(ctx, tt.link.ShortLink)
			require.NoError(t, err)
			assert.True(t, exists)
		})
	}
}

func TestMemoryRepositoryConcurrentInsertKeepsOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := newTestMemoryRepository(t)

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.CreateLink(ctx, &models.Link{
				LongLink:   fmt.Sprintf("http://example.com/%d", i),
				ShortLink:  "mylink",
				CustomPath: "mylink",
				UserID:     int64(i + 1),
			})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, ErrCodeTaken)
				losers++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, workers-1, losers)
}

func TestMemoryRepositoryResolveAndCount(t *testing.T) {
	ctx := context.Background()
	repo := newTestMemoryRepository(t)

	created, err := repo.CreateLink(ctx, &models.Link{LongLink: "http://example.com", ShortLink: "abcde", UserID: 1})
	require.NoError(t, err)

	target, err := repo.ResolveAndCount(ctx, "abcde")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", target)

	_, err = repo.ResolveAndCount(ctx, "abcde")
	require.NoError(t, err)

	link, err := repo.LinkByCode(ctx, "abcde")
	require.NoError(t, err)
	assert.Equal(t, int64(2), link.Clicks)
	assert.Equal(t, created.LongLink, link.LongLink)

	_, err = repo.ResolveAndCount(ctx, "zzzzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryUpdatePath(t *testing.T) {
	ctx := context.Background()
	repo := newTestMemoryRepository(t)

	first, err := repo.CreateLink(ctx, &models.Link{LongLink: "http://a.com", ShortLink: "aaaaa", UserID: 1, QRCodePath: "qr/aaaaa.png"})
	require.NoError(t, err)
	_, err = repo.CreateLink(ctx, &models.Link{LongLink: "http://b.com", ShortLink: "taken", CustomPath: "taken", UserID: 1})
	require.NoError(t, err)

	_, err = repo.UpdatePath(ctx, first.ID, "taken")
	require.ErrorIs(t, err, ErrCodeTaken)

	unchanged, err := repo.LinkByCode(ctx, "aaaaa")
	require.NoError(t, err)
	assert.Equal(t, "", unchanged.CustomPath)

	updated, err := repo.UpdatePath(ctx, first.ID, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", updated.ShortLink)
	assert.Equal(t, "fresh", updated.CustomPath)
	assert.Empty(t, updated.QRCodePath)

	_, err = repo.LinkByCode(ctx, "aaaaa")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := repo.CodeExists(ctx, "aaaaa")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.UpdatePath(ctx, 999, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestMemoryRepository(t)

	user, err := repo.CreateUser(ctx, &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	_, err = repo.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = repo.CreateUser(ctx, &models.User{Username: "bob", Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	found, err := repo.UserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := repo.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryRepositoryDeleteAndListing(t *testing.T) {
	ctx := context.Background()
	repo := newTestMemoryRepository(t)

	for i, code := range []string{"first", "second", "third"} {
		_, err := repo.CreateLink(ctx, &models.Link{LongLink: fmt.Sprintf("http://%d.com", i), ShortLink: code, UserID: 7})
		require.NoError(t, err)
	}
	_, err := repo.CreateLink(ctx, &models.Link{LongLink: "http://other.com", ShortLink: "other", UserID: 8})
	require.NoError(t, err)

	links, err := repo.LinksByOwner(ctx, 7)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "third", links[0].ShortLink)
	assert.Equal(t, "first", links[2].ShortLink)

	require.NoError(t, repo.DeleteLink(ctx, links[0].ID))
	assert.ErrorIs(t, repo.DeleteLink(ctx, links[0].ID), ErrNotFound)

	links, err = repo.LinksByOwner(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestMemoryRepositorySnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "storage.json")

	repo, err := NewMemoryRepository(path, zap.NewNop())
	require.NoError(t, err)

	user, err := repo.CreateUser(ctx, &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	_, err = repo.CreateLink(ctx, &models.Link{LongLink: "http://example.com", ShortLink: "abcde", UserID: user.ID})
	require.NoError(t, err)
	_, err = repo.ResolveAndCount(ctx, "abcde")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reloaded, err := NewMemoryRepository(path, zap.NewNop())
	require.NoError(t, err)

	link, err := reloaded.LinkByCode(ctx, "abcde")
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.Clicks)
	assert.Equal(t, user.ID, link.UserID)

	next, err := reloaded.CreateLink(ctx, &models.Link{LongLink: "http://example.org", ShortLink: "fghij", UserID: user.ID})
	require.NoError(t, err)
	assert.Greater(t, next.ID, link.ID)

	_, err = reloaded.CreateUser(ctx, &models.User{Username: "alice", Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}
