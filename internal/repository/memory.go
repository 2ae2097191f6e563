package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/models"
)

// MemoryRepository keeps users and links in process memory. When a storage
// path is configured every change is written to a JSON snapshot that is loaded
// back on start.
type MemoryRepository struct {
	mu     sync.RWMutex
	saveMu sync.Mutex

	users     map[int64]*models.User
	usernames map[string]int64
	emails    map[string]int64
	links     map[int64]*models.Link
	codes     map[string]int64

	nextUserID  int64
	nextLinkID  int64
	storagePath string
	logger      *zap.Logger
}

type snapshot struct {
	Users []models.User `json:"users"`
	Links []models.Link `json:"links"`
}

func NewMemoryRepository(storagePath string, logger *zap.Logger) (*MemoryRepository, error) {
	r := &MemoryRepository{
		users:       make(map[int64]*models.User),
		usernames:   make(map[string]int64),
		emails:      make(map[string]int64),
		links:       make(map[int64]*models.Link),
		codes:       make(map[string]int64),
		storagePath: storagePath,
		logger:      logger,
	}

	if storagePath != "" {
		if err := r.loadFromFile(); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *MemoryRepository) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	if _, ok := r.usernames[user.Username]; ok {
		r.mu.Unlock()
		return nil, ErrUsernameTaken
	}
	if _, ok := r.emails[user.Email]; ok {
		r.mu.Unlock()
		return nil, ErrEmailTaken
	}

	r.nextUserID++
	created := *user
	created.ID = r.nextUserID
	created.CreatedAt = time.Now().UTC()

	r.users[created.ID] = &created
	r.usernames[created.Username] = created.ID
	r.emails[created.Email] = created.ID
	r.mu.Unlock()

	r.persist()

	out := created
	return &out, nil
}

func (r *MemoryRepository) UserByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *MemoryRepository) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.emails[email]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.UserByID(ctx, id)
}

func (r *MemoryRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.usernames[username]
	return ok, nil
}

func (r *MemoryRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.emails[email]
	return ok, nil
}

// CreateLink checks the short link and custom path and inserts the link under
// one lock, so concurrent inserts of the same code leave exactly one winner.
func (r *MemoryRepository) CreateLink(_ context.Context, link *models.Link) (*models.Link, error) {
	r.mu.Lock()
	if _, ok := r.codes[link.ShortLink]; ok {
		r.mu.Unlock()
		return nil, ErrCodeTaken
	}
	if link.CustomPath != "" {
		if _, ok := r.codes[link.CustomPath]; ok {
			r.mu.Unlock()
			return nil, ErrCodeTaken
		}
	}

	r.nextLinkID++
	created := *link
	created.ID = r.nextLinkID
	created.Clicks = 0
	created.CreatedAt = time.Now().UTC()

	r.links[created.ID] = &created
	r.indexCodes(&created)
	r.mu.Unlock()

	r.persist()

	out := created
	return &out, nil
}

func (r *MemoryRepository) LinkByCode(_ context.Context, code string) (*models.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.byShortLink(code)
	if !ok {
		return nil, ErrNotFound
	}
	out := *link
	return &out, nil
}

func (r *MemoryRepository) LinkByOwnerAndTarget(_ context.Context, ownerID int64, longLink string) (*models.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, link := range r.links {
		if link.UserID == ownerID && link.LongLink == longLink {
			out := *link
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) CodeExists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.codes[code]
	return ok, nil
}

func (r *MemoryRepository) LinksByOwner(_ context.Context, ownerID int64) ([]models.Link, error) {
	r.mu.RLock()
	links := make([]models.Link, 0)
	for _, link := range r.links {
		if link.UserID == ownerID {
			links = append(links, *link)
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(links)
	return links, nil
}

func (r *MemoryRepository) ResolveAndCount(_ context.Context, code string) (string, error) {
	r.mu.Lock()
	link, ok := r.byShortLink(code)
	if !ok {
		r.mu.Unlock()
		return "", ErrNotFound
	}
	link.Clicks++
	target := link.LongLink
	r.mu.Unlock()

	r.persist()
	return target, nil
}

func (r *MemoryRepository) UpdatePath(_ context.Context, id int64, path string) (*models.Link, error) {
	r.mu.Lock()
	link, ok := r.links[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	if owner, taken := r.codes[path]; taken && owner != id {
		r.mu.Unlock()
		return nil, ErrCodeTaken
	}

	r.unindexCodes(link)
	link.ShortLink = path
	link.CustomPath = path
	link.QRCodePath = ""
	r.indexCodes(link)
	out := *link
	r.mu.Unlock()

	r.persist()
	return &out, nil
}

func (r *MemoryRepository) SetQRCodePath(_ context.Context, id int64, path string) error {
	r.mu.Lock()
	link, ok := r.links[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	link.QRCodePath = path
	r.mu.Unlock()

	r.persist()
	return nil
}

func (r *MemoryRepository) DeleteLink(_ context.Context, id int64) error {
	r.mu.Lock()
	link, ok := r.links[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	r.unindexCodes(link)
	delete(r.links, id)
	r.mu.Unlock()

	r.persist()
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return r.saveToFile()
}

func (r *MemoryRepository) byShortLink(code string) (*models.Link, bool) {
	id, ok := r.codes[code]
	if !ok {
		return nil, false
	}
	link := r.links[id]
	if link.ShortLink != code {
		return nil, false
	}
	return link, true
}

func (r *MemoryRepository) indexCodes(link *models.Link) {
	r.codes[link.ShortLink] = link.ID
	if link.CustomPath != "" {
		r.codes[link.CustomPath] = link.ID
	}
}

func (r *MemoryRepository) unindexCodes(link *models.Link) {
	delete(r.codes, link.ShortLink)
	if link.CustomPath != "" {
		delete(r.codes, link.CustomPath)
	}
}

func (r *MemoryRepository) persist() {
	if err := r.saveToFile(); err != nil {
		r.logger.Error("Failed to save storage snapshot",
			zap.String("path", r.storagePath),
			zap.Error(err))
	}
}

func (r *MemoryRepository) saveToFile() error {
	if r.storagePath == "" {
		return nil
	}

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.RLock()
	snap := snapshot{
		Users: make([]models.User, 0, len(r.users)),
		Links: make([]models.Link, 0, len(r.links)),
	}
	for _, u := range r.users {
		snap.Users = append(snap.Users, *u)
	}
	for _, l := range r.links {
		snap.Links = append(snap.Links, *l)
	}
	r.mu.RUnlock()

	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].ID < snap.Users[j].ID })
	sort.Slice(snap.Links, func(i, j int) bool { return snap.Links[i].ID < snap.Links[j].ID })

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if dir := filepath.Dir(r.storagePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}

	tmp := r.storagePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return os.Rename(tmp, r.storagePath)
}

func (r *MemoryRepository) loadFromFile() error {
	data, err := os.ReadFile(r.storagePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read storage file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse storage file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range snap.Users {
		u := snap.Users[i]
		r.users[u.ID] = &u
		r.usernames[u.Username] = u.ID
		r.emails[u.Email] = u.ID
		r.nextUserID = max(r.nextUserID, u.ID)
	}
	for i := range snap.Links {
		l := snap.Links[i]
		r.links[l.ID] = &l
		r.indexCodes(&l)
		r.nextLinkID = max(r.nextLinkID, l.ID)
	}

	r.logger.Info("Storage snapshot loaded",
		zap.String("path", r.storagePath),
		zap.Int("users", len(snap.Users)),
		zap.Int("links", len(snap.Links)))

	return nil
}

func sortNewestFirst(links []models.Link) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ID > links[j].ID
		}
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
}
