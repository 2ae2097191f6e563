package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/models"
	"github.com/mmeshcher/scissor/internal/repository"
	"github.com/mmeshcher/scissor/internal/shortcode"
)

const (
	defaultCodeLength = 5
	maxInsertAttempts = 3
)

type linkRepository interface {
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
}

type qrCache interface {
	Get(ctx context.Context, code string) ([]byte, bool, error)
	Set(ctx context.Context, code string, png []byte) error
	Delete(ctx context.Context, code string) error
}

type assetStore interface {
	Save(code, content string) (string, []byte, error)
	Load(path string) ([]byte, error)
	Remove(path string) error
}

type prober interface {
	Probe(ctx context.Context, target string) error
}

type LinkConfig struct {
	BaseURL    string
	CodeLength int
	QROnCreate bool
	Resolver   *shortcode.Resolver
}

type LinkService struct {
	repo       linkRepository
	cache      qrCache
	assets     assetStore
	probe      prober
	resolver   *shortcode.Resolver
	baseURL    string
	codeLength int
	qrOnCreate bool
	logger     *zap.Logger
}

func NewLinkService(repo linkRepository, cache qrCache, assets assetStore, probe prober, cfg LinkConfig, logger *zap.Logger) *LinkService {
	s := &LinkService{
		repo:       repo,
		cache:      cache,
		assets:     assets,
		probe:      probe,
		resolver:   cfg.Resolver,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		codeLength: cfg.CodeLength,
		qrOnCreate: cfg.QROnCreate,
		logger:     logger,
	}

	if s.resolver == nil {
		s.resolver = shortcode.NewResolver()
	}
	if s.codeLength <= 0 {
		s.codeLength = defaultCodeLength
	}
	if s.probe == nil {
		s.probe = NopProber{}
	}

	return s
}

// Submit validates and stores a new link for req.OwnerID. The storage
// uniqueness constraint decides collisions; the lookups made beforehand only
// produce friendlier errors.
func (s *LinkService) Submit(ctx context.Context, req models.SubmitRequest) (*models.Link, error) {
	req.LongURL = strings.TrimSpace(req.LongURL)
	req.CustomPath = strings.TrimSpace(req.CustomPath)

	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.CustomPath != "" {
		if err := checkPath(req.CustomPath); err != nil {
			return nil, err
		}
	}

	longURL, err := normalizeURL(req.LongURL)
	if err != nil {
		return nil, err
	}

	if err := s.probe.Probe(ctx, longURL); err != nil {
		s.logger.Info("Target rejected by reachability check",
			zap.String("url", longURL),
			zap.Error(err))
		if errors.Is(err, ErrUnreachableTarget) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachableTarget, err)
	}

	_, err = s.repo.LinkByOwnerAndTarget(ctx, req.OwnerID, longURL)
	switch {
	case err == nil:
		return nil, ErrDuplicateLink
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup existing link: %w", err)
	}

	var link *models.Link
	if req.CustomPath != "" {
		link, err = s.createCustom(ctx, longURL, req.CustomPath, req.OwnerID)
	} else {
		link, err = s.createGenerated(ctx, longURL, req.OwnerID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Link created",
		zap.String("code", link.ShortLink),
		zap.Int64("user_id", link.UserID))

	if s.qrOnCreate {
		if _, err := s.storeQRCode(ctx, link); err != nil {
			s.logger.Warn("Failed to store qr code",
				zap.String("code", link.ShortLink),
				zap.Error(err))
		}
	}

	return link, nil
}

func (s *LinkService) createCustom(ctx context.Context, longURL, path string, ownerID int64) (*models.Link, error) {
	if err := s.resolver.Claim(ctx, s.repo.CodeExists, path); err != nil {
		if errors.Is(err, shortcode.ErrCodeUnavailable) {
			return nil, ErrPathTaken
		}
		return nil, err
	}

	link, err := s.repo.CreateLink(ctx, &models.Link{
		LongLink:   longURL,
		ShortLink:  path,
		CustomPath: path,
		UserID:     ownerID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrCodeTaken) {
			return nil, ErrPathTaken
		}
		return nil, fmt.Errorf("create link: %w", err)
	}

	return link, nil
}

func (s *LinkService) createGenerated(ctx context.Context, longURL string, ownerID int64) (*models.Link, error) {
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		code, err := s.resolver.Resolve(ctx, s.repo.CodeExists, s.codeLength)
		if err != nil {
			if errors.Is(err, shortcode.ErrRetryExhausted) {
				s.logger.Error("Short code space exhausted", zap.Int("length", s.codeLength))
				return nil, ErrCollisionRetryExhausted
			}
			return nil, err
		}

		link, err := s.repo.CreateLink(ctx, &models.Link{
			LongLink:  longURL,
			ShortLink: code,
			UserID:    ownerID,
		})
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, repository.ErrCodeTaken) {
			return nil, fmt.Errorf("create link: %w", err)
		}

		s.logger.Debug("Short code taken at insert, retrying",
			zap.String("code", code),
			zap.Int("attempt", attempt))
	}

	return nil, ErrCollisionRetryExhausted
}

// ResolveAndCount returns the target of code and records one click. Both
// happen in a single storage statement, so the count stays exact and a
// missing code is never counted.
func (s *LinkService) ResolveAndCount(ctx context.Context, code string) (string, error) {
	target, err := s.repo.ResolveAndCount(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve code: %w", err)
	}

	return target, nil
}

// Link returns the link behind code if ownerID owns it.
func (s *LinkService) Link(ctx context.Context, code string, ownerID int64) (*models.Link, error) {
	link, err := s.repo.LinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get link: %w", err)
	}
	if link.UserID != ownerID {
		return nil, ErrUnauthorized
	}
	return link, nil
}

func (s *LinkService) UserLinks(ctx context.Context, ownerID int64) ([]models.Link, error) {
	links, err := s.repo.LinksByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// UpdatePath replaces the short link of code with newPath. An empty newPath
// leaves the link unchanged.
func (s *LinkService) UpdatePath(ctx context.Context, code string, ownerID int64, newPath string) (*models.Link, error) {
	link, err := s.Link(ctx, code, ownerID)
	if err != nil {
		return nil, err
	}

	newPath = strings.TrimSpace(newPath)
	if newPath == "" || newPath == link.ShortLink {
		return link, nil
	}
	if err := checkPath(newPath); err != nil {
		return nil, err
	}

	if err := s.resolver.Claim(ctx, s.repo.CodeExists, newPath); err != nil {
		if errors.Is(err, shortcode.ErrCodeUnavailable) {
			return nil, ErrPathTaken
		}
		return nil, err
	}

	updated, err := s.repo.UpdatePath(ctx, link.ID, newPath)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCodeTaken):
			return nil, ErrPathTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		default:
			return nil, fmt.Errorf("update path: %w", err)
		}
	}

	s.evict(ctx, link.ShortLink)
	s.removeAsset(link)

	s.logger.Info("Link path updated",
		zap.String("old_code", link.ShortLink),
		zap.String("new_code", updated.ShortLink))

	return updated, nil
}

func (s *LinkService) Delete(ctx context.Context, code string, ownerID int64) error {
	link, err := s.Link(ctx, code, ownerID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteLink(ctx, link.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete link: %w", err)
	}

	s.evict(ctx, link.ShortLink)
	s.removeAsset(link)

	s.logger.Info("Link deleted",
		zap.String("code", link.ShortLink),
		zap.Int64("user_id", ownerID))

	return nil
}

// QRCode returns a PNG pointing at the short URL of code. The image only
// depends on the code, so a cached one is served as is; otherwise the stored
// asset is read, or rendered and recorded when there is none.
func (s *LinkService) QRCode(ctx context.Context, code string, ownerID int64) ([]byte, error) {
	link, err := s.Link(ctx, code, ownerID)
	if err != nil {
		return nil, err
	}

	png, hit, err := s.cache.Get(ctx, link.ShortLink)
	if err != nil {
		s.logger.Warn("Cache lookup failed", zap.String("code", link.ShortLink), zap.Error(err))
	}
	if hit {
		return png, nil
	}

	png, err = s.loadQRCode(ctx, link)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, link.ShortLink, png); err != nil {
		s.logger.Warn("Cache store failed", zap.String("code", link.ShortLink), zap.Error(err))
	}

	return png, nil
}

func (s *LinkService) loadQRCode(ctx context.Context, link *models.Link) ([]byte, error) {
	if link.QRCodePath != "" {
		png, err := s.assets.Load(link.QRCodePath)
		if err == nil {
			return png, nil
		}
		s.logger.Warn("Stored qr code unreadable, rendering again",
			zap.String("path", link.QRCodePath),
			zap.Error(err))
	}

	return s.storeQRCode(ctx, link)
}

func (s *LinkService) storeQRCode(ctx context.Context, link *models.Link) ([]byte, error) {
	path, png, err := s.assets.Save(link.ShortLink, s.ShortURL(link))
	if err != nil {
		return nil, fmt.Errorf("save qr code: %w", err)
	}

	if err := s.repo.SetQRCodePath(ctx, link.ID, path); err != nil {
		s.logger.Warn("Failed to record qr code path",
			zap.String("code", link.ShortLink),
			zap.Error(err))
	} else {
		link.QRCodePath = path
	}

	return png, nil
}

func (s *LinkService) ShortURL(link *models.Link) string {
	u, err := url.JoinPath(s.baseURL, link.ShortLink)
	if err != nil {
		return s.baseURL + "/" + link.ShortLink
	}
	return u
}

func (s *LinkService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *LinkService) evict(ctx context.Context, code string) {
	if err := s.cache.Delete(ctx, code); err != nil {
		s.logger.Warn("Cache eviction failed", zap.String("code", code), zap.Error(err))
	}
}

func (s *LinkService) removeAsset(link *models.Link) {
	if link.QRCodePath == "" {
		return
	}
	if err := s.assets.Remove(link.QRCodePath); err != nil {
		s.logger.Error("Failed to remove qr code",
			zap.String("code", link.ShortLink),
			zap.String("path", link.QRCodePath),
			zap.Error(err))
	}
}
