package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"love-vault-backend/internal/config"
	"love-vault-backend/internal/models"
	"love-vault-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const profilePhotoName = "profile"

// Upload is one file received from a client
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaService manages moment media and profile photos in object storage
type MediaService struct {
	store         storage.ObjectStore
	momentBucket  string
	profileBucket string
	profilePublic bool
	signedURLTTL  time.Duration
	maxFiles      int
	now           func() time.Time
}

// NewMediaService creates a new media service
func NewMediaService(store storage.ObjectStore, cfg config.StorageConfig) *MediaService {
	return &MediaService{
		store:         store,
		momentBucket:  cfg.MomentBucket,
		profileBucket: cfg.ProfileBucket,
		profilePublic: cfg.ProfileBucketPublic,
		signedURLTTL:  cfg.SignedURLTTL,
		maxFiles:      cfg.MaxFilesPerPost,
		now:           time.Now,
	}
}

// SignedURLTTL is how long issued URLs stay valid
func (s *MediaService) SignedURLTTL() time.Duration {
	return s.signedURLTTL
}

// MomentKey derives a unique object key {userID}/{millis}-{random}.{ext}
func (s *MediaService) MomentKey(userID, filename string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s/%d-%s.%s", userID, s.now().UnixMilli(), suffix, extension(filename))
}

// ProfileKey is the fixed key of a user's profile photo
func ProfileKey(userID string) string {
	return userID + "/" + profilePhotoName
}

// UploadMomentMedia stores files concurrently and returns their keys in input order.
// The first failure cancels the remaining uploads and removes the ones that finished.
func (s *MediaService) UploadMomentMedia(ctx context.Context, userID string, files []Upload) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.maxFiles > 0 && len(files) > s.maxFiles {
		return nil, models.NewValidationError("files", fmt.Sprintf("At most %d files per moment", s.maxFiles))
	}
	for _, f := range files {
		if KindOfContentType(f.ContentType) == models.MediaKindOther {
			return nil, &models.ValidationError{Fields: map[string]string{
				"files": fmt.Sprintf("%s: %s", f.Filename, models.ErrUnsupportedMedia),
			}}
		}
	}

	keys := make([]string, len(files))
	uploaded := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		key := s.MomentKey(userID, f.Filename)
		keys[i] = key
		g.Go(func() error {
			err := s.store.Upload(gctx, s.momentBucket, key, f.Body, storage.UploadOptions{
				ContentType: f.ContentType,
				Size:        f.Size,
			})
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", f.Filename, err)
			}
			uploaded[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var done []string
		for i, ok := range uploaded {
			if ok {
				done = append(done, keys[i])
			}
		}
		s.RemoveMomentMedia(context.WithoutCancel(ctx), done)
		return nil, err
	}

	return keys, nil
}

// UploadProfilePhoto stores the photo at the user's fixed key, replacing any previous one
func (s *MediaService) UploadProfilePhoto(ctx context.Context, userID string, file Upload) (string, error) {
	if KindOfContentType(file.ContentType) != models.MediaKindImage {
		return "", models.NewValidationError("photo", models.ErrUnsupportedMedia.Error())
	}

	key := ProfileKey(userID)
	err := s.store.Upload(ctx, s.profileBucket, key, file.Body, storage.UploadOptions{
		ContentType: file.ContentType,
		Size:        file.Size,
		Overwrite:   true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload profile photo: %w", err)
	}
	return key, nil
}

// SignedURL issues a URL for an object in one of the media buckets. The object must
// live under the caller's prefix.
func (s *MediaService) SignedURL(ctx context.Context, userID, bucket, ref string) (string, error) {
	if bucket != s.momentBucket && bucket != s.profileBucket {
		return "", models.NewValidationError("bucket", "Unknown bucket")
	}

	key := KeyFromReference(bucket, ref)
	if !ownsKey(userID, key) {
		return "", models.ErrForbiddenPath
	}

	if bucket == s.profileBucket && s.profilePublic {
		return s.store.PublicURL(bucket, key), nil
	}
	return s.store.SignedURL(ctx, bucket, key, s.signedURLTTL)
}

// SignMomentMedia resolves every media reference of m. References that cannot be
// signed are logged and skipped.
func (s *MediaService) SignMomentMedia(ctx context.Context, m *models.Moment) []models.SignedMedia {
	signed := make([]models.SignedMedia, 0, len(m.MediaURLs))
	for _, ref := range m.MediaURLs {
		if ref == "" {
			continue
		}
		u, err := s.SignedURL(ctx, m.UserID, s.momentBucket, ref)
		if err != nil {
			log.Error().
				Err(err).
				Str("moment_id", m.ID).
				Str("ref", ref).
				Msg("Failed to sign moment media")
			continue
		}
		signed = append(signed, models.SignedMedia{
			URL:      u,
			Type:     KindOf(ref),
			Original: ref,
		})
	}
	return signed
}

// PhotoURL resolves the profile photo to a fetchable URL, or "" when there is none
func (s *MediaService) PhotoURL(ctx context.Context, p *models.Profile) string {
	if p.ProfilePhotoURL == nil || *p.ProfilePhotoURL == "" {
		return ""
	}
	u, err := s.SignedURL(ctx, p.ID, s.profileBucket, *p.ProfilePhotoURL)
	if err != nil {
		log.Error().Err(err).Str("user_id", p.ID).Msg("Failed to resolve profile photo")
		return ""
	}
	return u
}

// RemoveMomentMedia deletes every reference concurrently. Failures are isolated
// per object and logged; the references that could not be removed are returned.
func (s *MediaService) RemoveMomentMedia(ctx context.Context, refs []string) []string {
	var (
		mu     sync.Mutex
		failed []string
		g      errgroup.Group
	)
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		g.Go(func() error {
			key := KeyFromReference(s.momentBucket, ref)
			if err := s.store.Remove(ctx, s.momentBucket, key); err != nil {
				log.Error().Err(err).Str("ref", ref).Msg("Failed to delete media object")
				mu.Lock()
				failed = append(failed, ref)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

// RemoveProfilePhoto deletes a stored profile photo. Failures are logged only.
func (s *MediaService) RemoveProfilePhoto(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	key := KeyFromReference(s.profileBucket, ref)
	if err := s.store.Remove(ctx, s.profileBucket, key); err != nil {
		log.Error().Err(err).Str("ref", ref).Msg("Failed to delete profile photo")
	}
}

// KeyFromReference turns a stored reference into an object key. References may be
// bare keys, Supabase-style public/sign URLs, or path-style and virtual-host bucket URLs.
func KeyFromReference(bucket, ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
	}

	for _, prefix := range []string{
		"/storage/v1/object/sign/" + bucket + "/",
		"/storage/v1/object/public/" + bucket + "/",
		"/" + bucket + "/",
	} {
		if i := strings.Index(p, prefix); i >= 0 {
			return p[i+len(prefix):]
		}
	}
	return strings.TrimPrefix(p, "/")
}

// KindOf classifies a key or URL by its file extension
func KindOf(ref string) models.MediaKind {
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		ref = u.Path
	}
	switch strings.ToLower(path.Ext(ref)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return models.MediaKindImage
	case ".mp4", ".mov", ".webm":
		return models.MediaKindVideo
	default:
		return models.MediaKindOther
	}
}

// KindOfContentType classifies an upload by its declared MIME type
func KindOfContentType(contentType string) models.MediaKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaKindImage
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaKindVideo
	default:
		return models.MediaKindOther
	}
}

func ownsKey(userID, key string) bool {
	if userID == "" || strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, userID+"/")
}

func extension(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}
