package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"love-vault-backend/internal/config"
	"love-vault-backend/internal/models"
	"love-vault-backend/internal/storage"
)

var errStoreDown = errors.New("store unavailable")

// fakeMomentStore keeps moments in memory and applies the same (id, user_id) scoping
// as the SQL repository.
type fakeMomentStore struct {
	mu      sync.Mutex
	moments map[string]*models.Moment
	clock   time.Time

	listErr   error
	datesErr  error
	createErr error
	updateErr error
	mediaErr  error
	writes    int
}

func newFakeMomentStore() *fakeMomentStore {
	return &fakeMomentStore{
		moments: make(map[string]*models.Moment),
		clock:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeMomentStore) put(m *models.Moment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	cp := *m
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = f.clock
	}
	cp.UpdatedAt = cp.CreatedAt
	f.moments[cp.ID] = &cp
}

func (f *fakeMomentStore) Create(ctx context.Context, m *models.Moment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	f.put(m)
	f.mu.Lock()
	m.CreatedAt = f.moments[m.ID].CreatedAt
	m.UpdatedAt = m.CreatedAt
	f.mu.Unlock()
	return nil
}

func (f *fakeMomentStore) GetByID(ctx context.Context, id, userID string) (*models.Moment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.moments[id]
	if !ok || m.UserID != userID {
		return nil, fmt.Errorf("moment %w", models.ErrNotFound)
	}
	cp := *m
	cp.MediaURLs = append([]string(nil), m.MediaURLs...)
	return &cp, nil
}

func (f *fakeMomentStore) ListPage(ctx context.Context, userID string, offset, limit int) ([]*models.Moment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var owned []*models.Moment
	for _, m := range f.moments {
		if m.UserID == userID {
			cp := *m
			owned = append(owned, &cp)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if offset >= len(owned) {
		return []*models.Moment{}, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

func (f *fakeMomentStore) ListDatesSince(ctx context.Context, userID string, since models.Date) ([]models.Date, error) {
	if f.datesErr != nil {
		return nil, f.datesErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var dates []models.Date
	for _, m := range f.moments {
		if m.UserID == userID && !m.MomentDate.Before(since.Time) {
			dates = append(dates, m.MomentDate)
		}
	}
	return dates, nil
}

func (f *fakeMomentStore) GetMediaURLs(ctx context.Context, id, userID string) ([]string, error) {
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	m, err := f.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return m.MediaURLs, nil
}

func (f *fakeMomentStore) Update(ctx context.Context, m *models.Moment) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.moments[m.ID]
	if !ok || cur.UserID != m.UserID {
		return fmt.Errorf("moment %w", models.ErrNotFound)
	}
	f.writes++
	cp := *m
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = cur.UpdatedAt.Add(time.Minute)
	f.moments[m.ID] = &cp
	m.CreatedAt, m.UpdatedAt = cp.CreatedAt, cp.UpdatedAt
	return nil
}

func (f *fakeMomentStore) Delete(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.moments[id]
	if !ok || m.UserID != userID {
		return fmt.Errorf("moment %w", models.ErrNotFound)
	}
	f.writes++
	delete(f.moments, id)
	return nil
}

func (f *fakeMomentStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.moments)
}

// fakeObjectStore is an in-memory bucket/key store with per-key failure injection
type fakeObjectStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	uploads    []string
	removals   []string
	failUpload func(key string) bool
	failRemove map[string]bool
	signErr    error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects:    make(map[string][]byte),
		failRemove: make(map[string]bool),
	}
}

func (f *fakeObjectStore) Upload(ctx context.Context, bucket, key string, body io.Reader, opts storage.UploadOptions) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, bucket+"/"+key)
	if f.failUpload != nil && f.failUpload(key) {
		return errors.New("upload rejected")
	}
	if _, exists := f.objects[bucket+"/"+key]; exists && !opts.Overwrite {
		return errors.New("object already exists")
	}
	f.objects[bucket+"/"+key] = data
	return nil
}

func (f *fakeObjectStore) PublicURL(bucket, key string) string {
	return "https://cdn.test/" + bucket + "/" + key
}

func (f *fakeObjectStore) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return fmt.Sprintf("https://s3.test/%s/%s?X-Amz-Expires=%d", bucket, key, int(ttl.Seconds())), nil
}

func (f *fakeObjectStore) Remove(ctx context.Context, bucket string, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		f.removals = append(f.removals, bucket+"/"+key)
		if f.failRemove[key] {
			return errors.New("remove rejected")
		}
		delete(f.objects, bucket+"/"+key)
	}
	return nil
}

func (f *fakeObjectStore) has(bucket, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[bucket+"/"+key]
	return ok
}

func (f *fakeObjectStore) removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.removals...)
	sort.Strings(out)
	return out
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	getErr   error
	upserts  int
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*models.Profile)}
}

func (f *fakeProfileStore) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileStore) Upsert(ctx context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if cur, ok := f.profiles[p.ID]; ok && p.ProfilePhotoURL == nil {
		p.ProfilePhotoURL = cur.ProfilePhotoURL
	}
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeProfileStore) UpdateDetails(ctx context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.profiles[p.ID]
	if !ok {
		return models.ErrProfileNotFound
	}
	cur.Username = p.Username
	cur.PartnerName = p.PartnerName
	cur.PartnerBirthday = p.PartnerBirthday
	cur.RelationshipStartDate = p.RelationshipStartDate
	return nil
}

func (f *fakeProfileStore) SetPhoto(ctx context.Context, id string, ref *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.profiles[id]
	if !ok {
		return models.ErrProfileNotFound
	}
	cur.ProfilePhotoURL = ref
	return nil
}

type fakeUserStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	getErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return errors.New("duplicate email")
		}
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %w", models.ErrNotFound)
}

func (f *fakeUserStore) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newFakeRevoker() *fakeRevoker {
	return &fakeRevoker{revoked: make(map[string]time.Duration)}
}

func (f *fakeRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tokenID] = ttl
	return nil
}

func (f *fakeRevoker) RevokeOnce(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.revoked[tokenID]; ok || ttl <= 0 {
		return false, nil
	}
	f.revoked[tokenID] = ttl
	return true, nil
}

func (f *fakeRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[tokenID]
	return ok, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(userID string, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func testStorageConfig() config.StorageConfig {
	return config.StorageConfig{
		MomentBucket:    "moment-media",
		ProfileBucket:   "profile-photos",
		SignedURLTTL:    time.Hour,
		MaxFilesPerPost: 5,
	}
}

func newTestMedia(store storage.ObjectStore) *MediaService {
	return NewMediaService(store, testStorageConfig())
}

func upload(name, contentType, body string) Upload {
	return Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}
