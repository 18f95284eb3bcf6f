package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/videos"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]models.User)}
}

func (s *memoryUsers) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memoryUsers) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *memoryUsers) FindByLogin(_ context.Context, username, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *memoryUsers) Update(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *memoryUsers) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			return models.ChannelProfile{PublicUser: user.Public(), CoverImage: user.CoverImage}, nil
		}
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

type memoryVideos struct {
	mu       sync.Mutex
	videos   map[string]models.Video
	lastList videos.ListOptions
}

func newMemoryVideos() *memoryVideos {
	return &memoryVideos{videos: make(map[string]models.Video)}
}

func (s *memoryVideos) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *memoryVideos) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

// visible mirrors the repository rule: drafts are only seen by their owner.
func (s *memoryVideos) visible(id, viewerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok || (!video.IsPublished && video.OwnerID != viewerID) {
		return repositories.ErrNotFound
	}
	return nil
}

func (s *memoryVideos) List(_ context.Context, opts videos.ListOptions) (models.VideoPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastList = opts

	items := []models.VideoListItem{}
	for _, video := range s.videos {
		if video.IsPublished {
			items = append(items, models.VideoListItem{Video: video})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return models.VideoPage{Videos: items, PagingInfo: models.NewPagingInfo(int64(len(items)), opts.Page, opts.Limit)}, nil
}

func (s *memoryVideos) Detail(_ context.Context, id, viewerID string) (models.VideoDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok || (!video.IsPublished && video.OwnerID != viewerID) {
		return models.VideoDetail{}, repositories.ErrNotFound
	}
	return models.VideoDetail{Video: video}, nil
}

func (s *memoryVideos) Update(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

func (s *memoryVideos) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *memoryVideos) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return nil
}

type memorySubscriptions struct {
	mu    sync.Mutex
	users *memoryUsers
	edges map[[2]string]bool
}

func (s *memorySubscriptions) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if _, err := s.users.FindByID(ctx, channelID); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{subscriberID, channelID}
	if s.edges[key] {
		delete(s.edges, key)
		return false, nil
	}
	s.edges[key] = true
	return true, nil
}

func (s *memorySubscriptions) ListSubscribers(ctx context.Context, channelID string) ([]models.PublicUser, error) {
	return s.list(ctx, func(edge [2]string) (string, bool) { return edge[0], edge[1] == channelID })
}

func (s *memorySubscriptions) ListChannels(ctx context.Context, subscriberID string) ([]models.PublicUser, error) {
	return s.list(ctx, func(edge [2]string) (string, bool) { return edge[1], edge[0] == subscriberID })
}

func (s *memorySubscriptions) list(ctx context.Context, pick func([2]string) (string, bool)) ([]models.PublicUser, error) {
	s.mu.Lock()
	var ids []string
	for edge := range s.edges {
		if id, ok := pick(edge); ok {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	out := []models.PublicUser{}
	for _, id := range ids {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, user.Public())
	}
	return out, nil
}

type memoryLikes struct {
	mu     sync.Mutex
	videos *memoryVideos
	likes  map[[2]string]bool
}

func (s *memoryLikes) Toggle(_ context.Context, userID, videoID string, liked bool) (models.LikeState, error) {
	if err := s.videos.visible(videoID, userID); err != nil {
		return models.LikeState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{userID, videoID}
	current, exists := s.likes[key]
	switch {
	case exists && current == liked:
		delete(s.likes, key)
		return models.LikeState{}, nil
	default:
		s.likes[key] = liked
		return models.LikeState{IsLiked: liked, IsDisliked: !liked}, nil
	}
}

func (s *memoryLikes) ListLikedVideos(ctx context.Context, userID string) ([]models.VideoListItem, error) {
	s.mu.Lock()
	var ids []string
	for key, liked := range s.likes {
		if key[0] == userID && liked {
			ids = append(ids, key[1])
		}
	}
	s.mu.Unlock()

	out := []models.VideoListItem{}
	for _, id := range ids {
		video, err := s.videos.FindByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, models.VideoListItem{Video: video})
	}
	return out, nil
}

type memoryComments struct {
	mu       sync.Mutex
	videos   *memoryVideos
	comments map[string]models.Comment
	lastPage [2]int
}

func (s *memoryComments) Create(_ context.Context, comment models.Comment) error {
	if err := s.videos.visible(comment.VideoID, comment.OwnerID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = comment
	return nil
}

func (s *memoryComments) FindByID(_ context.Context, id string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *memoryComments) List(_ context.Context, videoID, viewerID string, page, limit int) (models.CommentPage, error) {
	if err := s.videos.visible(videoID, viewerID); err != nil {
		return models.CommentPage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPage = [2]int{page, limit}
	out := []models.Comment{}
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			out = append(out, comment)
		}
	}
	return models.CommentPage{Comments: out, PagingInfo: models.NewPagingInfo(int64(len(out)), page, limit)}, nil
}

func (s *memoryComments) Update(_ context.Context, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[comment.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.comments[comment.ID] = comment
	return nil
}

func (s *memoryComments) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

type memoryPlaylists struct {
	mu        sync.Mutex
	videos    *memoryVideos
	playlists map[string]models.Playlist
	entries   map[string][]string
}

func (s *memoryPlaylists) Create(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *memoryPlaylists) FindByID(ctx context.Context, id, viewerID string) (models.Playlist, error) {
	s.mu.Lock()
	playlist, ok := s.playlists[id]
	entries := append([]string(nil), s.entries[id]...)
	s.mu.Unlock()
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}

	playlist.Videos = []models.VideoListItem{}
	for _, videoID := range entries {
		video, err := s.videos.FindByID(ctx, videoID)
		if err != nil || (!video.IsPublished && video.OwnerID != viewerID) {
			continue
		}
		playlist.Videos = append(playlist.Videos, models.VideoListItem{Video: video})
	}
	playlist.TotalVideos = len(playlist.Videos)
	return playlist, nil
}

func (s *memoryPlaylists) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Playlist{}
	for _, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			playlist.TotalVideos = len(s.entries[playlist.ID])
			out = append(out, playlist)
		}
	}
	return out, nil
}

func (s *memoryPlaylists) Update(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[playlist.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *memoryPlaylists) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	delete(s.entries, id)
	return nil
}

func (s *memoryPlaylists) AddVideo(ctx context.Context, playlistID, videoID string) error {
	if _, err := s.videos.FindByID(ctx, videoID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries[playlistID] {
		if existing == videoID {
			return repositories.ErrConflict
		}
	}
	s.entries[playlistID] = append(s.entries[playlistID], videoID)
	return nil
}

func (s *memoryPlaylists) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.entries[playlistID]
	for i, existing := range entries {
		if existing == videoID {
			s.entries[playlistID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeRelay struct {
	mu       sync.Mutex
	uploads  []storage.Kind
	deleted  []string
	failKind storage.Kind
	seq      int
}

func (f *fakeRelay) Upload(_ context.Context, _ string, kind storage.Kind) (storage.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == f.failKind {
		return storage.Asset{}, errors.New("media host timeout")
	}
	f.seq++
	f.uploads = append(f.uploads, kind)
	key := fmt.Sprintf("%s/%d", kind, f.seq)
	asset := storage.Asset{URL: "https://cdn.test/" + key, Key: key}
	if kind == storage.KindVideo {
		asset.Duration = 12.5
	}
	return asset, nil
}

func (f *fakeRelay) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

func (f *fakeRelay) uploadedKinds() []storage.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.Kind(nil), f.uploads...)
}

func (f *fakeRelay) deletedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type limiterStub struct {
	deny bool
	keys []string
}

func (l *limiterStub) Allow(_ context.Context, key string) bool {
	l.keys = append(l.keys, key)
	return !l.deny
}

type testEnv struct {
	mux           *http.ServeMux
	manager       *auth.Manager
	sessions      *auth.InMemorySessionStore
	users         *memoryUsers
	videos        *memoryVideos
	subscriptions *memorySubscriptions
	likes         *memoryLikes
	comments      *memoryComments
	playlists     *memoryPlaylists
	relay         *fakeRelay
	limiter       *limiterStub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMemoryUsers()
	videoStore := newMemoryVideos()
	sessions := auth.NewInMemorySessionStore()

	env := &testEnv{
		mux:           http.NewServeMux(),
		manager:       auth.NewManager(auth.TokenConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"}, sessions),
		sessions:      sessions,
		users:         users,
		videos:        videoStore,
		subscriptions: &memorySubscriptions{users: users, edges: make(map[[2]string]bool)},
		likes:         &memoryLikes{videos: videoStore, likes: make(map[[2]string]bool)},
		comments:      &memoryComments{videos: videoStore, comments: make(map[string]models.Comment)},
		playlists:     &memoryPlaylists{videos: videoStore, playlists: make(map[string]models.Playlist), entries: make(map[string][]string)},
		relay:         &fakeRelay{},
		limiter:       &limiterStub{},
	}

	RegisterRoutes(env.mux, Dependencies{
		Users:         env.users,
		Sessions:      env.manager,
		Videos:        env.videos,
		Subscriptions: env.subscriptions,
		Likes:         env.likes,
		Comments:      env.comments,
		Playlists:     env.playlists,
		Media:         env.relay,
		LoginLimiter:  env.limiter,
		Uploads:       UploadSettings{Dir: t.TempDir(), MaxBytes: 1 << 20},
		Cookies:       CookieSettings{Secure: true},
	})
	return env
}

func (e *testEnv) seedUser(t *testing.T, username, password string) models.User {
	t.Helper()
	hashed, err := auth.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		FullName:  username,
		Password:  hashed,
		Avatar:    "https://cdn.test/avatar/" + username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) seedVideo(t *testing.T, owner models.User, title string, published bool) models.Video {
	t.Helper()
	now := time.Now().UTC()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		VideoFile:   "https://cdn.test/video/" + title,
		Thumbnail:   "https://cdn.test/thumbnail/" + title,
		Title:       title,
		Description: "about " + title,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, e.videos.Create(context.Background(), video))
	return video
}

// serve dispatches req through the mux, authenticating as user when non-nil.
func (e *testEnv) serve(t *testing.T, req *http.Request, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	if user != nil {
		token, _, err := e.manager.IssueAccessToken(user.ID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, target string, values map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range values {
		require.NoError(t, writer.WriteField(key, value))
	}
	for field, filename := range files {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("file contents of " + filename))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

type envelopeBody[T any] struct {
	StatusCode int      `json:"statusCode"`
	Data       T        `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) envelopeBody[T] {
	t.Helper()
	var body envelopeBody[T]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body), rec.Body.String())
	return body
}
