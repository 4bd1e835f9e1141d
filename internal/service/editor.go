package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"bienestar/internal/models"
	"bienestar/internal/observability"
	"bienestar/internal/storage"

	"github.com/google/uuid"
)

// ExcerptLength is the number of leading content runes used when the author
// leaves the excerpt blank.
const ExcerptLength = 150

// imageFolder is where editor uploads land in the blob store.
const imageFolder = "blog-images"

// SaveIntent distinguishes the two explicit save buttons.
type SaveIntent string

const (
	// SaveDraft stores the post unpublished.
	SaveDraft SaveIntent = "draft"
	// SavePublish stores the post published.
	SavePublish SaveIntent = "publish"
)

// EditorUpdate is a partial edit from the form. Nil fields are untouched.
// Publication state is not settable here; it is decided by the save intent.
type EditorUpdate struct {
	Title              *string    `json:"title"`
	Excerpt            *string    `json:"excerpt"`
	Content            *string    `json:"content"`
	Category           *string    `json:"category"`
	IsMandatoryReading *bool      `json:"isMandatoryReading"`
	PublishDate        *time.Time `json:"publishDate"`
}

// EditorState is a snapshot of the working copy, returned to the dashboard
// after every mutation.
type EditorState struct {
	PostID             string     `json:"postId,omitempty"`
	Title              string     `json:"title"`
	Excerpt            string     `json:"excerpt"`
	Content            string     `json:"content"`
	Category           string     `json:"category"`
	Tags               []string   `json:"tags"`
	FeaturedImage      string     `json:"featuredImage"`
	IsPublished        bool       `json:"isPublished"`
	IsMandatoryReading bool       `json:"isMandatoryReading"`
	PublishDate        time.Time  `json:"publishDate"`
	LastAutosave       *time.Time `json:"lastAutosave,omitempty"`
}

// EditorSession holds the working copy of one post being authored. New-post
// sessions buffer everything in memory until the first explicit save;
// editing sessions additionally auto-save on a fixed interval, restarted by
// every field change.
type EditorSession struct {
	svc   *PostService
	blobs storage.BlobStorage
	log   *slog.Logger

	mu                 sync.Mutex
	postID             string
	title              string
	excerpt            string
	content            string
	category           string
	tags               []string
	featuredImage      string
	isPublished        bool
	isMandatoryReading bool
	publishDate        time.Time
	lastAutosave       *time.Time

	maxImageBytes int64
	interval      time.Duration
	timer         *time.Timer
	done          chan struct{}
	closeOnce     sync.Once
}

// EditorOptions tunes a session. Zero values fall back to the defaults the
// dashboard ships with.
type EditorOptions struct {
	MaxImageBytes    int64
	AutosaveInterval time.Duration
	Logger           *slog.Logger
}

func (o *EditorOptions) withDefaults() {
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = 5 << 20
	}
	if o.AutosaveInterval <= 0 {
		o.AutosaveInterval = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// newDraftSession starts a blank new-post session. No auto-save runs until
// the post exists remotely.
func newDraftSession(svc *PostService, blobs storage.BlobStorage, opts EditorOptions) *EditorSession {
	opts.withDefaults()
	return &EditorSession{
		svc:           svc,
		blobs:         blobs,
		log:           opts.Logger,
		tags:          []string{},
		publishDate:   time.Now(),
		maxImageBytes: opts.MaxImageBytes,
		interval:      opts.AutosaveInterval,
		done:          make(chan struct{}),
	}
}

// newEditSession loads an existing post into a session and arms the
// auto-save timer.
func newEditSession(ctx context.Context, svc *PostService, blobs storage.BlobStorage, id string, opts EditorOptions) (*EditorSession, error) {
	post, err := svc.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	opts.withDefaults()
	s := &EditorSession{
		svc:                svc,
		blobs:              blobs,
		log:                opts.Logger,
		postID:             post.ID,
		title:              post.Title,
		excerpt:            post.Excerpt,
		content:            post.Content,
		category:           post.Category,
		tags:               append([]string{}, post.Tags...),
		featuredImage:      post.FeaturedImage,
		isPublished:        post.IsPublished,
		isMandatoryReading: post.IsMandatoryReading,
		publishDate:        post.PublishDate,
		maxImageBytes:      opts.MaxImageBytes,
		interval:           opts.AutosaveInterval,
		done:               make(chan struct{}),
	}
	s.timer = time.NewTimer(s.interval)
	go s.autosaveLoop()
	return s, nil
}

// Apply merges a partial edit into the working copy.
func (s *EditorSession) Apply(u EditorUpdate) EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Title != nil {
		s.title = *u.Title
	}
	if u.Excerpt != nil {
		s.excerpt = *u.Excerpt
	}
	if u.Content != nil {
		s.content = *u.Content
	}
	if u.Category != nil {
		s.category = *u.Category
	}
	if u.IsMandatoryReading != nil {
		s.isMandatoryReading = *u.IsMandatoryReading
	}
	if u.PublishDate != nil {
		s.publishDate = *u.PublishDate
	}
	s.touch()
	return s.snapshotLocked()
}

// AddTag appends a tag unless it is blank or already present.
func (s *EditorSession) AddTag(tag string) EditorState {
	tag = strings.TrimSpace(tag)
	s.mu.Lock()
	defer s.mu.Unlock()
	if tag == "" {
		return s.snapshotLocked()
	}
	for _, t := range s.tags {
		if t == tag {
			return s.snapshotLocked()
		}
	}
	s.tags = append(s.tags, tag)
	s.touch()
	return s.snapshotLocked()
}

// RemoveTag deletes a tag from the working copy.
func (s *EditorSession) RemoveTag(tag string) EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tags {
		if t == tag {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			s.touch()
			break
		}
	}
	return s.snapshotLocked()
}

// ValidateImageUpload rejects non-image or oversized uploads before any
// byte reaches the blob store.
func ValidateImageUpload(contentType string, size, maxBytes int64) error {
	if size > maxBytes {
		return models.NewValidationError(fmt.Sprintf("Image must be smaller than %dMB", maxBytes>>20))
	}
	if !strings.HasPrefix(contentType, "image/") {
		return models.NewValidationError("Only image files are allowed")
	}
	return nil
}

// AttachImage uploads a new featured image and points the working copy at
// it. A previously attached blob is left in place; cleanup is a separate
// admin action.
func (s *EditorSession) AttachImage(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error) {
	if err := ValidateImageUpload(contentType, size, s.maxImageBytes); err != nil {
		return "", err
	}
	key := storage.ObjectKey(imageFolder, filename)
	url, err := s.blobs.Upload(ctx, key, body, contentType)
	if err != nil {
		return "", models.NewPersistenceError(err)
	}
	s.mu.Lock()
	s.featuredImage = url
	s.touch()
	s.mu.Unlock()
	return url, nil
}

// RemoveImage clears the featured image reference. The blob itself stays in
// storage.
func (s *EditorSession) RemoveImage() EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.featuredImage = ""
	s.touch()
	return s.snapshotLocked()
}

// Save validates the working copy and stores it with the intended
// publication state. The first save of a new post creates the document and
// binds the session to its id, so later auto-saves update it in place.
func (s *EditorSession) Save(ctx context.Context, intent SaveIntent) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(s.title) == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if strings.TrimSpace(s.content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if strings.TrimSpace(s.category) == "" {
		return nil, models.NewValidationError("Category is required")
	}

	s.isPublished = intent == SavePublish
	excerpt := strings.TrimSpace(s.excerpt)
	if excerpt == "" {
		excerpt = SynthesizeExcerpt(s.content)
	}

	if s.postID == "" {
		post, err := s.svc.CreatePost(ctx, CreatePostInput{
			Title:              s.title,
			Excerpt:            excerpt,
			Content:            s.content,
			Category:           s.category,
			Tags:               s.tags,
			FeaturedImage:      s.featuredImage,
			IsPublished:        s.isPublished,
			IsMandatoryReading: s.isMandatoryReading,
		})
		if err != nil {
			return nil, err
		}
		s.postID = post.ID
		s.publishDate = post.PublishDate
		return post, nil
	}

	tags := append([]string{}, s.tags...)
	err := s.svc.UpdatePost(ctx, s.postID, UpdatePostInput{
		Title:              &s.title,
		Excerpt:            &excerpt,
		Content:            &s.content,
		Category:           &s.category,
		Tags:               &tags,
		FeaturedImage:      &s.featuredImage,
		IsPublished:        &s.isPublished,
		IsMandatoryReading: &s.isMandatoryReading,
		PublishDate:        &s.publishDate,
	})
	if err != nil {
		return nil, err
	}
	return s.svc.GetPost(ctx, s.postID)
}

// Snapshot returns the current working copy.
func (s *EditorSession) Snapshot() EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close stops the auto-save timer. Unsaved new-post edits are discarded.
func (s *EditorSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mu.Unlock()
	})
}

func (s *EditorSession) snapshotLocked() EditorState {
	return EditorState{
		PostID:             s.postID,
		Title:              s.title,
		Excerpt:            s.excerpt,
		Content:            s.content,
		Category:           s.category,
		Tags:               append([]string{}, s.tags...),
		FeaturedImage:      s.featuredImage,
		IsPublished:        s.isPublished,
		IsMandatoryReading: s.isMandatoryReading,
		PublishDate:        s.publishDate,
		LastAutosave:       s.lastAutosave,
	}
}

// touch restarts the auto-save countdown. Caller holds the lock.
func (s *EditorSession) touch() {
	if s.timer == nil {
		return
	}
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
	s.timer.Reset(s.interval)
}

func (s *EditorSession) autosaveLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.timer.C:
			s.autosave()
			s.mu.Lock()
			s.timer.Reset(s.interval)
			s.mu.Unlock()
		}
	}
}

// autosave pushes the working copy as-is, even mid-edit with blank fields.
// The publish date is deliberately excluded so a background save never moves
// a scheduled post. Failures are logged and retried on the next tick.
func (s *EditorSession) autosave() {
	s.mu.Lock()
	id := s.postID
	title, excerpt, content := s.title, s.excerpt, s.content
	category, featuredImage := s.category, s.featuredImage
	isPublished, isMandatory := s.isPublished, s.isMandatoryReading
	tags := append([]string{}, s.tags...)
	s.mu.Unlock()
	in := UpdatePostInput{
		Title:              &title,
		Excerpt:            &excerpt,
		Content:            &content,
		Category:           &category,
		Tags:               &tags,
		FeaturedImage:      &featuredImage,
		IsPublished:        &isPublished,
		IsMandatoryReading: &isMandatory,
	}

	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.svc.UpdatePost(ctx, id, in); err != nil {
		observability.AutosaveResults.WithLabelValues("error").Inc()
		s.log.Warn("autosave failed", slog.String("post_id", id), slog.String("error", err.Error()))
		return
	}
	observability.AutosaveResults.WithLabelValues("ok").Inc()
	now := time.Now()
	s.mu.Lock()
	s.lastAutosave = &now
	s.mu.Unlock()
}

// SynthesizeExcerpt derives a summary from the first content runes. The
// ellipsis is always appended, even for short content.
func SynthesizeExcerpt(content string) string {
	runes := []rune(content)
	if len(runes) > ExcerptLength {
		runes = runes[:ExcerptLength]
	}
	return string(runes) + "..."
}

// EditorManager tracks the open editor sessions, keyed by an opaque token
// handed to the dashboard.
type EditorManager struct {
	mu       sync.Mutex
	sessions map[string]*EditorSession
	svc      *PostService
	blobs    storage.BlobStorage
	opts     EditorOptions
}

// NewEditorManager creates a manager producing sessions with the given
// defaults.
func NewEditorManager(svc *PostService, blobs storage.BlobStorage, opts EditorOptions) *EditorManager {
	opts.withDefaults()
	return &EditorManager{
		sessions: map[string]*EditorSession{},
		svc:      svc,
		blobs:    blobs,
		opts:     opts,
	}
}

// OpenDraft starts a blank new-post session.
func (m *EditorManager) OpenDraft() (string, *EditorSession) {
	s := newDraftSession(m.svc, m.blobs, m.opts)
	token := uuid.NewString()
	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()
	return token, s
}

// OpenPost starts an editing session for an existing post.
func (m *EditorManager) OpenPost(ctx context.Context, id string) (string, *EditorSession, error) {
	s, err := newEditSession(ctx, m.svc, m.blobs, id, m.opts)
	if err != nil {
		return "", nil, err
	}
	token := uuid.NewString()
	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()
	return token, s, nil
}

// Get looks up an open session by its token.
func (m *EditorManager) Get(token string) (*EditorSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	return s, ok
}

// Close tears down a session and forgets its token.
func (m *EditorManager) Close(token string) {
	m.mu.Lock()
	s, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// CloseAll tears down every open session, for server shutdown.
func (m *EditorManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*EditorSession{}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
