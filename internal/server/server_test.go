package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bienestar/internal/config"
	"bienestar/internal/database"
	"bienestar/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testAdminEmail    = "maria@bienestar.test"
	testPassword      = "Str0ng!Passw0rd"
	testNonAdminEmail = "helper@bienestar.test"
)

func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	blobs, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8480/media")
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                    "8480",
		JWTSecret:               "test-secret-0123456789-0123456789",
		AdminEmails:             testAdminEmail,
		Env:                     "test",
		UploadMaxSizeMB:         5,
		AutosaveIntervalSeconds: 30,
	}
	s := NewServerWithDeps(cfg, db, nil, blobs)
	t.Cleanup(s.Shutdown)

	ctx := context.Background()
	_, err = s.sessions.Register(ctx, testAdminEmail, testPassword)
	require.NoError(t, err)
	_, err = s.sessions.Register(ctx, testNonAdminEmail, testPassword)
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func login(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

type postPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	Status    string `json:"status"`
	ViewCount int64  `json:"viewCount"`
	LikeCount int64  `json:"likeCount"`
}

type postsResponse struct {
	Posts []postPayload `json:"posts"`
}

type postResponse struct {
	Post postPayload `json:"post"`
}

func TestAdminRoutesAreGated(t *testing.T) {
	_, app := newTestServer(t)

	resp := doJSON(t, app, http.MethodGet, "/api/admin/posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	nonAdmin := login(t, app, testNonAdminEmail)
	resp = doJSON(t, app, http.MethodGet, "/api/admin/posts", nonAdmin, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode,
		"a valid non-admin session is rejected exactly like no session")

	admin := login(t, app, testAdminEmail)
	resp = doJSON(t, app, http.MethodGet, "/api/admin/posts", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	_, app := newTestServer(t)

	unknown := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": "nobody@bienestar.test", "password": testPassword,
	})
	wrongPass := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": testAdminEmail, "password": "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, wrongPass.StatusCode)

	b1, _ := io.ReadAll(unknown.Body)
	b2, _ := io.ReadAll(wrongPass.Body)
	assert.Equal(t, string(b1), string(b2), "unknown email and wrong password must be indistinguishable")
}

func TestBlogLifecycle(t *testing.T) {
	_, app := newTestServer(t)
	admin := login(t, app, testAdminEmail)

	// Draft creation: invisible publicly, visible in the admin list.
	resp := doJSON(t, app, http.MethodPost, "/api/admin/posts", admin, fiber.Map{
		"title":       "Respira antes de empezar",
		"content":     "Un minuto de respiración consciente cambia la mañana entera.",
		"category":    "Mindfulness",
		"tags":        []string{"mindfulness"},
		"isPublished": false,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created postResponse
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.Post.ID)
	assert.Equal(t, "draft", created.Post.Status)
	assert.Contains(t, created.Post.Excerpt, "...", "blank excerpt is synthesized from content")

	resp = doJSON(t, app, http.MethodGet, "/api/blog/posts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var public postsResponse
	decodeBody(t, resp, &public)
	assert.Empty(t, public.Posts, "drafts never appear publicly")

	resp = doJSON(t, app, http.MethodGet, "/api/admin/posts", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var adminList postsResponse
	decodeBody(t, resp, &adminList)
	require.Len(t, adminList.Posts, 1)

	// Publishing with a past date makes it publicly visible as published.
	resp = doJSON(t, app, http.MethodPut, "/api/admin/posts/"+created.Post.ID, admin, fiber.Map{
		"isPublished": true,
		"publishDate": time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/blog/posts", "", nil)
	decodeBody(t, resp, &public)
	require.Len(t, public.Posts, 1)
	assert.Equal(t, "published", public.Posts[0].Status)

	// Engagement counters accumulate per request.
	for i := 0; i < 2; i++ {
		resp = doJSON(t, app, http.MethodPost, "/api/blog/posts/"+created.Post.ID+"/view", "", nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
	resp = doJSON(t, app, http.MethodPost, "/api/blog/posts/"+created.Post.ID+"/like", "", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/blog/posts/"+created.Post.ID, "", nil)
	var fetched postResponse
	decodeBody(t, resp, &fetched)
	assert.Equal(t, int64(2), fetched.Post.ViewCount)
	assert.Equal(t, int64(1), fetched.Post.LikeCount)

	// Deletion is permanent on both surfaces.
	resp = doJSON(t, app, http.MethodDelete, "/api/admin/posts/"+created.Post.ID, admin, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/blog/posts/"+created.Post.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/admin/posts/"+created.Post.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScheduledPostsStayPubliclyListed(t *testing.T) {
	_, app := newTestServer(t)
	admin := login(t, app, testAdminEmail)

	resp := doJSON(t, app, http.MethodPost, "/api/admin/posts", admin, fiber.Map{
		"title":       "Rutina de sueño",
		"content":     "Apaga las pantallas una hora antes.",
		"category":    "Sueño",
		"isPublished": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created postResponse
	decodeBody(t, resp, &created)

	resp = doJSON(t, app, http.MethodPut, "/api/admin/posts/"+created.Post.ID, admin, fiber.Map{
		"publishDate": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/blog/posts", "", nil)
	var public postsResponse
	decodeBody(t, resp, &public)
	require.Len(t, public.Posts, 1, "a future publish date does not hide a published post")
	assert.Equal(t, "scheduled", public.Posts[0].Status)
}

func TestFeaturedPost(t *testing.T) {
	_, app := newTestServer(t)
	admin := login(t, app, testAdminEmail)

	resp := doJSON(t, app, http.MethodGet, "/api/blog/posts/featured", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "empty corpus yields no featured post")

	for _, title := range []string{"primero", "segundo"} {
		resp = doJSON(t, app, http.MethodPost, "/api/admin/posts", admin, fiber.Map{
			"title": title, "content": "contenido", "category": "General", "isPublished": true,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		time.Sleep(5 * time.Millisecond)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/blog/posts/featured", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var featured postResponse
	decodeBody(t, resp, &featured)
	assert.Equal(t, "segundo", featured.Post.Title)
}

func TestSidebarToleratesEmptyCorpus(t *testing.T) {
	_, app := newTestServer(t)

	resp := doJSON(t, app, http.MethodGet, "/api/blog/sidebar", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sidebar struct {
		Recent     []postPayload `json:"recent"`
		Mandatory  []postPayload `json:"mandatory"`
		Categories []string      `json:"categories"`
	}
	decodeBody(t, resp, &sidebar)
	assert.Empty(t, sidebar.Recent)
	assert.Empty(t, sidebar.Mandatory)
	assert.NotNil(t, sidebar.Categories)
}

func TestEditorFlowOverHTTP(t *testing.T) {
	_, app := newTestServer(t)
	admin := login(t, app, testAdminEmail)

	resp := doJSON(t, app, http.MethodPost, "/api/admin/editor/", admin, fiber.Map{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var opened struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &opened)
	require.NotEmpty(t, opened.Token)

	// Saving an incomplete working copy fails without touching the store.
	resp = doJSON(t, app, http.MethodPost, "/api/admin/editor/"+opened.Token+"/save", admin,
		fiber.Map{"intent": "publish"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPatch, "/api/admin/editor/"+opened.Token, admin, fiber.Map{
		"title":    "Caminatas cortas",
		"content":  "Diez minutos después de cada comida.",
		"category": "Movimiento",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/admin/editor/"+opened.Token+"/tags", admin,
		fiber.Map{"tag": "movimiento"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/admin/editor/"+opened.Token+"/save", admin,
		fiber.Map{"intent": "publish"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved postResponse
	decodeBody(t, resp, &saved)
	assert.Equal(t, "published", saved.Post.Status)

	resp = doJSON(t, app, http.MethodGet, "/api/blog/posts", "", nil)
	var public postsResponse
	decodeBody(t, resp, &public)
	require.Len(t, public.Posts, 1)
	assert.Equal(t, "Caminatas cortas", public.Posts[0].Title)

	resp = doJSON(t, app, http.MethodDelete, "/api/admin/editor/"+opened.Token, admin, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/admin/editor/"+opened.Token, admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditorImageUpload(t *testing.T) {
	_, app := newTestServer(t)
	admin := login(t, app, testAdminEmail)

	resp := doJSON(t, app, http.MethodPost, "/api/admin/editor/", admin, fiber.Map{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var opened struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &opened)

	upload := func(filename, contentType string, payload []byte) *http.Response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreatePart(map[string][]string{
			"Content-Disposition": {fmt.Sprintf(`form-data; name="image"; filename=%q`, filename)},
			"Content-Type":        {contentType},
		})
		require.NoError(t, err)
		_, err = part.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/admin/editor/"+opened.Token+"/image", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+admin)
		out, err := app.Test(req, -1)
		require.NoError(t, err)
		return out
	}

	resp = upload("notes.txt", "text/plain", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = upload("hero.png", "image/png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var uploaded struct {
		URL string `json:"url"`
	}
	decodeBody(t, resp, &uploaded)
	assert.Contains(t, uploaded.URL, "/media/blog-images/")
}

func TestAdminImageUpload(t *testing.T) {
	_, app := newTestServer(t)
	admin := login(t, app, testAdminEmail)

	upload := func(filename, contentType string, payload []byte) *http.Response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreatePart(map[string][]string{
			"Content-Disposition": {fmt.Sprintf(`form-data; name="image"; filename=%q`, filename)},
			"Content-Type":        {contentType},
		})
		require.NoError(t, err)
		_, err = part.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/admin/images", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+admin)
		out, err := app.Test(req, -1)
		require.NoError(t, err)
		return out
	}

	resp := upload("notes.txt", "text/plain", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = upload("inline.png", "image/png", []byte("png-bytes"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var uploaded struct {
		URL string `json:"url"`
	}
	decodeBody(t, resp, &uploaded)
	assert.Contains(t, uploaded.URL, "/media/blog-images/")
}

func TestDeleteImageEndpoint(t *testing.T) {
	s, app := newTestServer(t)
	admin := login(t, app, testAdminEmail)

	url, err := s.blobs.Upload(context.Background(), "blog-images/1-old.png",
		bytes.NewReader([]byte("png")), "image/png")
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodDelete, "/api/admin/images?path="+url, admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/admin/images?path="+url, admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/admin/images?path=../etc/passwd", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	_, app := newTestServer(t)

	resp := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
