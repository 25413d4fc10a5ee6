package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"phosphor/core"
	"phosphor/database"
	"phosphor/icons"
	"phosphor/models"
	"phosphor/service"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg"><rect width="1" height="1"/></svg>`

type testServer struct {
	engine  *gin.Engine
	dataDir string
	icons   *icons.Store
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	store := database.NewStore(database.NewFileBackend(dataDir))
	require.NoError(t, store.Initialize(context.Background()))

	iconStore := icons.NewStore(filepath.Join(root, "uploads"), icons.DefaultSize)
	require.NoError(t, iconStore.Init())

	if opts.MaxIconBytes == 0 {
		opts.MaxIconBytes = icons.DefaultMaxBytes
	}
	opts.BackendName = store.Backend().Name()

	r := gin.New()
	New(service.New(store, iconStore, opts.MaxIconBytes), iconStore, store, opts).Register(r)
	return &testServer{engine: r, dataDir: dataDir, icons: iconStore}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

type iconPart struct {
	filename    string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, icon *iconPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if icon != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="icon"; filename="%s"`, icon.filename))
		h.Set("Content-Type", icon.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(icon.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, w)["error"]
}

func (s *testServer) create(t *testing.T, name, url string) models.Application {
	t.Helper()
	w := s.do(multipartRequest(t, http.MethodPost, "/api/applications", map[string]string{"name": name, "url": url}, nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Application](t, w)
}

func TestCreateApplication_WithSVGIcon(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(multipartRequest(t, http.MethodPost, "/api/applications",
		map[string]string{"name": "Mail", "url": "https://mail.example"},
		&iconPart{"mail.svg", "image/svg+xml", []byte(testSVG)}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	raw := decode[map[string]any](t, w)
	assert.NotEmpty(t, raw["_id"])
	assert.Equal(t, "Mail", raw["name"])

	image, ok := raw["image"].(string)
	require.True(t, ok, "image must be set")
	assert.True(t, strings.HasSuffix(image, ".svg"))

	icon := s.do(httptest.NewRequest(http.MethodGet, "/uploads/"+image, nil))
	require.Equal(t, http.StatusOK, icon.Code)
	assert.Equal(t, "image/svg+xml", icon.Header().Get("Content-Type"))
	assert.Equal(t, "script-src 'none'", icon.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", icon.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, testSVG, icon.Body.String())
}

func TestCreateApplication_WithoutIconHasNullImage(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(multipartRequest(t, http.MethodPost, "/api/applications",
		map[string]string{"name": "Chat", "url": "https://chat.example"}, nil))
	require.Equal(t, http.StatusCreated, w.Code)

	raw := decode[map[string]any](t, w)
	v, present := raw["image"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestCreateApplication_Validation(t *testing.T) {
	s := newTestServer(t, Options{MaxIconBytes: 1024})

	tests := []struct {
		name    string
		fields  map[string]string
		icon    *iconPart
		wantMsg string
	}{
		{"missing url", map[string]string{"name": "Mail"}, nil, "Name and URL are required"},
		{"blank name", map[string]string{"name": "  ", "url": "https://x"}, nil, "Name and URL are required"},
		{"text file", map[string]string{"name": "A", "url": "https://a"},
			&iconPart{"notes.txt", "text/plain", []byte("hello")}, "Only image files are allowed."},
		{"wrong declared type", map[string]string{"name": "A", "url": "https://a"},
			&iconPart{"a.png", "application/pdf", []byte("%PDF")}, "Only image files are allowed."},
		{"too large", map[string]string{"name": "A", "url": "https://a"},
			&iconPart{"a.svg", "image/svg+xml", bytes.Repeat([]byte("x"), 2048)}, "File too large. Maximum size is 0MB."},
		{"corrupt raster", map[string]string{"name": "A", "url": "https://a"},
			&iconPart{"a.png", "image/png", []byte("not really a png")}, "Invalid image file."},
	}

	for _, tt := range tests {
		w := s.do(multipartRequest(t, http.MethodPost, "/api/applications", tt.fields, tt.icon))
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.name)
		assert.Equal(t, tt.wantMsg, errorMessage(t, w), tt.name)
	}

	list := s.do(httptest.NewRequest(http.MethodGet, "/api/applications", nil))
	assert.JSONEq(t, `[]`, list.Body.String())

	entries, err := os.ReadDir(s.icons.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads must not touch the uploads directory")
}

func TestMailChatReorderScenario(t *testing.T) {
	s := newTestServer(t, Options{})

	mail := s.create(t, "Mail", "https://mail.example")
	chat := s.create(t, "Chat", "https://chat.example")

	list := decode[[]models.Application](t, s.do(httptest.NewRequest(http.MethodGet, "/api/applications", nil)))
	require.Len(t, list, 2)
	assert.Equal(t, []string{"Mail", "Chat"}, []string{list[0].Name, list[1].Name})

	w := s.doJSON(t, http.MethodPut, "/api/applications/reorder", map[string]any{
		"applications": []map[string]string{{"_id": chat.ID}, {"_id": mail.ID}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	list = decode[[]models.Application](t, s.do(httptest.NewRequest(http.MethodGet, "/api/applications", nil)))
	require.Len(t, list, 2)
	assert.Equal(t, chat.ID, list[0].ID)
	assert.Equal(t, int64(0), list[0].Order)
	assert.Equal(t, mail.ID, list[1].ID)
	assert.Equal(t, int64(1), list[1].Order)
}

func TestReorderApplications_BadPayload(t *testing.T) {
	s := newTestServer(t, Options{})

	for _, body := range []string{`{}`, `{"applications":"nope"}`, `not json`} {
		w := s.doJSON(t, http.MethodPut, "/api/applications/reorder", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Applications must be an array", errorMessage(t, w), body)
	}

	w := s.doJSON(t, http.MethodPut, "/api/applications/reorder", `{"applications":[]}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateApplication(t *testing.T) {
	s := newTestServer(t, Options{})
	app := s.create(t, "Mail", "https://mail.example")

	w := s.do(multipartRequest(t, http.MethodPut, "/api/applications/"+app.ID,
		map[string]string{"name": "Webmail", "url": "https://webmail.example"}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decode[models.Application](t, w)
	assert.Equal(t, app.ID, updated.ID)
	assert.Equal(t, "Webmail", updated.Name)
	assert.Equal(t, app.Order, updated.Order)
	assert.Equal(t, app.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(app.UpdatedAt))

	w = s.do(multipartRequest(t, http.MethodPut, "/api/applications/unknown",
		map[string]string{"name": "X", "url": "https://x"}, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Application not found", errorMessage(t, w))

	w = s.do(multipartRequest(t, http.MethodPut, "/api/applications/"+app.ID,
		map[string]string{"name": "X"}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteApplication(t *testing.T) {
	s := newTestServer(t, Options{})
	app := s.create(t, "Mail", "https://mail.example")

	w := s.do(httptest.NewRequest(http.MethodDelete, "/api/applications/"+app.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodDelete, "/api/applications/"+app.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsRoutes(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	settings := decode[models.Settings](t, w)
	assert.Equal(t, "pt", settings.Language)
	assert.True(t, settings.PhosphorIcons)

	w = s.doJSON(t, http.MethodPut, "/api/settings", `{"language":"en","customTitle":"Lab"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	settings = decode[models.Settings](t, w)
	assert.Equal(t, "en", settings.Language)
	assert.True(t, settings.PhosphorIcons, "omitted fields keep their value")
	require.NotNil(t, settings.CustomTitle)
	assert.Equal(t, "Lab", *settings.CustomTitle)

	w = s.doJSON(t, http.MethodPut, "/api/settings", `{"language":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodPut, "/api/settings", `{"language":"de"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "json", body["backend"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestCorruptDocumentIsInternalError(t *testing.T) {
	s := newTestServer(t, Options{})
	core.Errors.Clear()
	t.Cleanup(core.Errors.Clear)

	require.NoError(t, os.WriteFile(filepath.Join(s.dataDir, "applications.json"), []byte("{broken"), 0644))

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/applications", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", errorMessage(t, w))

	logs := decode[[]models.ErrorLog](t, s.do(httptest.NewRequest(http.MethodGet, "/api/error-logs", nil)))
	require.NotEmpty(t, logs)
	assert.Equal(t, "api", logs[0].Source)

	w = s.do(httptest.NewRequest(http.MethodDelete, "/api/error-logs", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, core.Errors.Entries())
}

func TestServeIcon_NotFound(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(httptest.NewRequest(http.MethodGet, "/uploads/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFrontendFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0644))
	s := newTestServer(t, Options{FrontendDir: dir})

	w := s.do(httptest.NewRequest(http.MethodGet, "/settings/appearance", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>app</html>", w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/nothing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVersion(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/version", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[map[string]string](t, w), "version")
}

func TestAccessControl(t *testing.T) {
	acl, err := core.NewAccessList([]string{"10.0.0.0/8"}, nil)
	require.NoError(t, err)
	s := newTestServer(t, Options{AccessList: acl})

	req := httptest.NewRequest(http.MethodGet, "/api/applications", nil)
	req.RemoteAddr = "192.0.2.10:40000"
	w := s.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", errorMessage(t, w))

	req = httptest.NewRequest(http.MethodGet, "/api/applications", nil)
	req.RemoteAddr = "10.20.30.40:40000"
	assert.Equal(t, http.StatusOK, s.do(req).Code)
}
