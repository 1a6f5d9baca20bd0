package fileflow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fileflow-app/fileflow/pkg/fileflow"
	"github.com/fileflow-app/fileflow/pkg/fileflow/handler"
	"github.com/fileflow-app/fileflow/pkg/fileflow/helpers/openapi"
	"github.com/fileflow-app/fileflow/pkg/fileflow/helpers/problem"
	"github.com/fileflow-app/fileflow/pkg/fileflow/models"
	"github.com/fileflow-app/fileflow/pkg/fileflow/ratelimit"
	"github.com/fileflow-app/fileflow/pkg/fileflow/repositories"
	"github.com/fileflow-app/fileflow/pkg/fileflow/services"
	"github.com/fileflow-app/fileflow/pkg/fileflow/testutil"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

type integrationEnv struct {
	server *httptest.Server
	blobs  *testutil.MemoryBlobStore
	client *http.Client
}

var adminSecret = []byte("integration-secret")

func newIntegrationEnv(t *testing.T, limiter ratelimit.Limiter) *integrationEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	repo := repositories.NewArtifactRepository(testutil.NewTestDB(t))
	blobs := testutil.NewMemoryBlobStore()
	svc := services.NewImageService(
		services.NewCodeRegistry(repo),
		services.NewAccessGate(limiter),
		blobs,
		services.Options{Timeout: 2 * time.Second},
	)
	router := fileflow.NewRouter("test-version", handler.NewImageController(svc), fileflow.RouterOptions{
		AuthSecret:     adminSecret,
		AllowedOrigins: []string{"https://share.example.com"},
	})

	return &integrationEnv{
		server: testutil.NewTestServer(t, router),
		blobs:  blobs,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (e *integrationEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *integrationEnv) doRequest(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, nil)
	require.NoError(t, err)
	return e.do(t, req)
}

func (e *integrationEnv) doJSONRequest(t *testing.T, method, path string, payload any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func (e *integrationEnv) upload(t *testing.T, filename, contentType string, data []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/v1/upload", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(t, req)
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	err = json.Unmarshal(data, &out)
	require.NoErrorf(t, err, "body=%s", string(data))
	return out
}

func requireProblemResponse(t *testing.T, resp *http.Response, status int) problem.APIError {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("API-Version"))
	return decodeBody[problem.APIError](t, resp)
}

func TestUploadAndViewFlow(t *testing.T) {
	env := newIntegrationEnv(t, nil)

	resp := env.upload(t, "cat.png", "image/png", pngBytes)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test-version", resp.Header.Get("API-Version"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	shared := decodeBody[models.ShareResponse](t, resp)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, shared.Code)
	assert.Equal(t, "cat.png", shared.Filename)
	assert.True(t, env.blobs.Has(shared.Code+".png"))

	// retrieval ignores case
	resp = env.doRequest(t, http.MethodGet, "/v1/images/"+strings.ToLower(shared.Code))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	record := decodeBody[map[string]any](t, resp)
	assert.Equal(t, shared.Code, record["code"])
	assert.Equal(t, shared.PublicUrl, record["publicUrl"])
	assert.Equal(t, shared.Code+".png", record["filePath"])
	assert.Equal(t, "image/png", record["mimeType"])
	assert.EqualValues(t, len(pngBytes), record["fileSize"])
	assert.NotContains(t, record, "id")

	resp = env.doJSONRequest(t, http.MethodPost, "/v1/images/"+shared.Code+"/verify", map[string]string{"code": strings.ToLower(shared.Code)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	verified := decodeBody[models.Artifact](t, resp)
	assert.Equal(t, shared.PublicUrl, verified.PublicUrl)

	resp = env.doJSONRequest(t, http.MethodPost, "/v1/images/"+shared.Code+"/verify", map[string]string{"code": "??????"})
	p := requireProblemResponse(t, resp, http.StatusBadRequest)
	assert.Equal(t, "Invalid verification code", p.Detail)
}

func TestUnknownCode(t *testing.T) {
	env := newIntegrationEnv(t, nil)

	resp := env.doRequest(t, http.MethodGet, "/v1/images/ZZZZZZ")
	p := requireProblemResponse(t, resp, http.StatusNotFound)
	assert.Equal(t, "Image not found", p.Detail)

	resp = env.doRequest(t, http.MethodGet, "/v1/images/not-a-code")
	requireProblemResponse(t, resp, http.StatusNotFound)
}

func TestUploadRejections(t *testing.T) {
	env := newIntegrationEnv(t, nil)

	resp := env.upload(t, "notes.txt", "text/plain", []byte("hello there"))
	p := requireProblemResponse(t, resp, http.StatusBadRequest)
	assert.Equal(t, "Only image files are allowed", p.Detail)

	resp = env.upload(t, "fake.png", "image/png", []byte("plain text pretending"))
	p = requireProblemResponse(t, resp, http.StatusBadRequest)
	assert.Equal(t, "file", p.InvalidParams[0].Name)

	assert.Equal(t, 0, env.blobs.Calls)
}

func TestShareLinkFlow(t *testing.T) {
	env := newIntegrationEnv(t, nil)
	images := testutil.NewTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pics/dog.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
	}))

	resp := env.doJSONRequest(t, http.MethodPost, "/v1/share-link", map[string]string{"imageUrl": images.URL + "/pics/dog.jpg"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	shared := decodeBody[models.ShareResponse](t, resp)
	assert.Equal(t, "dog.jpg", shared.Filename)
	assert.Equal(t, images.URL+"/pics/dog.jpg", shared.PublicUrl)

	resp = env.doRequest(t, http.MethodGet, "/v1/images/"+shared.Code)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	record := decodeBody[models.Artifact](t, resp)
	assert.Equal(t, int64(0), record.FileSize)
	assert.Equal(t, "image/jpeg", record.MimeType)

	resp = env.doJSONRequest(t, http.MethodPost, "/v1/share-link", map[string]string{"imageUrl": images.URL + "/about"})
	p := requireProblemResponse(t, resp, http.StatusBadRequest)
	assert.Equal(t, "Unable to access image URL or URL does not point to a valid image", p.Detail)

	resp = env.doJSONRequest(t, http.MethodPost, "/v1/share-link", map[string]string{})
	p = requireProblemResponse(t, resp, http.StatusBadRequest)
	require.NotEmpty(t, p.InvalidParams)
	assert.Equal(t, 0, env.blobs.Calls)
}

func TestEnsureBucketEndpoint(t *testing.T) {
	env := newIntegrationEnv(t, nil)

	resp := env.doRequest(t, http.MethodPost, "/v1/ensure-bucket")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeBody[models.BucketResponse](t, resp).Success)
}

func TestVerifyAttemptLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	env := newIntegrationEnv(t, ratelimit.NewRedisLimiter(rdb, 2, time.Minute))

	shared := decodeBody[models.ShareResponse](t, env.upload(t, "cat.png", "image/png", pngBytes))
	path := "/v1/images/" + shared.Code + "/verify"

	for i := 0; i < 2; i++ {
		resp := env.doJSONRequest(t, http.MethodPost, path, map[string]string{"code": "??????"})
		requireProblemResponse(t, resp, http.StatusBadRequest)
	}
	resp := env.doJSONRequest(t, http.MethodPost, path, map[string]string{"code": shared.Code})
	requireProblemResponse(t, resp, http.StatusTooManyRequests)
}

func TestAdminSweep(t *testing.T) {
	env := newIntegrationEnv(t, nil)
	env.blobs.Seed("ABANDN.png", pngBytes, time.Now().Add(-24*time.Hour))

	resp := env.doRequest(t, http.MethodPost, "/v1/admin/sweep")
	requireProblemResponse(t, resp, http.StatusUnauthorized)

	sweep := func(key []byte) *http.Response {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"scope": "storage:admin"}).SignedString(key)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, env.server.URL+"/v1/admin/sweep", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		return env.do(t, req)
	}

	resp = sweep([]byte("forged"))
	requireProblemResponse(t, resp, http.StatusUnauthorized)
	assert.True(t, env.blobs.Has("ABANDN.png"))

	resp = sweep(adminSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeBody[models.SweepResult](t, resp).Removed)
	assert.False(t, env.blobs.Has("ABANDN.png"))
}

func TestOpenAPIDocument(t *testing.T) {
	env := newIntegrationEnv(t, nil)

	resp := env.doRequest(t, http.MethodGet, "/v1/openapi.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	doc, err := openapi.Check(context.Background(), raw,
		"/v1/ensure-bucket", "/v1/share-link", "/v1/upload",
		"/v1/images/{code}", "/v1/images/{code}/verify", "/v1/admin/sweep")
	require.NoError(t, err)
	assert.Equal(t, "test-version", doc.Info.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newIntegrationEnv(t, nil)
	env.doRequest(t, http.MethodGet, "/v1/images/ZZZZZZ").Body.Close()

	resp := env.doRequest(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fileflow_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	env := newIntegrationEnv(t, nil)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/v1/upload", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://share.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := env.do(t, req)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://share.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodOptions, env.server.URL+"/v1/upload", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp = env.do(t, req)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
