package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/internal/config"
	"github.com/phambaophuc/webp-converter/internal/http/handlers"
	"github.com/phambaophuc/webp-converter/internal/http/middleware"
	"github.com/phambaophuc/webp-converter/internal/http/routes"
	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/phambaophuc/webp-converter/internal/services/converter"
	"github.com/phambaophuc/webp-converter/internal/services/processor"
	"github.com/phambaophuc/webp-converter/internal/services/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockConverterService implements handlers.ConverterService for testing.
type MockConverterService struct {
	ConvertFunc func(ctx context.Context, userID string, req *models.ConversionRequest) (*converter.BatchResult, error)
	GetZipFunc  func(ctx context.Context, userID string) (*models.ZipResponse, error)
	PurgeFunc   func(ctx context.Context, userID string) error
}

func (m *MockConverterService) Convert(ctx context.Context, userID string, req *models.ConversionRequest) (*converter.BatchResult, error) {
	if m.ConvertFunc != nil {
		return m.ConvertFunc(ctx, userID, req)
	}
	return &converter.BatchResult{}, nil
}

func (m *MockConverterService) GetZip(ctx context.Context, userID string) (*models.ZipResponse, error) {
	if m.GetZipFunc != nil {
		return m.GetZipFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockConverterService) Purge(ctx context.Context, userID string) error {
	if m.PurgeFunc != nil {
		return m.PurgeFunc(ctx, userID)
	}
	return nil
}

type MockPurgeQueue struct {
	PublishPurgeFunc func(ctx context.Context, userID string) (*models.PurgeJob, error)
}

func (m *MockPurgeQueue) PublishPurge(ctx context.Context, userID string) (*models.PurgeJob, error) {
	if m.PublishPurgeFunc != nil {
		return m.PublishPurgeFunc(ctx, userID)
	}
	return &models.PurgeJob{ID: "job-1", UserID: userID, Status: models.StatusPending}, nil
}

type envelope struct {
	Ok    json.RawMessage   `json:"ok"`
	Error []*apperror.Error `json:"error"`
}

func newRouter(service handlers.ConverterService, purges handlers.PurgeQueue, pingers map[string]storage.Pinger) *gin.Engine {
	cfg := &config.Config{Server: config.ServerConfig{Env: "development"}}
	handler := handlers.NewConverterHandler(service, purges, pingers, zap.NewNop(), cfg)
	return routes.NewRouter(handler, cfg, zap.NewNop()).SetupRoutes()
}

type formFile struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, file := range files {
		part, err := writer.CreateFormFile("files", file.name)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/converter/convert", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(router *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func conversionResponse(name string) *models.ConversionResponse {
	return &models.ConversionResponse{
		OriginalData:  models.ImageData{Filename: name + ".png", Format: "PNG"},
		ConvertedData: models.ImageData{Filename: "webpeditor_" + name + ".webp", Format: "WEBP"},
	}
}

func TestConvertParsesMultipartForm(t *testing.T) {
	var gotUser string
	var gotReq *models.ConversionRequest
	service := &MockConverterService{
		ConvertFunc: func(ctx context.Context, userID string, req *models.ConversionRequest) (*converter.BatchResult, error) {
			gotUser, gotReq = userID, req
			return &converter.BatchResult{Results: []converter.FileResult{{Response: conversionResponse("cat")}}}, nil
		},
	}
	router := newRouter(service, nil, nil)

	req := multipartRequest(t,
		map[string]string{"output_format": " webp ", "quality": "80"},
		formFile{name: "cat.png", data: []byte("png-bytes")},
		formFile{name: "dog.png", data: []byte("more-bytes")})
	req.Header.Set(middleware.UserIDHeader, "user-1")

	rec, body := serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "user-1", gotUser)
	require.NotNil(t, gotReq)
	assert.Equal(t, models.ConversionOptions{OutputFormat: "WEBP", Quality: 80}, gotReq.Options)
	require.Len(t, gotReq.Files, 2)
	assert.Equal(t, "cat.png", gotReq.Files[0].Filename)
	assert.Equal(t, []byte("png-bytes"), gotReq.Files[0].Data)
	assert.Equal(t, int64(len("png-bytes")), gotReq.Files[0].Size)
	assert.Equal(t, "dog.png", gotReq.Files[1].Filename)

	var ok []models.ConversionResponse
	require.NoError(t, json.Unmarshal(body.Ok, &ok))
	require.Len(t, ok, 1)
	assert.Equal(t, "webpeditor_cat.webp", ok[0].ConvertedData.Filename)
	assert.Empty(t, body.Error)
}

func TestConvertReportsPartialFailure(t *testing.T) {
	service := &MockConverterService{
		ConvertFunc: func(ctx context.Context, userID string, req *models.ConversionRequest) (*converter.BatchResult, error) {
			return &converter.BatchResult{Results: []converter.FileResult{
				{Response: conversionResponse("one")},
				{Error: apperror.BadRequest("File 'two.png' cannot be processed. Incompatible file type")},
			}}, nil
		},
	}
	router := newRouter(service, nil, nil)

	rec, body := serve(router, multipartRequest(t,
		map[string]string{"output_format": "WEBP", "quality": "80"},
		formFile{name: "one.png", data: []byte("a")},
		formFile{name: "two.png", data: []byte("b")}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, body.Error, 1)
	assert.Equal(t, "File 'two.png' cannot be processed. Incompatible file type", body.Error[0].Message)

	var ok []models.ConversionResponse
	require.NoError(t, json.Unmarshal(body.Ok, &ok))
	assert.Len(t, ok, 1)
}

func TestConvertReturnsValidationErrors(t *testing.T) {
	service := &MockConverterService{
		ConvertFunc: func(ctx context.Context, userID string, req *models.ConversionRequest) (*converter.BatchResult, error) {
			return nil, apperror.BadRequest("Invalid request", "No files uploaded", "Quality must be between 5 and 100")
		},
	}
	router := newRouter(service, nil, nil)

	rec, body := serve(router, multipartRequest(t, map[string]string{"output_format": "PNG", "quality": "1"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, body.Error, 1)
	assert.Equal(t, "Invalid request", body.Error[0].Message)
	assert.Equal(t, []string{"No files uploaded", "Quality must be between 5 and 100"}, body.Error[0].Reasons)
	assert.Nil(t, body.Ok)
}

func TestConvertHidesInternalErrors(t *testing.T) {
	service := &MockConverterService{
		ConvertFunc: func(ctx context.Context, userID string, req *models.ConversionRequest) (*converter.BatchResult, error) {
			return nil, errors.New("pq: connection refused")
		},
	}
	router := newRouter(service, nil, nil)

	rec, body := serve(router, multipartRequest(t, map[string]string{"output_format": "PNG", "quality": "50"},
		formFile{name: "a.png", data: []byte("a")}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, body.Error, 1)
	assert.Equal(t, "Internal server error", body.Error[0].Message)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestConvertReportsNonNumericQualityWithOtherProblems(t *testing.T) {
	var gotReq *models.ConversionRequest
	service := &MockConverterService{
		ConvertFunc: func(ctx context.Context, userID string, req *models.ConversionRequest) (*converter.BatchResult, error) {
			gotReq = req
			return nil, processor.NewImageProcessor().ValidateRequest(req)
		},
	}
	router := newRouter(service, nil, nil)

	files := make([]formFile, processor.MaxFilesLimit+1)
	for i := range files {
		files[i] = formFile{name: fmt.Sprintf("photo%d.png", i), data: []byte("x")}
	}
	rec, body := serve(router, multipartRequest(t, map[string]string{"output_format": "PNG", "quality": "high"}, files...))

	require.NotNil(t, gotReq)
	assert.Zero(t, gotReq.Options.Quality)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, body.Error, 1)
	assert.Contains(t, body.Error[0].Reasons, "Too many files uploaded. Allowed 10 files to upload")
	assert.Contains(t, body.Error[0].Reasons, "Quality must be between 5 and 100")
}

func TestConvertRequiresMultipart(t *testing.T) {
	called := false
	service := &MockConverterService{
		ConvertFunc: func(ctx context.Context, userID string, req *models.ConversionRequest) (*converter.BatchResult, error) {
			called = true
			return nil, nil
		},
	}
	router := newRouter(service, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/converter/convert", strings.NewReader(`{"quality":80}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := serve(router, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, body.Error, 1)
	assert.Equal(t, []string{"Content-Type must be multipart/form-data"}, body.Error[0].Reasons)
	assert.False(t, called)
}

func TestConvertRecoversFromPanics(t *testing.T) {
	service := &MockConverterService{
		ConvertFunc: func(ctx context.Context, userID string, req *models.ConversionRequest) (*converter.BatchResult, error) {
			panic("encoder exploded")
		},
	}
	router := newRouter(service, nil, nil)

	rec, body := serve(router, multipartRequest(t, map[string]string{"output_format": "PNG", "quality": "50"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, body.Error, 1)
	assert.Equal(t, "Internal server error", body.Error[0].Message)
}

func TestGetZip(t *testing.T) {
	service := &MockConverterService{
		GetZipFunc: func(ctx context.Context, userID string) (*models.ZipResponse, error) {
			if userID != "user-1" {
				return nil, apperror.NotFound("No converted images found")
			}
			return &models.ZipResponse{ZipURL: "https://files.example.com/user-1/converter/webpeditor_converted.zip"}, nil
		},
	}
	router := newRouter(service, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/converter/zip", nil)
	req.AddCookie(&http.Cookie{Name: middleware.UserIDCookie, Value: "user-1"})
	rec, body := serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var zip models.ZipResponse
	require.NoError(t, json.Unmarshal(body.Ok, &zip))
	assert.Equal(t, "https://files.example.com/user-1/converter/webpeditor_converted.zip", zip.ZipURL)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/converter/zip", nil)
	req.Header.Set(middleware.UserIDHeader, "someone-else")
	rec, body = serve(router, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.Len(t, body.Error, 1)
	assert.Equal(t, "No converted images found", body.Error[0].Message)
}

func TestAnonymousCallerGetsUserCookie(t *testing.T) {
	var gotUser string
	service := &MockConverterService{
		GetZipFunc: func(ctx context.Context, userID string) (*models.ZipResponse, error) {
			gotUser = userID
			return &models.ZipResponse{}, nil
		},
	}
	router := newRouter(service, nil, nil)

	rec, _ := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/converter/zip", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.UserIDCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, gotUser, cookie.Value)
	assert.Len(t, cookie.Value, 36)
	assert.True(t, cookie.HttpOnly)
}

func TestInvalidUserIDIsReplaced(t *testing.T) {
	var gotUser string
	service := &MockConverterService{
		GetZipFunc: func(ctx context.Context, userID string) (*models.ZipResponse, error) {
			gotUser = userID
			return &models.ZipResponse{}, nil
		},
	}
	router := newRouter(service, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/converter/zip", nil)
	req.Header.Set(middleware.UserIDHeader, "../../etc/passwd")
	rec, _ := serve(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "../../etc/passwd", gotUser)
	assert.Len(t, gotUser, 36)
}

func TestPurgeEnqueuesJob(t *testing.T) {
	inline := false
	service := &MockConverterService{
		PurgeFunc: func(ctx context.Context, userID string) error {
			inline = true
			return nil
		},
	}
	router := newRouter(service, &MockPurgeQueue{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/converter/purge", nil)
	req.Header.Set(middleware.UserIDHeader, "user-1")
	rec, body := serve(router, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var job models.PurgeJob
	require.NoError(t, json.Unmarshal(body.Ok, &job))
	assert.Equal(t, "user-1", job.UserID)
	assert.Equal(t, models.StatusPending, job.Status)
	assert.False(t, inline)
}

func TestPurgeRunsInlineWithoutQueue(t *testing.T) {
	var purged string
	service := &MockConverterService{
		PurgeFunc: func(ctx context.Context, userID string) error {
			purged = userID
			return nil
		},
	}
	router := newRouter(service, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/converter/purge", nil)
	req.Header.Set(middleware.UserIDHeader, "user-2")
	rec, body := serve(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-2", purged)
	var job models.PurgeJob
	require.NoError(t, json.Unmarshal(body.Ok, &job))
	assert.Equal(t, models.StatusCompleted, job.Status)
}

func TestPurgeQueueFailure(t *testing.T) {
	queue := &MockPurgeQueue{
		PublishPurgeFunc: func(ctx context.Context, userID string) (*models.PurgeJob, error) {
			return nil, errors.New("channel closed")
		},
	}
	router := newRouter(&MockConverterService{}, queue, nil)

	rec, body := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/converter/purge", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, body.Error, 1)
	assert.Equal(t, "Failed to schedule purge", body.Error[0].Message)
}

func TestHealthCheck(t *testing.T) {
	healthy := storage.PingerFunc(func(ctx context.Context) error { return nil })
	failing := storage.PingerFunc(func(ctx context.Context) error { return errors.New("dial tcp: refused") })

	router := newRouter(&MockConverterService{}, nil, map[string]storage.Pinger{
		"redis": healthy,
		"queue": nil,
	})
	rec, body := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health models.HealthCheck
	require.NoError(t, json.Unmarshal(body.Ok, &health))
	assert.Equal(t, storage.StatusHealthy, health.Status)
	assert.Equal(t, "development", health.Environment)
	assert.Equal(t, storage.StatusNotConfigured, health.Services["queue"])

	router = newRouter(&MockConverterService{}, nil, map[string]storage.Pinger{
		"redis":    healthy,
		"database": failing,
	})
	rec, body = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(body.Ok, &health))
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy: dial tcp: refused", health.Services["database"])
}

func TestGetStats(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Env: "development"}}
	handler := handlers.NewConverterHandler(&MockConverterService{}, nil, nil, zap.NewNop(), cfg)
	handler.RegisterStats("cache", func(ctx context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"backend": "memory", "entries": 3}, nil
	})
	handler.RegisterStats("queue", func(ctx context.Context) (map[string]interface{}, error) {
		return nil, errors.New("channel closed")
	})
	router := routes.NewRouter(handler, cfg, zap.NewNop()).SetupRoutes()

	rec, body := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Ok, &stats))
	assert.Equal(t, map[string]interface{}{"backend": "memory", "entries": float64(3)}, stats["cache"])
	assert.Equal(t, map[string]interface{}{"error": "unavailable"}, stats["queue"])
	assert.Contains(t, stats, "timestamp")
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter(&MockConverterService{}, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/converter/convert", nil)
	req.Header.Set("Origin", "https://webpeditor.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), middleware.UserIDHeader)
}

func TestRootAndMetrics(t *testing.T) {
	router := newRouter(&MockConverterService{}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Image converter is running")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "webpeditor_converter_http_requests_total")
}
