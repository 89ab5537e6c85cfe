package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/tinyurl/internal/entity"
	"github.com/vadimbarashkov/tinyurl/pkg/codegen"
)

type MockURLUseCase struct {
	mock.Mock
}

func (m *MockURLUseCase) Create(ctx context.Context, longURL string, expiryDays int) (*entity.URL, error) {
	args := m.Called(ctx, longURL, expiryDays)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLUseCase) Resolve(ctx context.Context, code string) (*entity.URL, error) {
	args := m.Called(ctx, code)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLUseCase) GetMetadata(ctx context.Context, code string) (*entity.URL, error) {
	args := m.Called(ctx, code)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLUseCase) BuildShortURL(code string) string {
	return m.Called(code).String(0)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimiter) Window() time.Duration {
	return time.Minute
}

type HandlersTestSuite struct {
	suite.Suite
	logger         *httplog.Logger
	urlUseCaseMock *MockURLUseCase
	limiterMock    *MockRateLimiter
	server         *httptest.Server
	e              *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.urlUseCaseMock = new(MockURLUseCase)
	suite.limiterMock = new(MockRateLimiter)

	router := NewRouter(suite.logger, suite.urlUseCaseMock, WithRateLimiter(suite.limiterMock))
	suite.server = httptest.NewServer(router)
	suite.T().Cleanup(func() {
		suite.server.Close()
	})

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL: suite.server.URL,
		Client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Reporter: httpexpect.NewAssertReporter(suite.T()),
	})
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.urlUseCaseMock.AssertExpectations(suite.T())
	suite.limiterMock.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) allow() {
	suite.limiterMock.
		On("Allow", mock.Anything, "127.0.0.1").
		Once().
		Return(true, nil)
}

func (suite *HandlersTestSuite) TestPing() {
	const path = "/api/v1/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong")
	})
}

func (suite *HandlersTestSuite) TestCreateURL() {
	const path = "/api/v1/urls"

	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := createdAt.AddDate(0, 0, 30)

	suite.Run("empty request body", func() {
		suite.allow()

		resp := suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", "empty request body")
	})

	suite.Run("invalid request body", func() {
		suite.allow()

		resp := suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", "invalid request body")
	})

	suite.Run("validation error", func() {
		suite.allow()

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"long_url": "invalid url"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "long_url").
			HasValue("message", "invalid url")
	})

	suite.Run("negative expiry", func() {
		suite.allow()

		resp := suite.e.POST(path).
			WithJSON(map[string]any{"long_url": "https://example.com", "expiry_days": -1}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.Value("errors").Array().Value(0).Object().
			HasValue("field", "expiry_days")
	})

	suite.Run("unsupported content type", func() {
		suite.allow()

		suite.e.POST(path).
			WithText("https://example.com").
			Expect().
			Status(http.StatusUnsupportedMediaType)
	})

	suite.Run("rate limited", func() {
		suite.limiterMock.
			On("Allow", mock.Anything, "127.0.0.1").
			Once().
			Return(false, nil)

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"long_url": "https://example.com"}).
			Expect().
			Status(http.StatusTooManyRequests)

		resp.Header("Retry-After").IsEqual("60")
		resp.JSON().Object().HasValue("status", "error")
	})

	suite.Run("limiter error lets request through", func() {
		suite.limiterMock.
			On("Allow", mock.Anything, "127.0.0.1").
			Once().
			Return(false, errors.New("connection refused"))
		suite.urlUseCaseMock.
			On("Create", mock.Anything, "https://example.com", 0).
			Once().
			Return(&entity.URL{Code: "abc123", LongURL: "https://example.com", CreatedAt: createdAt}, nil)
		suite.urlUseCaseMock.
			On("BuildShortURL", "abc123").
			Once().
			Return("http://localhost:8080/r/abc123")

		suite.e.POST(path).
			WithJSON(map[string]string{"long_url": "https://example.com"}).
			Expect().
			Status(http.StatusCreated)
	})

	suite.Run("retries exhausted", func() {
		suite.allow()
		suite.urlUseCaseMock.
			On("Create", mock.Anything, "https://example.com", 0).
			Once().
			Return(nil, fmt.Errorf("wrapped: %w", &codegen.RetriesExhaustedError{Attempts: 5}))

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"long_url": "https://example.com"}).
			Expect().
			Status(http.StatusServiceUnavailable).
			JSON().Object()

		resp.HasValue("status", "error")
	})

	suite.Run("server error", func() {
		suite.allow()
		suite.urlUseCaseMock.
			On("Create", mock.Anything, "https://example.com", 0).
			Once().
			Return(nil, errors.New("unknown error"))

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"long_url": "https://example.com"}).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("message", "server error occurred")
	})

	suite.Run("success", func() {
		suite.allow()
		suite.urlUseCaseMock.
			On("Create", mock.Anything, "https://example.com", 7).
			Once().
			Return(&entity.URL{
				ID:        1,
				Code:      "abc123",
				LongURL:   "https://example.com",
				CreatedAt: createdAt,
				ExpiresAt: &expiresAt,
			}, nil)
		suite.urlUseCaseMock.
			On("BuildShortURL", "abc123").
			Once().
			Return("http://localhost:8080/r/abc123")

		resp := suite.e.POST(path).
			WithJSON(map[string]any{"long_url": "https://example.com", "expiry_days": 7}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("code", "abc123")
		resp.HasValue("short_url", "http://localhost:8080/r/abc123")
		resp.HasValue("long_url", "https://example.com")
		resp.HasValue("created_at", createdAt.Format(time.RFC3339))
		resp.HasValue("expires_at", expiresAt.Format(time.RFC3339))
	})

	suite.Run("success without expiry", func() {
		suite.allow()
		suite.urlUseCaseMock.
			On("Create", mock.Anything, "https://example.com", 0).
			Once().
			Return(&entity.URL{Code: "abc123", LongURL: "https://example.com", CreatedAt: createdAt}, nil)
		suite.urlUseCaseMock.
			On("BuildShortURL", "abc123").
			Once().
			Return("http://localhost:8080/r/abc123")

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"long_url": "https://example.com"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.NotContainsKey("expires_at")
	})
}

func (suite *HandlersTestSuite) TestRedirect() {
	const path = "/r/{code}"

	suite.Run("url not found", func() {
		suite.urlUseCaseMock.
			On("Resolve", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrURLNotFound)

		suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("status", "error")
	})

	suite.Run("url expired", func() {
		suite.urlUseCaseMock.
			On("Resolve", mock.Anything, "abc123").
			Once().
			Return(nil, fmt.Errorf("wrapped: %w", entity.ErrURLExpired))

		suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusGone).
			JSON().Object().
			HasValue("message", "short url has expired")
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("Resolve", mock.Anything, "abc123").
			Once().
			Return(nil, errors.New("unknown error"))

		suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("Resolve", mock.Anything, "abc123").
			Once().
			Return(&entity.URL{Code: "abc123", LongURL: "https://example.com/page", HitCount: 1}, nil)

		suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com/page")
	})
}

func (suite *HandlersTestSuite) TestGetMetadata() {
	const path = "/api/v1/urls/{code}"

	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	suite.Run("url not found", func() {
		suite.urlUseCaseMock.
			On("GetMetadata", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrURLNotFound)

		suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("GetMetadata", mock.Anything, "abc123").
			Once().
			Return(nil, errors.New("unknown error"))

		suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("GetMetadata", mock.Anything, "abc123").
			Once().
			Return(&entity.URL{
				ID:        1,
				Code:      "abc123",
				LongURL:   "https://example.com",
				CreatedAt: createdAt,
				HitCount:  3,
			}, nil)

		resp := suite.e.GET(path, "abc123").
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("code", "abc123")
		resp.HasValue("long_url", "https://example.com")
		resp.HasValue("hit_count", 3)
		resp.NotContainsKey("expires_at")
		resp.NotContainsKey("id")
	})
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestRouter_Optional(t *testing.T) {
	logger := httplog.NewLogger("", httplog.Options{Writer: io.Discard})

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "tinyurl_redirect_total 0")
	})

	server := httptest.NewServer(NewRouter(logger, new(MockURLUseCase), WithMetricsHandler(metrics)))
	t.Cleanup(server.Close)

	e := httpexpect.Default(t, server.URL)

	e.GET("/metrics").
		Expect().
		Status(http.StatusOK).
		Text().Contains("tinyurl_redirect_total")

	e.GET("/swagger/index.html").
		Expect().
		Status(http.StatusNotFound)
}
