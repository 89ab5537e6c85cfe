// Package usecase implements the URL shortening engine: deduplication of
// already shortened URLs, code allocation, expiry and resolution with hit counting.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vadimbarashkov/tinyurl/internal/entity"
	"github.com/vadimbarashkov/tinyurl/pkg/codegen"
)

// RedirectPath is the path segment short URLs are served under.
const RedirectPath = "/r/"

// Outcomes reported to the metrics recorder on resolution.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeExpired  = "expired"
)

type urlRepository interface {
	FindActiveByLongURL(ctx context.Context, longURL string, now time.Time) (*entity.URL, error)
	FindByCode(ctx context.Context, code string) (*entity.URL, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, url *entity.URL) (*entity.URL, error)
	IncrementHitCount(ctx context.Context, code string) (*entity.URL, error)
}

type metricsRecorder interface {
	Observe(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) Observe(string) {}

// Config holds the settings read once when the use case is built.
type Config struct {
	BaseURL           string
	CodeLength        int
	MaxRetries        int
	DefaultExpiryDays int
}

// Option customizes a URLUseCase.
type Option func(*URLUseCase)

// WithMetrics sets the recorder notified about resolution outcomes.
func WithMetrics(m metricsRecorder) Option {
	return func(uc *URLUseCase) {
		uc.metrics = m
	}
}

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(uc *URLUseCase) {
		uc.now = now
	}
}

// URLUseCase is stateless between calls and holds no locks. All durable state
// and isolation guarantees come from the repository.
type URLUseCase struct {
	cfg     Config
	urlRepo urlRepository
	metrics metricsRecorder
	now     func() time.Time
}

// New creates a URLUseCase. Zero CodeLength and MaxRetries fall back to the
// codegen defaults.
func New(cfg Config, urlRepo urlRepository, opts ...Option) *URLUseCase {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = codegen.DefaultLength
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = codegen.DefaultMaxRetries
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	uc := &URLUseCase{
		cfg:     cfg,
		urlRepo: urlRepo,
		metrics: noopRecorder{},
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Create returns the active URL already stored for longURL, or shortens it.
// A positive expiryDays overrides the configured default expiry. The long URL
// is matched exactly, without any normalization.
func (uc *URLUseCase) Create(ctx context.Context, longURL string, expiryDays int) (*entity.URL, error) {
	const op = "usecase.URLUseCase.Create"

	now := uc.now().UTC()

	existing, err := uc.urlRepo.FindActiveByLongURL(ctx, longURL, now)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, entity.ErrURLNotFound) {
		return nil, fmt.Errorf("%s: failed to find active url: %w", op, err)
	}

	expiresAt := uc.expiresAt(now, expiryDays)

	exists := func(code string) (bool, error) {
		return uc.urlRepo.ExistsByCode(ctx, code)
	}

	for attempt := 0; attempt < uc.cfg.MaxRetries; attempt++ {
		code, err := codegen.GenerateUnique(exists, uc.cfg.CodeLength, uc.cfg.MaxRetries)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to allocate code: %w", op, err)
		}

		url, err := uc.urlRepo.Save(ctx, &entity.URL{
			Code:      code,
			LongURL:   longURL,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		})
		if err != nil {
			// Another caller took the code between the check and the insert.
			if errors.Is(err, entity.ErrCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to save url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, &codegen.RetriesExhaustedError{Attempts: uc.cfg.MaxRetries})
}

func (uc *URLUseCase) expiresAt(now time.Time, expiryDays int) *time.Time {
	days := expiryDays
	if days <= 0 {
		days = uc.cfg.DefaultExpiryDays
	}
	if days <= 0 {
		return nil
	}

	t := now.AddDate(0, 0, days)
	return &t
}

// Resolve returns the URL for code and counts the hit. It fails with
// entity.ErrURLNotFound for unknown codes and entity.ErrURLExpired for expired ones.
func (uc *URLUseCase) Resolve(ctx context.Context, code string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.Resolve"

	url, err := uc.urlRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			uc.metrics.Observe(OutcomeNotFound)
		}

		return nil, fmt.Errorf("%s: failed to find url: %w", op, err)
	}

	if url.IsExpired(uc.now()) {
		uc.metrics.Observe(OutcomeExpired)
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLExpired)
	}

	url, err = uc.urlRepo.IncrementHitCount(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to increment hit count: %w", op, err)
	}

	uc.metrics.Observe(OutcomeSuccess)

	return url, nil
}

// GetMetadata returns the URL for code without changing it. Expired URLs are
// returned as well.
func (uc *URLUseCase) GetMetadata(ctx context.Context, code string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetMetadata"

	url, err := uc.urlRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url metadata: %w", op, err)
	}

	return url, nil
}

// BuildShortURL joins the configured base URL, the redirect path and code.
func (uc *URLUseCase) BuildShortURL(code string) string {
	return uc.cfg.BaseURL + RedirectPath + code
}
