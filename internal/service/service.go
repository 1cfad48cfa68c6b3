// Package service implements the URL-shortening use cases: create,
// redirect with click recording, statistics and the periodic cleanup.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mbocharov/shortlink/internal/models"
	"github.com/mbocharov/shortlink/internal/shortcode"
	"github.com/mbocharov/shortlink/internal/storage"
)

// maxGenerateAttempts bounds short code generation before the generator
// escalates its fallback strategy.
const maxGenerateAttempts = 10

// URLStore defines the interface for working with URL records at the
// business logic layer.
type URLStore interface {
	// Put inserts or overwrites a record by its short code.
	Put(rec *models.URL) error

	// Get retrieves a copy of the record stored under the short code.
	Get(shortCode string) (*models.URL, error)

	// Exists reports whether the short code is taken.
	Exists(shortCode string) bool

	// ListAll returns copies of all records as of the call.
	ListAll() []*models.URL

	// Update replaces the record stored under the short code, failing if
	// the key is absent.
	Update(shortCode string, rec *models.URL) error

	// RecordClick atomically appends a click to the record, failing with
	// storage.ErrURLNotFound or storage.ErrURLExpired.
	RecordClick(shortCode string, click models.Click, now time.Time) (*models.URL, models.ClickEvent, error)

	// SweepExpired removes every expired record and returns the count.
	SweepExpired(now time.Time) (int, error)

	// Summary computes aggregate counts over all records.
	Summary(now time.Time) storage.Summary
}

// ShortURL is the result of a successful create operation.
type ShortURL struct {
	ShortLink   string
	Expiry      time.Time
	ShortCode   string
	OriginalURL string
}

// Redirect is the result of a successful redirect with its recorded click.
type Redirect struct {
	OriginalURL string
	Click       models.ClickEvent
	TotalClicks int64
}

// URLService orchestrates validation, short code generation and the store.
type URLService struct {
	store         URLStore
	logger        *slog.Logger
	baseURL       string
	rejectPrivate bool
	now           func() time.Time
}

// Option configures a URLService.
type Option func(*URLService)

// WithPrivateHostRejection makes URL validation reject loopback and
// private-range hosts. Enabled in the prod environment.
func WithPrivateHostRejection() Option {
	return func(s *URLService) {
		s.rejectPrivate = true
	}
}

// WithClock overrides the service clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *URLService) {
		s.now = now
	}
}

// New creates a URLService. baseURL is the public prefix short links are
// built from.
func New(store URLStore, logger *slog.Logger, baseURL string, opts ...Option) *URLService {
	s := &URLService{
		store:   store,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateShortURL validates the original URL, resolves the validity window
// and the short code (custom or generated), stores the record and returns
// the short link. URL violations short-circuit before validity is checked;
// each failing category carries its full list of reasons.
func (s *URLService) CreateShortURL(ctx context.Context, originalURL string, validityMinutes *int, customCode string) (*ShortURL, error) {
	const op = "service.URLService.CreateShortURL"

	normalizedURL, violations := validateURL(originalURL, s.rejectPrivate)
	if len(violations) > 0 {
		return nil, invalidInput("Invalid URL", violations)
	}

	minutes, violations := validateValidity(validityMinutes)
	if len(violations) > 0 {
		return nil, invalidInput("Invalid validity period", violations)
	}

	var (
		code   string
		custom bool
	)

	if customCode != "" {
		if violations := shortcode.ValidateCustom(customCode); len(violations) > 0 {
			return nil, invalidInput("Invalid custom shortcode", violations)
		}

		code = shortcode.Normalize(customCode)
		if s.store.Exists(code) {
			return nil, conflict("Shortcode already exists", "The requested shortcode is already in use")
		}
		custom = true
	} else {
		generated, err := shortcode.GenerateUnique(s.store.Exists, maxGenerateAttempts)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to generate short code", slog.String("op", op), slog.Any("err", err))
			return nil, internal()
		}
		code = generated
	}

	rec := models.NewURL(code, normalizedURL, minutes, custom, s.now())

	if err := s.store.Put(rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to store url", slog.String("op", op), slog.Any("err", err))
		return nil, internal()
	}

	return &ShortURL{
		ShortLink:   s.shortLink(code),
		Expiry:      rec.ExpiresAt,
		ShortCode:   code,
		OriginalURL: rec.OriginalURL,
	}, nil
}

// GetStatistics returns the full statistics view for a short code.
func (s *URLService) GetStatistics(ctx context.Context, code string) (*models.StatsView, error) {
	const op = "service.URLService.GetStatistics"

	normalized := shortcode.Normalize(code)

	rec, err := s.store.Get(normalized)
	if err != nil {
		if errors.Is(err, storage.ErrURLNotFound) {
			return nil, notFound()
		}

		s.logger.ErrorContext(ctx, "failed to get url", slog.String("op", op), slog.Any("err", err))
		return nil, internal()
	}

	view := rec.Stats(s.now())
	view.ShortLink = s.shortLink(rec.ShortCode)

	return &view, nil
}

// HandleRedirect resolves a short code to its original URL, recording the
// click. A record can expire between a lookup and the click append; the
// store re-checks expiry atomically, so existence and expiry failures stay
// distinct. A snapshot-flush fault after a successful append is logged and
// not surfaced.
func (s *URLService) HandleRedirect(ctx context.Context, code string, click models.Click) (*Redirect, error) {
	const op = "service.URLService.HandleRedirect"

	normalized := shortcode.Normalize(code)

	rec, ev, err := s.store.RecordClick(normalized, click, s.now())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrURLNotFound):
			return nil, notFound()
		case errors.Is(err, storage.ErrURLExpired):
			return nil, expired()
		case rec != nil:
			s.logger.WarnContext(ctx, "click recorded but snapshot flush failed",
				slog.String("op", op), slog.Any("err", err))
		default:
			s.logger.ErrorContext(ctx, "failed to record click", slog.String("op", op), slog.Any("err", err))
			return nil, internal()
		}
	}

	return &Redirect{
		OriginalURL: rec.OriginalURL,
		Click:       ev,
		TotalClicks: rec.ClickCount,
	}, nil
}

// ListAll returns statistics views for every stored record, oldest first.
func (s *URLService) ListAll(ctx context.Context) ([]models.StatsView, error) {
	records := s.store.ListAll()

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ShortCode < records[j].ShortCode
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	now := s.now()
	views := make([]models.StatsView, 0, len(records))
	for _, rec := range records {
		view := rec.Stats(now)
		view.ShortLink = s.shortLink(rec.ShortCode)
		views = append(views, view)
	}

	return views, nil
}

// DeactivateURL soft-deactivates the URL. The record keeps its expiry and
// click ledger but no longer counts as active.
func (s *URLService) DeactivateURL(ctx context.Context, code string) error {
	const op = "service.URLService.DeactivateURL"

	normalized := shortcode.Normalize(code)

	rec, err := s.store.Get(normalized)
	if err != nil {
		if errors.Is(err, storage.ErrURLNotFound) {
			return notFound()
		}

		s.logger.ErrorContext(ctx, "failed to get url", slog.String("op", op), slog.Any("err", err))
		return internal()
	}

	rec.Deactivate()

	if err := s.store.Update(normalized, rec); err != nil {
		if errors.Is(err, storage.ErrURLNotFound) {
			return notFound()
		}

		s.logger.ErrorContext(ctx, "failed to update url", slog.String("op", op), slog.Any("err", err))
		return internal()
	}

	return nil
}

// RunCleanup sweeps expired records and returns the removed count. It never
// fails the caller: sweep errors are logged and reported as zero removals.
func (s *URLService) RunCleanup(ctx context.Context) int {
	const op = "service.URLService.RunCleanup"

	removed, err := s.store.SweepExpired(s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "cleanup failed", slog.String("op", op), slog.Any("err", err))
		return 0
	}

	return removed
}

// Summary returns aggregate store counts, used by the health endpoint.
func (s *URLService) Summary(ctx context.Context) storage.Summary {
	return s.store.Summary(s.now())
}

func (s *URLService) shortLink(code string) string {
	return s.baseURL + "/" + code
}
