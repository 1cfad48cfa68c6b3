package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/mbocharov/shortlink/internal/models"
	"github.com/mbocharov/shortlink/internal/storage"
)

type MockURLStore struct {
	mock.Mock
}

func (s *MockURLStore) Put(rec *models.URL) error {
	args := s.Called(rec)
	return args.Error(0)
}

func (s *MockURLStore) Get(shortCode string) (*models.URL, error) {
	args := s.Called(shortCode)
	rec, _ := args.Get(0).(*models.URL)
	return rec, args.Error(1)
}

func (s *MockURLStore) Exists(shortCode string) bool {
	args := s.Called(shortCode)
	return args.Bool(0)
}

func (s *MockURLStore) ListAll() []*models.URL {
	args := s.Called()
	records, _ := args.Get(0).([]*models.URL)
	return records
}

func (s *MockURLStore) Update(shortCode string, rec *models.URL) error {
	args := s.Called(shortCode, rec)
	return args.Error(0)
}

func (s *MockURLStore) RecordClick(shortCode string, click models.Click, now time.Time) (*models.URL, models.ClickEvent, error) {
	args := s.Called(shortCode, click, now)
	rec, _ := args.Get(0).(*models.URL)
	ev, _ := args.Get(1).(models.ClickEvent)
	return rec, ev, args.Error(2)
}

func (s *MockURLStore) SweepExpired(now time.Time) (int, error) {
	args := s.Called(now)
	return args.Int(0), args.Error(1)
}

func (s *MockURLStore) Summary(now time.Time) storage.Summary {
	args := s.Called(now)
	sum, _ := args.Get(0).(storage.Summary)
	return sum
}

type URLServiceTestSuite struct {
	suite.Suite
	now        time.Time
	errUnknown error
	storeMock  *MockURLStore
	svc        *URLService
}

func (suite *URLServiceTestSuite) SetupSuite() {
	suite.now = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	suite.errUnknown = errors.New("unknown error")
}

func (suite *URLServiceTestSuite) SetupSubTest() {
	suite.storeMock = new(MockURLStore)
	suite.svc = New(
		suite.storeMock,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		"http://localhost:8080",
		WithClock(func() time.Time { return suite.now }),
	)
}

func (suite *URLServiceTestSuite) TearDownSubTest() {
	suite.storeMock.AssertExpectations(suite.T())
}

func (suite *URLServiceTestSuite) kindOf(err error) ErrorKind {
	var svcErr *Error
	suite.Require().ErrorAs(err, &svcErr)
	return svcErr.Kind
}

func (suite *URLServiceTestSuite) TestCreateShortURL() {
	suite.Run("invalid url", func() {
		res, err := suite.svc.CreateShortURL(context.Background(), "javascript:alert(1)", nil, "")

		suite.Nil(res)
		suite.Equal(KindInvalidInput, suite.kindOf(err))
	})

	suite.Run("invalid validity", func() {
		validity := 0

		res, err := suite.svc.CreateShortURL(context.Background(), "https://example.com", &validity, "")

		suite.Nil(res)
		suite.Equal(KindInvalidInput, suite.kindOf(err))
	})

	suite.Run("url errors short-circuit validity errors", func() {
		validity := -1

		_, err := suite.svc.CreateShortURL(context.Background(), "", &validity, "")

		var svcErr *Error
		suite.Require().ErrorAs(err, &svcErr)
		suite.Equal("Invalid URL", svcErr.Message)
	})

	suite.Run("invalid custom shortcode collects all violations", func() {
		res, err := suite.svc.CreateShortURL(context.Background(), "https://example.com", nil, "a!")

		suite.Nil(res)

		var svcErr *Error
		suite.Require().ErrorAs(err, &svcErr)
		suite.Equal(KindInvalidInput, svcErr.Kind)
		suite.Len(svcErr.Details, 2)
	})

	suite.Run("custom shortcode conflict", func() {
		suite.storeMock.On("Exists", "abc123").Once().Return(true)

		res, err := suite.svc.CreateShortURL(context.Background(), "https://example.com", nil, "abc123")

		suite.Nil(res)
		suite.Equal(KindConflict, suite.kindOf(err))
	})

	suite.Run("custom shortcode success", func() {
		suite.storeMock.On("Exists", "abc123").Once().Return(false)
		suite.storeMock.On("Put", mock.Anything).Once().Return(nil)

		res, err := suite.svc.CreateShortURL(context.Background(), "example.com/a", nil, "abc123")

		suite.NoError(err)
		suite.Require().NotNil(res)
		suite.Equal("http://localhost:8080/abc123", res.ShortLink)
		suite.Equal("abc123", res.ShortCode)
		suite.Equal("https://example.com/a", res.OriginalURL)
		suite.Equal(suite.now.Add(30*time.Minute), res.Expiry)

		rec := suite.storeMock.Calls[1].Arguments.Get(0).(*models.URL)
		suite.True(rec.CustomShortCode)
		suite.Equal(30, rec.ValidityMinutes)
	})

	suite.Run("generated shortcode success", func() {
		validity := 60
		suite.storeMock.On("Exists", mock.Anything).Once().Return(false)
		suite.storeMock.On("Put", mock.Anything).Once().Return(nil)

		res, err := suite.svc.CreateShortURL(context.Background(), "https://example.com", &validity, "")

		suite.NoError(err)
		suite.Require().NotNil(res)
		suite.Len(res.ShortCode, 6)
		suite.Equal(suite.now.Add(time.Hour), res.Expiry)

		rec := suite.storeMock.Calls[1].Arguments.Get(0).(*models.URL)
		suite.False(rec.CustomShortCode)
	})

	suite.Run("store fault", func() {
		suite.storeMock.On("Exists", mock.Anything).Once().Return(false)
		suite.storeMock.On("Put", mock.Anything).Once().Return(suite.errUnknown)

		res, err := suite.svc.CreateShortURL(context.Background(), "https://example.com", nil, "")

		suite.Nil(res)
		suite.Equal(KindInternal, suite.kindOf(err))
	})
}

func (suite *URLServiceTestSuite) TestGetStatistics() {
	suite.Run("not found", func() {
		suite.storeMock.On("Get", "abc123").Once().Return(nil, storage.ErrURLNotFound)

		view, err := suite.svc.GetStatistics(context.Background(), "abc123")

		suite.Nil(view)
		suite.Equal(KindNotFound, suite.kindOf(err))
	})

	suite.Run("shortcode normalized before lookup", func() {
		rec := models.NewURL("abc123", "https://example.com", 30, false, suite.now)
		suite.storeMock.On("Get", "abc123").Once().Return(rec, nil)

		view, err := suite.svc.GetStatistics(context.Background(), "  abc123 ")

		suite.NoError(err)
		suite.NotNil(view)
	})

	suite.Run("success", func() {
		rec := models.NewURL("abc123", "https://example.com", 30, false, suite.now)
		rec.AddClick(models.Click{IPAddress: "8.8.8.8"}, suite.now)
		suite.storeMock.On("Get", "abc123").Once().Return(rec, nil)

		view, err := suite.svc.GetStatistics(context.Background(), "abc123")

		suite.NoError(err)
		suite.Require().NotNil(view)
		suite.Equal("http://localhost:8080/abc123", view.ShortLink)
		suite.Equal(int64(1), view.ClickCount)
		suite.True(view.IsActive)
		suite.False(view.IsExpired)
		suite.Len(view.Clicks, 1)
	})
}

func (suite *URLServiceTestSuite) TestHandleRedirect() {
	click := models.Click{Referrer: "https://google.com", UserAgent: "curl/8.0", IPAddress: "8.8.8.8"}

	suite.Run("not found", func() {
		suite.storeMock.On("RecordClick", "abc123", click, suite.now).
			Once().
			Return(nil, models.ClickEvent{}, storage.ErrURLNotFound)

		res, err := suite.svc.HandleRedirect(context.Background(), "abc123", click)

		suite.Nil(res)
		suite.Equal(KindNotFound, suite.kindOf(err))
	})

	suite.Run("expired", func() {
		suite.storeMock.On("RecordClick", "abc123", click, suite.now).
			Once().
			Return(nil, models.ClickEvent{}, storage.ErrURLExpired)

		res, err := suite.svc.HandleRedirect(context.Background(), "abc123", click)

		suite.Nil(res)
		suite.Equal(KindExpired, suite.kindOf(err))
	})

	suite.Run("success", func() {
		rec := models.NewURL("abc123", "https://example.com", 30, false, suite.now)
		ev := rec.AddClick(click, suite.now)
		suite.storeMock.On("RecordClick", "abc123", click, suite.now).
			Once().
			Return(rec, ev, nil)

		res, err := suite.svc.HandleRedirect(context.Background(), "abc123", click)

		suite.NoError(err)
		suite.Require().NotNil(res)
		suite.Equal("https://example.com", res.OriginalURL)
		suite.Equal(int64(1), res.TotalClicks)
		suite.Equal(ev, res.Click)
	})

	suite.Run("snapshot fault after append does not fail the redirect", func() {
		rec := models.NewURL("abc123", "https://example.com", 30, false, suite.now)
		ev := rec.AddClick(click, suite.now)
		suite.storeMock.On("RecordClick", "abc123", click, suite.now).
			Once().
			Return(rec, ev, suite.errUnknown)

		res, err := suite.svc.HandleRedirect(context.Background(), "abc123", click)

		suite.NoError(err)
		suite.Require().NotNil(res)
		suite.Equal("https://example.com", res.OriginalURL)
	})

	suite.Run("unknown fault", func() {
		suite.storeMock.On("RecordClick", "abc123", click, suite.now).
			Once().
			Return(nil, models.ClickEvent{}, suite.errUnknown)

		res, err := suite.svc.HandleRedirect(context.Background(), "abc123", click)

		suite.Nil(res)
		suite.Equal(KindInternal, suite.kindOf(err))
	})
}

func (suite *URLServiceTestSuite) TestListAll() {
	suite.Run("empty store", func() {
		suite.storeMock.On("ListAll").Once().Return([]*models.URL{})

		views, err := suite.svc.ListAll(context.Background())

		suite.NoError(err)
		suite.Empty(views)
	})

	suite.Run("views sorted by creation time", func() {
		younger := models.NewURL("young1", "https://example.com/1", 30, false, suite.now.Add(time.Minute))
		older := models.NewURL("older1", "https://example.com/2", 30, false, suite.now)
		suite.storeMock.On("ListAll").Once().Return([]*models.URL{younger, older})

		views, err := suite.svc.ListAll(context.Background())

		suite.NoError(err)
		suite.Require().Len(views, 2)
		suite.Equal("older1", views[0].ShortCode)
		suite.Equal("young1", views[1].ShortCode)
		suite.Equal("http://localhost:8080/older1", views[0].ShortLink)
	})
}

func (suite *URLServiceTestSuite) TestDeactivateURL() {
	suite.Run("not found", func() {
		suite.storeMock.On("Get", "abc123").Once().Return(nil, storage.ErrURLNotFound)

		err := suite.svc.DeactivateURL(context.Background(), "abc123")

		suite.Equal(KindNotFound, suite.kindOf(err))
	})

	suite.Run("success", func() {
		rec := models.NewURL("abc123", "https://example.com", 30, false, suite.now)
		suite.storeMock.On("Get", "abc123").Once().Return(rec, nil)
		suite.storeMock.On("Update", "abc123", mock.Anything).Once().Return(nil)

		err := suite.svc.DeactivateURL(context.Background(), "abc123")

		suite.NoError(err)

		updated := suite.storeMock.Calls[1].Arguments.Get(1).(*models.URL)
		suite.False(updated.IsActive)
	})
}

func (suite *URLServiceTestSuite) TestRunCleanup() {
	suite.Run("reports removed count", func() {
		suite.storeMock.On("SweepExpired", suite.now).Once().Return(3, nil)

		suite.Equal(3, suite.svc.RunCleanup(context.Background()))
	})

	suite.Run("sweep errors are swallowed", func() {
		suite.storeMock.On("SweepExpired", suite.now).Once().Return(2, suite.errUnknown)

		suite.Zero(suite.svc.RunCleanup(context.Background()))
	})
}

func (suite *URLServiceTestSuite) TestSummary() {
	suite.Run("success", func() {
		suite.storeMock.On("Summary", suite.now).Once().Return(storage.Summary{TotalURLs: 2, ActiveURLs: 1, ExpiredURLs: 1, TotalClicks: 7})

		sum := suite.svc.Summary(context.Background())

		suite.Equal(2, sum.TotalURLs)
		suite.Equal(int64(7), sum.TotalClicks)
	})
}

func TestURLService(t *testing.T) {
	suite.Run(t, new(URLServiceTestSuite))
}
