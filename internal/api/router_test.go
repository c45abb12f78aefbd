package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/brandocs-backend/internal/mailbox"
	"github.com/welldanyogia/brandocs-backend/internal/services"
	"github.com/welldanyogia/brandocs-backend/internal/storage"
	"github.com/welldanyogia/brandocs-backend/tests/fixtures"
	"github.com/welldanyogia/brandocs-backend/tests/mocks"
	"gorm.io/gorm"
)

type stubMailbox struct {
	err error
}

func (s *stubMailbox) TestConnection(ctx context.Context) error { return s.err }
func (s *stubMailbox) State() mailbox.State                    { return mailbox.StateDisconnected }

// RouterTestSuite exercises the wired router against an in-memory database
type RouterTestSuite struct {
	suite.Suite
	db      *gorm.DB
	checker *mocks.MockLatestChecker
	router  *echo.Echo
}

func (s *RouterTestSuite) SetupTest() {
	s.db = fixtures.NewTestDB(s.T())
	files, err := storage.NewLocalStorage(s.T().TempDir())
	s.Require().NoError(err)
	s.checker = new(mocks.MockLatestChecker)

	s.router = NewRouter(&RouterConfig{
		DB:                s.db,
		FileStorage:       files,
		Checker:           s.checker,
		Mailbox:           &stubMailbox{},
		Location:          time.UTC,
		PerPage:           10,
		BasicAuthUsername: "admin",
		BasicAuthPassword: "secret",
	})
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) do(method, target, body string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth {
		req.SetBasicAuth("admin", "secret")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterTestSuite) TestHealth_NoAuthRequired() {
	rec := s.do(http.MethodGet, "/health", "", false)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"mailbox":"disconnected"`)
}

func (s *RouterTestSuite) TestAPI_RequiresAuth() {
	rec := s.do(http.MethodGet, "/api/companies", "", false)

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Contains(strings.ToLower(rec.Header().Get(echo.HeaderWWWAuthenticate)), "basic")
}

func (s *RouterTestSuite) TestAPI_SecurityHeaders() {
	rec := s.do(http.MethodGet, "/api/companies", "", true)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("no-store", rec.Header().Get("Cache-Control"))
	s.Equal("DENY", rec.Header().Get("X-Frame-Options"))
	s.NotEmpty(rec.Header().Get(echo.HeaderXRequestID))
}

func (s *RouterTestSuite) TestCompanies_CreateThenList() {
	rec := s.do(http.MethodPost, "/api/companies", `{"name":"Acme","emails":["billing@acme.com"]}`, true)
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/api/companies", "", true)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"success":true,"data":[{"id":1,"name":"Acme","emails":["billing@acme.com"],"email_count":1}]}`,
		rec.Body.String())
}

func (s *RouterTestSuite) TestEmails_PagePastEnd() {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		email := fixtures.NewEmailBuilder().
			WithID(0).
			WithSubject(fmt.Sprintf("Invoice %d", i)).
			WithDate(base.Add(time.Duration(i) * time.Hour)).
			Build()
		s.Require().NoError(s.db.Create(email).Error)
	}

	first := s.do(http.MethodGet, "/api/emails", "", true)
	s.Require().Equal(http.StatusOK, first.Code)
	var page struct {
		Data []struct {
			Subject string `json:"subject"`
		} `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(first.Body.Bytes(), &page))
	s.Len(page.Data, 10)
	s.Equal("Invoice 9", page.Data[0].Subject)

	rec := s.do(http.MethodGet, "/api/emails?page=2", "", true)
	s.JSONEq(`{"success":true,"data":[],"pagination":{"page":2,"per_page":10,"total":10,"pages":1}}`,
		rec.Body.String())
}

func (s *RouterTestSuite) TestStats() {
	rec := s.do(http.MethodGet, "/api/stats", "", true)

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"success":true,"stats":{"companies":0,"pdfs":0,"emails":0}}`, rec.Body.String())
}

func (s *RouterTestSuite) TestCheckLatest_BothRoutes() {
	s.checker.On("CheckLatest", mock.Anything).
		Return(&services.CheckResult{Status: services.CheckEmpty}, nil).Twice()

	get := s.do(http.MethodGet, "/check-latest", "", true)
	post := s.do(http.MethodPost, "/api/check", "", true)

	s.JSONEq(`{"success":true,"data":{"message":"No emails found"}}`, get.Body.String())
	s.JSONEq(`{"success":true,"data":{"message":"No emails found"}}`, post.Body.String())
	s.checker.AssertExpectations(s.T())
}

func (s *RouterTestSuite) TestMailboxTest() {
	rec := s.do(http.MethodGet, "/api/mailbox/test", "", true)

	s.Equal(http.StatusOK, rec.Code)
}
