package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/brandocs-backend/internal/logger"
	"github.com/welldanyogia/brandocs-backend/internal/models"
	"github.com/welldanyogia/brandocs-backend/internal/repository"
	"github.com/welldanyogia/brandocs-backend/internal/storage"
	"github.com/welldanyogia/brandocs-backend/tests/fixtures"
	"github.com/welldanyogia/brandocs-backend/tests/mocks"
)

// EmailHandlerTestSuite is the test suite for EmailHandler
type EmailHandlerTestSuite struct {
	suite.Suite
	echo        *echo.Echo
	handler     *EmailHandler
	mockRepo    *mocks.MockEmailRepository
	mockStorage *mocks.MockFileStorage
	securityLog *bytes.Buffer
}

func (s *EmailHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockRepo = new(mocks.MockEmailRepository)
	s.mockStorage = new(mocks.MockFileStorage)
	s.securityLog = new(bytes.Buffer)

	loc, err := time.LoadLocation("Europe/Budapest")
	s.Require().NoError(err)
	sec := logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(s.securityLog, nil))
	s.handler = NewEmailHandler(s.mockRepo, s.mockStorage, loc, 10, sec, nil)
}

func (s *EmailHandlerTestSuite) TearDownTest() {
	s.mockRepo.AssertExpectations(s.T())
	s.mockStorage.AssertExpectations(s.T())
}

func TestEmailHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(EmailHandlerTestSuite))
}

func (s *EmailHandlerTestSuite) createContext(method, target, id string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	return c, rec
}

func storedPDFEmail() *models.Email {
	email := fixtures.NewEmailBuilder().WithID(3).WithPDFEmails("a@x.com").Build()
	email.PDFFilename = "invoice.pdf"
	email.PDFPath = "ab/0f3c.pdf"
	return email
}

// ==================== List ====================

func (s *EmailHandlerTestSuite) TestList_RendersDisplayZone() {
	// Arrange
	acme := fixtures.NewCompanyBuilder().WithAliases("billing@acme.com").Build()
	email := fixtures.NewEmailBuilder().WithPDFEmails("a@x.com", "b@y.com").WithCompany(acme).BuildValue()
	c, rec := s.createContext(http.MethodGet, "/api/emails", "")
	s.mockRepo.On("List", mock.Anything, 10, 0).Return([]models.Email{email}, int64(1), nil)

	// Act
	err := s.handler.List(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"success":true,"data":[{"id":1,"subject":"Invoice 2024-001","from":"billing@acme.com",
		"date":"2024-03-01T10:30:00+01:00","has_pdf":true,"pdf_emails":["a@x.com","b@y.com"],
		"company":{"name":"Acme","emails":["billing@acme.com"]}}],
		"pagination":{"page":1,"per_page":10,"total":1,"pages":1}}`, rec.Body.String())
}

func (s *EmailHandlerTestSuite) TestList_PagePastEndIsEmpty() {
	// Arrange
	c, rec := s.createContext(http.MethodGet, "/api/emails?page=2", "")
	s.mockRepo.On("List", mock.Anything, 10, 10).Return([]models.Email{}, int64(10), nil)

	// Act
	err := s.handler.List(c)

	// Assert
	s.NoError(err)
	s.JSONEq(`{"success":true,"data":[],"pagination":{"page":2,"per_page":10,"total":10,"pages":1}}`,
		rec.Body.String())
}

func (s *EmailHandlerTestSuite) TestList_InvalidParamsUseDefaults() {
	// Arrange
	c, rec := s.createContext(http.MethodGet, "/api/emails?page=abc&per_page=-4", "")
	s.mockRepo.On("List", mock.Anything, 10, 0).Return([]models.Email{}, int64(0), nil)

	// Act
	err := s.handler.List(c)

	// Assert
	s.NoError(err)
	s.Contains(rec.Body.String(), `"pagination":{"page":1,"per_page":10,"total":0,"pages":0}`)
}

func (s *EmailHandlerTestSuite) TestList_PerPageCapped() {
	// Arrange
	c, _ := s.createContext(http.MethodGet, "/api/emails?per_page=1000", "")
	s.mockRepo.On("List", mock.Anything, 100, 0).Return([]models.Email{}, int64(0), nil)

	// Act
	err := s.handler.List(c)

	// Assert
	s.NoError(err)
}

func (s *EmailHandlerTestSuite) TestList_RepositoryError() {
	// Arrange
	c, rec := s.createContext(http.MethodGet, "/api/emails", "")
	s.mockRepo.On("List", mock.Anything, 10, 0).Return(nil, int64(0), errors.New("database error"))

	// Act
	err := s.handler.List(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusInternalServerError, rec.Code)
}

// ==================== Get ====================

func (s *EmailHandlerTestSuite) TestGet_Found() {
	// Arrange
	c, rec := s.createContext(http.MethodGet, "/api/emails/1", "1")
	s.mockRepo.On("GetByID", mock.Anything, uint(1)).Return(fixtures.NewEmailBuilder().Build(), nil)

	// Act
	err := s.handler.Get(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"subject":"Invoice 2024-001"`)
	s.Contains(rec.Body.String(), `"pdf_emails":[]`)
}

func (s *EmailHandlerTestSuite) TestGet_NotFound() {
	// Arrange
	c, rec := s.createContext(http.MethodGet, "/api/emails/2", "2")
	s.mockRepo.On("GetByID", mock.Anything, uint(2)).Return(nil, repository.ErrNotFound)

	// Act
	err := s.handler.Get(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *EmailHandlerTestSuite) TestGet_InvalidID() {
	// Arrange
	c, rec := s.createContext(http.MethodGet, "/api/emails/x", "x")

	// Act
	err := s.handler.Get(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

// ==================== Delete ====================

func (s *EmailHandlerTestSuite) TestDelete_RemovesStoredPDF() {
	// Arrange
	email := storedPDFEmail()
	c, rec := s.createContext(http.MethodDelete, "/api/emails/3", "3")
	s.mockRepo.On("GetByID", mock.Anything, uint(3)).Return(email, nil)
	s.mockRepo.On("Delete", mock.Anything, uint(3)).Return(nil)
	s.mockStorage.On("Delete", "ab/0f3c.pdf").Return(nil)

	// Act
	err := s.handler.Delete(c)

	// Assert
	s.NoError(err)
	s.JSONEq(`{"success":true}`, rec.Body.String())
}

func (s *EmailHandlerTestSuite) TestDelete_WithoutPDF() {
	// Arrange
	c, rec := s.createContext(http.MethodDelete, "/api/emails/1", "1")
	s.mockRepo.On("GetByID", mock.Anything, uint(1)).Return(fixtures.NewEmailBuilder().Build(), nil)
	s.mockRepo.On("Delete", mock.Anything, uint(1)).Return(nil)

	// Act
	err := s.handler.Delete(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.mockStorage.AssertNotCalled(s.T(), "Delete", mock.Anything)
}

func (s *EmailHandlerTestSuite) TestDelete_FileErrorStillSucceeds() {
	// Arrange
	c, rec := s.createContext(http.MethodDelete, "/api/emails/3", "3")
	s.mockRepo.On("GetByID", mock.Anything, uint(3)).Return(storedPDFEmail(), nil)
	s.mockRepo.On("Delete", mock.Anything, uint(3)).Return(nil)
	s.mockStorage.On("Delete", "ab/0f3c.pdf").Return(errors.New("permission denied"))

	// Act
	err := s.handler.Delete(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}

// ==================== DownloadPDF ====================

func (s *EmailHandlerTestSuite) TestDownloadPDF_StreamsFile() {
	// Arrange
	content := fixtures.MinimalPDF("contact a@x.com")
	c, rec := s.createContext(http.MethodGet, "/api/emails/3/pdf", "3")
	s.mockRepo.On("GetByID", mock.Anything, uint(3)).Return(storedPDFEmail(), nil)
	s.mockStorage.On("Get", "ab/0f3c.pdf").Return(io.NopCloser(bytes.NewReader(content)), nil)

	// Act
	err := s.handler.DownloadPDF(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("application/pdf", rec.Header().Get(echo.HeaderContentType))
	s.Equal(`attachment; filename="invoice.pdf"`, rec.Header().Get(echo.HeaderContentDisposition))
	s.Equal(content, rec.Body.Bytes())
}

func (s *EmailHandlerTestSuite) TestDownloadPDF_NotStored() {
	// Arrange
	c, rec := s.createContext(http.MethodGet, "/api/emails/1/pdf", "1")
	s.mockRepo.On("GetByID", mock.Anything, uint(1)).Return(fixtures.NewEmailBuilder().Build(), nil)

	// Act
	err := s.handler.DownloadPDF(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *EmailHandlerTestSuite) TestDownloadPDF_MissingFile() {
	// Arrange
	c, rec := s.createContext(http.MethodGet, "/api/emails/3/pdf", "3")
	s.mockRepo.On("GetByID", mock.Anything, uint(3)).Return(storedPDFEmail(), nil)
	s.mockStorage.On("Get", "ab/0f3c.pdf").Return(nil, storage.ErrFileNotFound)

	// Act
	err := s.handler.DownloadPDF(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *EmailHandlerTestSuite) TestDownloadPDF_PathTraversalLogged() {
	// Arrange
	email := storedPDFEmail()
	email.PDFPath = "../../etc/passwd"
	c, rec := s.createContext(http.MethodGet, "/api/emails/3/pdf", "3")
	s.mockRepo.On("GetByID", mock.Anything, uint(3)).Return(email, nil)
	s.mockStorage.On("Get", "../../etc/passwd").Return(nil, storage.ErrPathTraversal)

	// Act
	err := s.handler.DownloadPDF(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(s.securityLog.String(), "path_traversal")
}

// ==================== Stats ====================

func (s *EmailHandlerTestSuite) TestStats() {
	// Arrange
	c, rec := s.createContext(http.MethodGet, "/api/stats", "")
	s.mockRepo.On("Stats", mock.Anything).Return(&models.EmailStats{Companies: 2, PDFs: 3, Emails: 5}, nil)

	// Act
	err := s.handler.Stats(c)

	// Assert
	s.NoError(err)
	s.JSONEq(`{"success":true,"stats":{"companies":2,"pdfs":3,"emails":5}}`, rec.Body.String())
}

func (s *EmailHandlerTestSuite) TestStats_RepositoryError() {
	// Arrange
	c, rec := s.createContext(http.MethodGet, "/api/stats", "")
	s.mockRepo.On("Stats", mock.Anything).Return(nil, errors.New("database error"))

	// Act
	err := s.handler.Stats(c)

	// Assert
	s.NoError(err)
	s.Equal(http.StatusInternalServerError, rec.Code)
}
