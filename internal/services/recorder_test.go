package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/brandocs-backend/internal/attachment"
	"github.com/welldanyogia/brandocs-backend/internal/mailbox"
	"github.com/welldanyogia/brandocs-backend/internal/models"
	"github.com/welldanyogia/brandocs-backend/internal/repository"
	"github.com/welldanyogia/brandocs-backend/internal/storage"
	"github.com/welldanyogia/brandocs-backend/tests/fixtures"
	"gorm.io/gorm"
)

// EmailRecorderTestSuite exercises the recorder against an in-memory database
type EmailRecorderTestSuite struct {
	suite.Suite
	db        *gorm.DB
	emails    repository.EmailRepository
	companies repository.CompanyRepository
	files     storage.FileStorage
	recorder  EmailRecorder
}

// SetupSuite runs once before all tests
func (s *EmailRecorderTestSuite) SetupSuite() {
	s.db = fixtures.NewTestDB(s.T())
	s.emails = repository.NewEmailRepository(s.db)
	s.companies = repository.NewCompanyRepository(s.db)
}

// SetupTest runs before each test - clean up data
func (s *EmailRecorderTestSuite) SetupTest() {
	fixtures.ResetTables(s.db)

	files, err := storage.NewLocalStorage(s.T().TempDir())
	require.NoError(s.T(), err)
	s.files = files
	s.recorder = NewEmailRecorder(s.emails, s.companies, s.files, nil)
}

// TestEmailRecorderTestSuite runs the test suite
func TestEmailRecorderTestSuite(t *testing.T) {
	suite.Run(t, new(EmailRecorderTestSuite))
}

func fetched(from, subject string) *mailbox.FetchedMessage {
	return &mailbox.FetchedMessage{
		From:      from,
		Subject:   subject,
		Date:      "Fri, 01 Mar 2024 09:30:00 +0000",
		PDFEmails: []string{},
	}
}

// ==================== Record Tests ====================

func (s *EmailRecorderTestSuite) TestRecord_StoresNewEmail() {
	// Arrange
	msg := fetched("billing@acme.com", "Invoice")
	msg.HasPDF = true
	msg.PDFEmails = []string{"a@x.com", "b@y.org"}

	// Act
	email, err := s.recorder.Record(context.Background(), msg)

	// Assert
	require.NoError(s.T(), err)
	require.NotNil(s.T(), email)
	assert.NotZero(s.T(), email.ID)
	assert.Equal(s.T(), time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), email.Date)
	assert.Equal(s.T(), "a@x.com,b@y.org", email.PDFEmails)
	assert.True(s.T(), email.HasPDF)
}

func (s *EmailRecorderTestSuite) TestRecord_SameSenderAndSubject_StoredOnce() {
	// Arrange
	msg := fetched("billing@acme.com", "Invoice")

	// Act
	first, errFirst := s.recorder.Record(context.Background(), msg)
	second, errSecond := s.recorder.Record(context.Background(), msg)

	// Assert
	require.NoError(s.T(), errFirst)
	require.NotNil(s.T(), first)
	require.NoError(s.T(), errSecond)
	assert.Nil(s.T(), second)

	var count int64
	s.db.Model(&models.Email{}).Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

func (s *EmailRecorderTestSuite) TestRecord_LongHeaders_CutToColumnSizes() {
	// Arrange
	subject := strings.Repeat("á", models.SubjectMaxLength+100)
	sender := "Billing " + strings.Repeat("x", models.SenderMaxLength) + " <billing@acme.com>"
	msg := fetched(sender, subject)

	// Act
	first, errFirst := s.recorder.Record(context.Background(), msg)
	second, errSecond := s.recorder.Record(context.Background(), msg)

	// Assert
	require.NoError(s.T(), errFirst)
	require.NotNil(s.T(), first)
	assert.Equal(s.T(), models.SubjectMaxLength, utf8.RuneCountInString(first.Subject))
	assert.Equal(s.T(), models.SenderMaxLength, utf8.RuneCountInString(first.Sender))
	assert.True(s.T(), strings.HasPrefix(subject, first.Subject))

	require.NoError(s.T(), errSecond)
	assert.Nil(s.T(), second)
	_, total, err := s.emails.List(context.Background(), 10, 0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
}

func (s *EmailRecorderTestSuite) TestRecord_LinksCompanyByAlias() {
	// Arrange
	acme := &models.Company{Name: "Acme"}
	require.NoError(s.T(), s.companies.Create(context.Background(), acme, []string{"billing@acme.com"}))

	// Act
	linked, errLinked := s.recorder.Record(context.Background(), fetched("billing@acme.com", "Invoice"))
	unlinked, errUnlinked := s.recorder.Record(context.Background(), fetched("other@acme.com", "Invoice"))

	// Assert
	require.NoError(s.T(), errLinked)
	require.NotNil(s.T(), linked.CompanyID)
	assert.Equal(s.T(), acme.ID, *linked.CompanyID)
	assert.Equal(s.T(), "Acme", linked.Company.Name)

	require.NoError(s.T(), errUnlinked)
	assert.Nil(s.T(), unlinked.CompanyID)
	assert.Nil(s.T(), unlinked.Company)
}

func (s *EmailRecorderTestSuite) TestRecord_LinksDisplayNameSender() {
	// Arrange
	acme := &models.Company{Name: "Acme"}
	require.NoError(s.T(), s.companies.Create(context.Background(), acme, []string{"billing@acme.com"}))

	// Act
	email, err := s.recorder.Record(context.Background(), fetched("Acme Billing <Billing@Acme.com>", "Invoice"))

	// Assert
	require.NoError(s.T(), err)
	require.NotNil(s.T(), email.CompanyID)
	assert.Equal(s.T(), acme.ID, *email.CompanyID)
	assert.Equal(s.T(), "Acme Billing <Billing@Acme.com>", email.Sender)
}

func (s *EmailRecorderTestSuite) TestRecord_UnparsableDate_FallsBackToNow() {
	// Arrange
	msg := fetched("billing@acme.com", "Invoice")
	msg.Date = "yesterday-ish"

	// Act
	email, err := s.recorder.Record(context.Background(), msg)

	// Assert
	require.NoError(s.T(), err)
	assert.WithinDuration(s.T(), time.Now().UTC(), email.Date, 5*time.Second)
	assert.Equal(s.T(), time.UTC, email.Date.Location())
}

func (s *EmailRecorderTestSuite) TestRecord_StoresPDF() {
	// Arrange
	content := fixtures.MinimalPDF("a@x.com")
	msg := fetched("billing@acme.com", "Invoice")
	msg.HasPDF = true
	msg.PDF = &attachment.PDF{Filename: "invoice.pdf", Content: content}

	// Act
	email, err := s.recorder.Record(context.Background(), msg)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "invoice.pdf", email.PDFFilename)
	require.NotEmpty(s.T(), email.PDFPath)

	rc, err := s.files.Get(email.PDFPath)
	require.NoError(s.T(), err)
	defer rc.Close()
	stored, err := io.ReadAll(rc)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), content, stored)
}

func (s *EmailRecorderTestSuite) TestRecord_PDFWithoutExtension_GetsOne() {
	// Arrange
	msg := fetched("billing@acme.com", "Scan")
	msg.PDF = &attachment.PDF{Filename: "scan", Content: []byte("%PDF-1.4")}

	// Act
	email, err := s.recorder.Record(context.Background(), msg)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "scan.pdf", email.PDFFilename)
}

// ==================== Failure Tests ====================

// failingEmails fails on Create and reports nothing stored
type failingEmails struct {
	repository.EmailRepository
	createErr error
	findErr   error
}

func (f *failingEmails) FindBySenderSubject(_ context.Context, _, _ string) (*models.Email, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return nil, repository.ErrNotFound
}

func (f *failingEmails) Create(_ context.Context, _ *models.Email) error {
	return f.createErr
}

// recordingFiles tracks saved and deleted paths
type recordingFiles struct {
	saved   []string
	deleted []string
}

func (f *recordingFiles) Save(filename string, _ io.Reader) (string, error) {
	path := "ab/" + filename
	f.saved = append(f.saved, path)
	return path, nil
}

func (f *recordingFiles) Get(_ string) (io.ReadCloser, error) {
	return nil, storage.ErrFileNotFound
}

func (f *recordingFiles) Delete(filePath string) error {
	f.deleted = append(f.deleted, filePath)
	return nil
}

func (s *EmailRecorderTestSuite) TestRecord_CreateFails_RemovesStoredPDF() {
	// Arrange
	files := &recordingFiles{}
	recorder := NewEmailRecorder(&failingEmails{createErr: errors.New("disk full")}, s.companies, files, nil)
	msg := fetched("billing@acme.com", "Invoice")
	msg.PDF = &attachment.PDF{Filename: "invoice.pdf", Content: []byte("%PDF-1.4")}

	// Act
	email, err := recorder.Record(context.Background(), msg)

	// Assert
	assert.Nil(s.T(), email)
	assert.ErrorContains(s.T(), err, "failed to store email")
	assert.Equal(s.T(), []string{"ab/invoice.pdf"}, files.saved)
	assert.Equal(s.T(), files.saved, files.deleted)
}

func (s *EmailRecorderTestSuite) TestRecord_LookupFails_ReturnsError() {
	// Arrange
	recorder := NewEmailRecorder(&failingEmails{findErr: errors.New("connection refused")}, s.companies, nil, nil)

	// Act
	email, err := recorder.Record(context.Background(), fetched("billing@acme.com", "Invoice"))

	// Assert
	assert.Nil(s.T(), email)
	assert.ErrorContains(s.T(), err, "failed to check for existing email")
}

// ==================== SenderAddress Tests ====================

func TestSenderAddress(t *testing.T) {
	tests := []struct {
		from     string
		expected string
	}{
		{"billing@acme.com", "billing@acme.com"},
		{"Acme Billing <billing@acme.com>", "billing@acme.com"},
		{`"Acme, Billing" <Billing@ACME.com>`, "billing@acme.com"},
		{"  not an address  ", "not an address"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.expected, SenderAddress(tt.from))
		})
	}
}
