package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/welldanyogia/brandocs-backend/internal/errors"
	"github.com/welldanyogia/brandocs-backend/internal/mailbox"
	"github.com/welldanyogia/brandocs-backend/internal/models"
	"github.com/welldanyogia/brandocs-backend/internal/websocket"
)

// Fetcher returns the newest message of a mailbox
type Fetcher interface {
	Fetch(ctx context.Context, mailbox string) (*mailbox.FetchResult, error)
}

// Notifier publishes newly stored emails
type Notifier interface {
	BroadcastEmailStored(payload *websocket.EmailStoredPayload)
}

// CheckStatus is the outcome of one fetch-and-store run
type CheckStatus string

const (
	CheckStored    CheckStatus = "stored"
	CheckDuplicate CheckStatus = "duplicate"
	CheckEmpty     CheckStatus = "empty"
)

// CheckResult is returned by Tracker.CheckLatest
type CheckResult struct {
	Status  CheckStatus
	Message *mailbox.FetchedMessage
	Email   *models.Email
}

// Tracker fetches the newest message and records it. Runs are serialized so
// the duplicate lookup and the insert of one run cannot interleave with another.
type Tracker struct {
	mu sync.Mutex

	fetcher  Fetcher
	recorder EmailRecorder
	notifier Notifier
	mailbox  string
	logger   *slog.Logger
}

// NewTracker creates a new Tracker. notifier may be nil.
func NewTracker(fetcher Fetcher, recorder EmailRecorder, notifier Notifier, mailboxName string, logger *slog.Logger) *Tracker {
	if mailboxName == "" {
		mailboxName = mailbox.DefaultMailbox
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		fetcher:  fetcher,
		recorder: recorder,
		notifier: notifier,
		mailbox:  mailboxName,
		logger:   logger.With("component", "tracker"),
	}
}

// CheckLatest runs one fetch-and-store cycle. Failures are returned as
// *errors.AppError carrying the user-facing message.
func (t *Tracker) CheckLatest(ctx context.Context) (*CheckResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	result, err := t.fetcher.Fetch(ctx, t.mailbox)
	if err != nil {
		t.logger.Error("failed to check latest email", "mailbox", t.mailbox, "error", err)
		if errors.Is(err, mailbox.ErrUnavailable) {
			return nil, apperrors.MailboxUnavailable(err)
		}
		return nil, apperrors.FetchFailed(err)
	}
	if result.Empty {
		t.logger.Info("mailbox is empty", "mailbox", t.mailbox)
		return &CheckResult{Status: CheckEmpty}, nil
	}

	email, err := t.recorder.Record(ctx, result.Message)
	if err != nil {
		t.logger.Error("failed to process email data",
			"sender", result.Message.From,
			"subject", result.Message.Subject,
			"error", err,
		)
		return nil, apperrors.PersistenceFailed(err)
	}
	if email == nil {
		return &CheckResult{Status: CheckDuplicate, Message: result.Message}, nil
	}

	t.notify(email)
	return &CheckResult{Status: CheckStored, Message: result.Message, Email: email}, nil
}

func (t *Tracker) notify(email *models.Email) {
	if t.notifier == nil {
		return
	}
	payload := &websocket.EmailStoredPayload{
		ID:        email.ID,
		Subject:   email.Subject,
		From:      email.Sender,
		Date:      email.Date.UTC().Format(time.RFC3339),
		HasPDF:    email.HasPDF,
		PDFEmails: email.PDFEmailList(),
		CompanyID: email.CompanyID,
	}
	if email.Company != nil {
		payload.CompanyName = email.Company.Name
	}
	t.notifier.BroadcastEmailStored(payload)
}
