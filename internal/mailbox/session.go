// Package mailbox owns the IMAP session used to fetch the newest message of a
// mailbox and the retry loop around it.
package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/welldanyogia/brandocs-backend/internal/logger"
)

// Session defaults
const (
	DefaultPort        = 993
	DefaultTimeout     = 30 * time.Second
	DefaultIdleTimeout = 300 * time.Second
	DefaultMailbox     = "INBOX"
)

var (
	// ErrSelectFailed is returned when the mailbox cannot be selected
	ErrSelectFailed = errors.New("failed to select mailbox")

	// ErrUnavailable marks a select failure caused by a failed connect or login
	ErrUnavailable = errors.New("mail server unavailable")
)

// DialFunc opens the transport to the mail server
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config holds the mail server connection settings
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Timeout     time.Duration
	IdleTimeout time.Duration
	TLSConfig   *tls.Config

	// Dial overrides the implicit-TLS dialer
	Dial DialFunc

	// Security receives rejected logins; optional
	Security *logger.SecurityLogger
}

// Session is a single stateful IMAP connection. It is not safe for
// concurrent use; a Poller owns it exclusively.
type Session struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	conn          net.Conn
	client        *imapclient.Client
	authenticated bool
	selected      bool
	connectedAt   time.Time
	lastActivity  time.Time
}

// NewSession creates a disconnected session
func NewSession(cfg Config, logger *slog.Logger) *Session {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:    cfg,
		logger: logger.With("component", "mailbox", "server", cfg.Host),
		now:    time.Now,
	}
}

func (s *Session) addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *Session) dial(ctx context.Context) (net.Conn, error) {
	if s.cfg.Dial != nil {
		dialCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		return s.cfg.Dial(dialCtx, "tcp", s.addr())
	}

	tlsConfig := s.cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: s.cfg.Timeout},
		Config:    tlsConfig,
	}
	return dialer.DialContext(ctx, "tcp", s.addr())
}

// withDeadline bounds one network round trip by the I/O timeout or the
// context deadline, whichever is earlier
func (s *Session) withDeadline(ctx context.Context, op func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.conn == nil {
		return errors.New("not connected")
	}

	deadline := s.now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}
	defer s.conn.SetDeadline(time.Time{})

	return op()
}

func (s *Session) touch() {
	s.lastActivity = s.now()
}

// Connect replaces any existing connection with a freshly authenticated one.
// On failure the session is left fully disconnected.
func (s *Session) Connect(ctx context.Context) error {
	if s.conn != nil || s.client != nil {
		s.teardown(slog.LevelDebug)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		s.teardown(slog.LevelDebug)
		return fmt.Errorf("failed to connect to %s: %w", s.addr(), err)
	}
	s.conn = conn
	s.client = imapclient.New(conn, nil)

	err = s.withDeadline(ctx, func() error {
		return s.client.Login(s.cfg.Username, s.cfg.Password).Wait()
	})
	if err != nil {
		s.teardown(slog.LevelDebug)
		if s.cfg.Security != nil {
			s.cfg.Security.MailboxLoginFailure(s.addr(), s.cfg.Username, err.Error())
		}
		return fmt.Errorf("failed to login as %s: %w", s.cfg.Username, err)
	}

	s.authenticated = true
	s.connectedAt = s.now()
	s.touch()
	s.logger.Info("mailbox session connected")
	return nil
}

// IsConnected probes the session with NOOP. Idle sessions and any probe
// failure report false.
func (s *Session) IsConnected(ctx context.Context) bool {
	if s.client == nil || !s.authenticated {
		return false
	}
	if idle := s.now().Sub(s.lastActivity); idle > s.cfg.IdleTimeout {
		s.logger.Debug("mailbox session idle too long", "idle", idle.String())
		return false
	}

	err := s.withDeadline(ctx, func() error {
		return s.client.Noop().Wait()
	})
	if err != nil {
		s.logger.Debug("mailbox liveness probe failed", "error", err)
		return false
	}
	s.touch()
	return true
}

// EnsureSelected reconnects when needed and selects the mailbox
func (s *Session) EnsureSelected(ctx context.Context, mailbox string) bool {
	if !s.IsConnected(ctx) {
		if err := s.Connect(ctx); err != nil {
			s.logger.Warn("mailbox reconnect failed", "error", err)
			return false
		}
	}

	err := s.withDeadline(ctx, func() error {
		_, err := s.client.Select(mailbox, nil).Wait()
		return err
	})
	if err != nil {
		s.selected = false
		s.logger.Warn("failed to select mailbox", "mailbox", mailbox, "error", err)
		return false
	}
	s.selected = true
	s.touch()
	return true
}

// FetchLatest returns the message with the highest UID in the mailbox
func (s *Session) FetchLatest(ctx context.Context, mailbox string) (*FetchResult, error) {
	if mailbox == "" {
		mailbox = DefaultMailbox
	}
	if !s.EnsureSelected(ctx, mailbox) {
		if !s.authenticated {
			return nil, fmt.Errorf("%w: %w", ErrSelectFailed, ErrUnavailable)
		}
		return nil, ErrSelectFailed
	}

	var uids []imap.UID
	err := s.withDeadline(ctx, func() error {
		data, err := s.client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
		if err != nil {
			return err
		}
		uids = data.AllUIDs()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}
	s.touch()

	if len(uids) == 0 {
		return &FetchResult{Empty: true}, nil
	}

	// UIDs grow with arrival; the result order is not guaranteed
	latest := uids[0]
	for _, uid := range uids[1:] {
		if uid > latest {
			latest = uid
		}
	}
	raw, err := s.fetchBody(ctx, latest)
	if err != nil {
		return nil, err
	}
	s.touch()

	s.logger.Debug("fetched latest message", "uid", uint32(latest), "size", len(raw))
	return &FetchResult{
		UID:     uint32(latest),
		Message: DecodeMessage(raw, s.logger),
	}, nil
}

func (s *Session) fetchBody(ctx context.Context, uid imap.UID) ([]byte, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	options := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}

	var raw []byte
	err := s.withDeadline(ctx, func() error {
		msgs, err := s.client.Fetch(imap.UIDSetNum(uid), options).Collect()
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return fmt.Errorf("message UID %d not found", uid)
		}
		raw = msgs[0].FindBodySection(section)
		if raw == nil {
			return fmt.Errorf("message UID %d has no body", uid)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	return raw, nil
}

// TestConnection verifies that the server accepts the configured credentials
func (s *Session) TestConnection(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	s.Disconnect()
	return nil
}

// Disconnect closes the selected mailbox and logs out. Local state is always
// cleared, even when the server does not answer.
func (s *Session) Disconnect() {
	s.teardown(slog.LevelWarn)
}

func (s *Session) teardown(level slog.Level) {
	ctx := context.Background()

	if s.client != nil {
		if s.selected {
			err := s.withDeadline(ctx, func() error {
				return s.client.UnselectAndExpunge().Wait()
			})
			if err != nil {
				s.logger.Log(ctx, level, "mailbox close failed", "error", err)
			}
		}

		err := s.withDeadline(ctx, func() error {
			return s.client.Logout().Wait()
		})
		if err != nil {
			s.logger.Log(ctx, level, "mailbox logout failed", "error", err)
		}
		s.client.Close()
	} else if s.conn != nil {
		s.conn.Close()
	}

	s.client = nil
	s.conn = nil
	s.authenticated = false
	s.selected = false
	s.connectedAt = time.Time{}
}

// ConnectedAt returns when the current session was authenticated, zero when disconnected
func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}
