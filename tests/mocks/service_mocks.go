package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/brandocs-backend/internal/mailbox"
	"github.com/welldanyogia/brandocs-backend/internal/services"
)

// MockLatestChecker implements handlers.LatestChecker
type MockLatestChecker struct {
	mock.Mock
}

// CheckLatest runs one fetch-and-store cycle
func (m *MockLatestChecker) CheckLatest(ctx context.Context) (*services.CheckResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckResult), args.Error(1)
}

// MockConnectionTester implements handlers.ConnectionTester
type MockConnectionTester struct {
	mock.Mock
}

// TestConnection probes the mail server
func (m *MockConnectionTester) TestConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockStateReporter implements handlers.StateReporter
type MockStateReporter struct {
	mock.Mock
}

// State returns the mailbox poller state
func (m *MockStateReporter) State() mailbox.State {
	args := m.Called()
	return args.Get(0).(mailbox.State)
}
