// Package tests holds shared test support for the tracker: testify mocks in
// tests/mocks, data and message builders in tests/fixtures, the PostgreSQL
// suite in tests/integration (build tag integration) and the IMAP-to-API
// flow in tests/e2e (build tag e2e).
package tests

import (
	// Testing dependencies - imported to ensure they stay in go.mod
	_ "github.com/DATA-DOG/go-sqlmock"
	_ "github.com/stretchr/testify/assert"
	_ "github.com/stretchr/testify/mock"
	_ "github.com/stretchr/testify/require"
	_ "github.com/testcontainers/testcontainers-go"
)
