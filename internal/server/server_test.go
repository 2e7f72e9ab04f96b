package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

type stubReporter struct {
	statuses []migrate.MigrationStatus
	err      error
}

func (s *stubReporter) Status(ctx context.Context) ([]migrate.MigrationStatus, error) {
	return s.statuses, s.err
}

func TestHealthz(t *testing.T) {
	srv := New(logrus.New(), &stubReporter{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMigrationStatusEndpoint(t *testing.T) {
	appliedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	reporter := &stubReporter{
		statuses: []migrate.MigrationStatus{
			{ID: "001_user_indexes", Description: "user indexes", Applied: true, AppliedAt: &appliedAt},
			{ID: "002_post_indexes", Description: "post indexes"},
		},
	}
	srv := New(logrus.New(), reporter)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/migrations", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Migrations []migrate.MigrationStatus `json:"migrations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Migrations, 2)

	assert.True(t, body.Migrations[0].Applied)
	require.NotNil(t, body.Migrations[0].AppliedAt)
	assert.True(t, appliedAt.Equal(*body.Migrations[0].AppliedAt))

	assert.False(t, body.Migrations[1].Applied)
	assert.Nil(t, body.Migrations[1].AppliedAt)
}

func TestMigrationStatusEndpointError(t *testing.T) {
	srv := New(logrus.New(), &stubReporter{err: errors.New("db down")})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/migrations", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
