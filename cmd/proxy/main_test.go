package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dreamware/valgate/internal/config"
	"github.com/dreamware/valgate/internal/registry"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "validators.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testSettings(path string) config.Settings {
	return config.Settings{
		BindAddress:    "127.0.0.1:0",
		ValidatorsPath: path,
		LogLevel:       "debug",
		RequestTimeout: time.Second,
		RateBurst:      1,
		MetricsEnabled: true,
	}
}

func TestSetup(t *testing.T) {
	path := writeCSV(t, "name,rpc_url,location\nalpha,http://127.0.0.1:1,Lab\nbeta,http://127.0.0.1:2,Lab\n")

	handler, reg, err := setup(testSettings(path), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"lab"}, reg.Locations())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		wantMsg string
	}{
		{
			name:    "header only",
			content: "name,rpc_url,location\n",
			wantErr: registry.ErrEmpty,
		},
		{
			name:    "duplicate names",
			content: "name,rpc_url\nsame,http://10.0.0.1\nSAME,http://10.0.0.2\n",
			wantMsg: "duplicate validator name 'SAME'",
		},
		{
			name:    "bad row",
			content: "name,rpc_url\nbad,ftp://10.0.0.1\n",
			wantMsg: "invalid record at row 2: unsupported url scheme 'ftp'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := setup(testSettings(writeCSV(t, tt.content)), zaptest.NewLogger(t))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

// TestRunStopsOnCancel verifies the server starts and shuts down cleanly
// once the context is cancelled.
func TestRunStopsOnCancel(t *testing.T) {
	path := writeCSV(t, "name,rpc_url\nalpha,http://127.0.0.1:1\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, testSettings(path)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunFailsOnLoadError(t *testing.T) {
	path := writeCSV(t, "name,rpc_url\n")
	err := run(context.Background(), testSettings(path))
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrEmpty))
}

func TestAppRejectsMissingValidatorsFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.csv")
	err := newApp().Run([]string{"valgate", "--validators", missing, "--bind", "127.0.0.1:0"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrMissingValidators))
}
