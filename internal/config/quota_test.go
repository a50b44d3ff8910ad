package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pokedex/internal/quota"
)

func TestQuotaManager_Defaults(t *testing.T) {
	t.Parallel()

	m := NewQuotaManager()
	assert.Equal(t, DefaultQuota, m.Limit("search"))
	assert.Equal(t, DefaultQuota, m.Limit("never-configured"))

	m.Update("search", quota.Limit{Requests: 3, Window: time.Minute})
	assert.Equal(t, quota.Limit{Requests: 3, Window: time.Minute}, m.Limit("search"))
	assert.Equal(t, DefaultQuota, m.Limit("detail"))
}

func TestQuotaManager_LoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quota.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
route_classes:
  search:
    requests: 30
    window: 60s
  export:
    requests: 10
    window: 1m
`), 0o644))

	m := NewQuotaManager()
	require.NoError(t, m.LoadFile(path))

	assert.Equal(t, quota.Limit{Requests: 30, Window: 60 * time.Second}, m.Limit("search"))
	assert.Equal(t, quota.Limit{Requests: 10, Window: time.Minute}, m.Limit("export"))
	assert.Equal(t, DefaultQuota, m.Limit("detail"))
}

func TestQuotaManager_LoadFile_BadInputKeepsBudgets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("route_classes:\n  search:\n    requests: 5\n    window: 30s\n"), 0o644))

	m := NewQuotaManager()
	require.NoError(t, m.LoadFile(good))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("route_classes:\n  search:\n    requests: 5\n    window: soon\n"), 0o644))
	require.Error(t, m.LoadFile(bad))

	assert.Equal(t, quota.Limit{Requests: 5, Window: 30 * time.Second}, m.Limit("search"))

	require.Error(t, m.LoadFile(filepath.Join(dir, "missing.yaml")))
	assert.Equal(t, quota.Limit{Requests: 5, Window: 30 * time.Second}, m.Limit("search"))
}

func TestQuotaManager_Watch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quota.yaml")
	require.NoError(t, os.WriteFile(path, []byte("route_classes:\n  search:\n    requests: 5\n    window: 30s\n"), 0o644))

	m := NewQuotaManager()
	require.NoError(t, m.LoadFile(path))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		_ = m.Watch(path, zap.NewNop(), stop)
	}()

	// Give the watcher a moment to register before rewriting the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("route_classes:\n  search:\n    requests: 7\n    window: 30s\n"), 0o644))

	assert.Eventually(t, func() bool {
		return m.Limit("search").Requests == 7
	}, 3*time.Second, 20*time.Millisecond)
}
