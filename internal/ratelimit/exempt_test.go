// file: internal/ratelimit/exempt_test.go
// version: 1.0.0
// guid: 8d3b6f40-21ce-47a9-b085-4f1e7c2a95d6

package ratelimit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTrustedIPs(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadExemptions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trusted-ips.txt")
	writeTrustedIPs(t, path, "# monitoring hosts\n10.0.0.5\n\n10.0.0.6\n")

	exemptions, err := LoadExemptions(path)
	require.NoError(t, err)
	assert.Equal(t, 2, exemptions.Len())
	assert.True(t, exemptions.Contains("10.0.0.5"))
	assert.True(t, exemptions.Contains("10.0.0.6"))
	assert.False(t, exemptions.Contains("10.0.0.7"))
}

func TestLoadExemptions_EmptyPath(t *testing.T) {
	t.Parallel()

	exemptions, err := LoadExemptions("")
	require.NoError(t, err)
	assert.Equal(t, 0, exemptions.Len())
	assert.NoError(t, exemptions.Watch(), "watching a file-less set is a no-op")
}

func TestLoadExemptions_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadExemptions(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestExemptions_Reload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trusted-ips.txt")
	writeTrustedIPs(t, path, "10.0.0.5\n")

	exemptions, err := LoadExemptions(path)
	require.NoError(t, err)
	require.True(t, exemptions.Contains("10.0.0.5"))

	writeTrustedIPs(t, path, "10.0.0.9\n")
	require.NoError(t, exemptions.Reload())
	assert.False(t, exemptions.Contains("10.0.0.5"))
	assert.True(t, exemptions.Contains("10.0.0.9"))
}

func TestExemptions_WatchErrorsOnMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trusted-ips.txt")
	writeTrustedIPs(t, path, "10.0.0.5\n")

	exemptions, err := LoadExemptions(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	assert.Error(t, exemptions.Watch(), "a vanished file must surface, not fail silently")
}

func TestTrustedContext(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "trusted-ips.txt")
	writeTrustedIPs(t, path, "192.0.2.9\n")
	exemptions, err := LoadExemptions(path)
	require.NoError(t, err)

	assert.True(t, TrustedContext(exemptions, true)(testContext("203.0.113.1")),
		"disabled flag exempts everyone")
	assert.True(t, TrustedContext(exemptions, false)(testContext("192.0.2.9")))
	assert.False(t, TrustedContext(exemptions, false)(testContext("203.0.113.1")))
	assert.False(t, TrustedContext(nil, false)(testContext("192.0.2.9")))
}
