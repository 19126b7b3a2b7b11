package registration

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"amora/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDenylist(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "temp-mail.txt")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSpamDomainFilter_Production(t *testing.T) {
	path := writeDenylist(t, "# comment line\nmailinator.com\nyopmail.com\n\n")
	filter := NewSpamDomainFilter(discardLogger(), path, config.EnvironmentProduction)

	assert.True(t, filter.IsDisposable("someone@mailinator.com"))
	assert.True(t, filter.IsDisposable("other@yopmail.com"))
	assert.False(t, filter.IsDisposable("someone@example.com"))
}

func TestSpamDomainFilter_DisabledOutsideProduction(t *testing.T) {
	path := writeDenylist(t, "mailinator.com\n")
	filter := NewSpamDomainFilter(discardLogger(), path, config.EnvironmentDevelopment)

	assert.False(t, filter.IsDisposable("someone@mailinator.com"))
}

func TestSpamDomainFilter_UnreadableFileDegradesOpen(t *testing.T) {
	filter := NewSpamDomainFilter(discardLogger(), "/nonexistent/temp-mail.txt", config.EnvironmentProduction)

	assert.False(t, filter.IsDisposable("someone@mailinator.com"))
}
