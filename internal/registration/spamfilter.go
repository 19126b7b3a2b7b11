package registration

import (
	"bufio"
	"log/slog"
	"os"
	"strings"

	"amora/internal/config"
)

// SpamDomainFilter checks candidate emails against a line-based denylist of
// throwaway mail domains. Enforcement is limited to production so test and
// dev traffic is never blocked by a stale list.
type SpamDomainFilter struct {
	logger      *slog.Logger
	path        string
	environment string
}

func NewSpamDomainFilter(logger *slog.Logger, path, environment string) *SpamDomainFilter {
	return &SpamDomainFilter{logger: logger, path: path, environment: environment}
}

// IsDisposable reports whether email matches any denylist line. A read
// failure is an infrastructure fault, not a verdict: it is logged and the
// email is treated as not disposable.
func (f *SpamDomainFilter) IsDisposable(email string) bool {
	if f.environment != config.EnvironmentProduction {
		return false
	}

	file, err := os.Open(f.path)
	if err != nil {
		f.logger.Error("Failed to open spam domain list", "error", err, "path", f.path)
		return false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(email, line) {
			return true
		}
	}
	if err := scanner.Err(); err != nil {
		f.logger.Error("Failed to read spam domain list", "error", err, "path", f.path)
	}
	return false
}
