package dnsverify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// MaxDigTimeout bounds a single dig invocation regardless of configuration.
const MaxDigTimeout = 10 * time.Second

// DigResolver runs the dig binary as a last resort when the native
// resolvers are unusable (for example behind a split-horizon setup).
// The process is killed once the timeout expires.
type DigResolver struct {
	path    string
	server  string
	timeout time.Duration
}

// NewDigResolver returns a resolver running the dig binary found at path
// ("dig" looks it up on PATH). server is optional.
func NewDigResolver(path, server string, timeout time.Duration) *DigResolver {
	if path == "" {
		path = "dig"
	}
	if timeout <= 0 || timeout > MaxDigTimeout {
		timeout = MaxDigTimeout
	}
	return &DigResolver{path: path, server: server, timeout: timeout}
}

func (r *DigResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{"+short", "+tries=1", "+time=3", "TXT", name}
	if r.server != "" {
		args = append([]string{"@" + r.server}, args...)
	}

	cmd := exec.CommandContext(ctx, r.path, args...)
	cmd.WaitDelay = 500 * time.Millisecond
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Join(ErrLookupTimeout, ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, errors.Join(ErrDNSLookupFailed, err)
	}

	var records []string
	for line := range strings.Lines(stdout.String()) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		records = append(records, parseDigTXT(line))
	}
	return records, nil
}

// parseDigTXT joins the quoted character-strings of one dig answer line,
// e.g. `"v=spf1 " "-all"` becomes `v=spf1 -all`.
func parseDigTXT(line string) string {
	if !strings.HasPrefix(line, `"`) {
		return line
	}
	var (
		b        strings.Builder
		inQuote  bool
		escaping bool
	)
	for _, r := range line {
		switch {
		case escaping:
			b.WriteRune(r)
			escaping = false
		case r == '\\' && inQuote:
			escaping = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
			b.WriteRune(r)
		}
	}
	return b.String()
}
