package dnsverify

import (
	"net"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

const maxDomainLength = 253

var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Normalize turns user input such as "https://WWW.Example.com/shop" into the
// canonical host form used for lookups and uniqueness checks. It strips the
// scheme, any path, query or port, trailing dots and, when stripWWW is set,
// a leading "www." label. Internationalized names are converted to punycode.
// The result is validated with Validate.
func Normalize(raw string, stripWWW bool) (string, error) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.ToLower(strings.TrimRight(s, "."))
	if stripWWW {
		s = strings.TrimPrefix(s, "www.")
	}
	if s == "" {
		return "", ErrInvalidDomain
	}

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", ErrInvalidDomain
	}
	if err := Validate(ascii); err != nil {
		return "", err
	}
	return ascii, nil
}

// Validate checks the syntax of a normalized domain: at least two labels,
// each 1-63 characters of [a-z0-9-] without a leading or trailing hyphen,
// and at most 253 characters in total.
func Validate(domain string) error {
	if domain == "" || len(domain) > maxDomainLength {
		return ErrInvalidDomain
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return ErrInvalidDomain
	}
	for _, l := range labels {
		if !labelPattern.MatchString(l) {
			return ErrInvalidDomain
		}
	}
	return nil
}
