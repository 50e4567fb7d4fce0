package certinspect

import "strings"

// Category is a coarse bucket for certificate issuers.
type Category string

const (
	CategoryManagedCDN  Category = "managed_cdn"
	CategoryAutomatedCA Category = "automated_ca"
	CategoryOther       Category = "other"
)

var vocabulary = []struct {
	category Category
	needles  []string
}{
	{CategoryManagedCDN, []string{"cloudflare", "fastly", "akamai", "amazon", "cloudfront", "bunny"}},
	{CategoryAutomatedCA, []string{"let's encrypt", "letsencrypt", "isrg", "zerossl", "buypass", "google trust services"}},
}

// Classify returns the category of an issuer organization using a
// case-insensitive substring match.
func Classify(issuer string) Category {
	s := strings.ToLower(issuer)
	if s == "" {
		return CategoryOther
	}
	for _, v := range vocabulary {
		for _, n := range v.needles {
			if strings.Contains(s, n) {
				return v.category
			}
		}
	}
	return CategoryOther
}
