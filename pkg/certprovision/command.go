package certprovision

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-acme/lego/v4/lego"
)

func (c Config) directoryURL() string {
	switch {
	case c.DirectoryURL != "":
		return c.DirectoryURL
	case c.Staging:
		return lego.LEDirectoryStaging
	default:
		return lego.LEDirectoryProduction
	}
}

// Command renders the shell command an operator (or a deploy hook) runs to
// obtain a certificate for domain over HTTP-01. The certificate ends up at
// <certs_dir>/<domain>.crt and the key at <certs_dir>/<domain>.key.
func (c Config) Command(domain string) (string, error) {
	c = c.withDefaults()
	crt := path.Join(c.CertsDir, domain+".crt")
	key := path.Join(c.CertsDir, domain+".key")

	switch c.ACMEClient {
	case ClientLego:
		store := path.Join(c.CertsDir, ".lego")
		issued := path.Join(store, "certificates", domain)
		return strings.Join([]string{
			fmt.Sprintf("lego --accept-tos --email %s --server %s --domains %s --http --http.webroot %s --path %s run",
				quote(c.ContactEmail), quote(c.directoryURL()), quote(domain), quote(c.Webroot), quote(store)),
			fmt.Sprintf("cp %s %s", quote(issued+".crt"), quote(crt)),
			fmt.Sprintf("cp %s %s", quote(issued+".key"), quote(key)),
		}, " && "), nil

	case ClientCertbot:
		hook := fmt.Sprintf(`cp "$RENEWED_LINEAGE/fullchain.pem" %s && cp "$RENEWED_LINEAGE/privkey.pem" %s`, quote(crt), quote(key))
		return fmt.Sprintf("certbot certonly --non-interactive --agree-tos --email %s --server %s --webroot -w %s -d %s --cert-name %s --deploy-hook %s",
			quote(c.ContactEmail), quote(c.directoryURL()), quote(c.Webroot), quote(domain), quote(domain), quote(hook)), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownACMEClient, c.ACMEClient)
}

// quote wraps s in single quotes for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
