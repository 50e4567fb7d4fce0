// Package certprovision decides how a custom domain gets its TLS certificate
// and prepares the steps for each path.
//
// Three paths exist:
//
//   - managed_cdn: the domain's zone is delegated to the CDN, which issues
//     and renews the edge certificate. With a configured CDN client the zone
//     is switched to full SSL and a proxied CNAME to the platform edge is
//     added. No private key is ever stored by the platform.
//   - automated_ca: an external ACME client (lego or certbot) obtains the
//     certificate over HTTP-01. The provisioner only renders the command; it
//     never runs it.
//   - manual: the owner buys a certificate and the operator installs it in
//     the certificates directory.
//
// Choose picks a path from the domain's nameservers, the availability of an
// ACME client on PATH and HTTP reachability. RenewalSweep re-inspects every
// automated certificate and emits cert_expiring events.
package certprovision
