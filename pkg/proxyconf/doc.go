// Package proxyconf renders reverse-proxy configuration for a custom domain.
//
// Generation is pure and deterministic: the same domain, SSL status and
// upstream always produce byte-identical nginx and Apache text, and the text
// only mentions the given domain. When the mapping has a certificate the
// output contains an HTTP to HTTPS redirect and a TLS server block reading
// <certs_dir>/<domain>.crt and <certs_dir>/<domain>.key.
//
//	g := proxyconf.NewGenerator("/etc/ssl/storefront")
//	cfg, err := g.Generate("shop.example.com", "auto", "http://127.0.0.1:8080")
//	if err != nil {
//		return err
//	}
//	os.WriteFile("/etc/nginx/conf.d/shop.example.com.conf", []byte(cfg.Nginx), 0o644)
package proxyconf
