package proxyconf

import "text/template"

var nginxTemplate = template.Must(template.New("nginx").Parse(`# {{.Domain}} (generated, do not edit)
server {
    listen 80;
    listen [::]:80;
    server_name {{.Domain}};
{{- if .TLS}}

    location / {
        return 301 https://$host$request_uri;
    }
}

server {
    listen 443 ssl;
    listen [::]:443 ssl;
    http2 on;
    server_name {{.Domain}};

    ssl_certificate {{.CertFile}};
    ssl_certificate_key {{.KeyFile}};
    ssl_protocols TLSv1.2 TLSv1.3;
    ssl_session_cache shared:SSL:10m;
{{- end}}

    location / {
        proxy_pass {{.Upstream}};
        proxy_http_version 1.1;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
        proxy_set_header X-Forwarded-Host $host;
    }
}
`))

var apacheTemplate = template.Must(template.New("apache").Parse(`# {{.Domain}} (generated, do not edit)
<VirtualHost *:80>
    ServerName {{.Domain}}
{{- if .TLS}}
    RewriteEngine On
    RewriteRule ^ https://%{HTTP_HOST}%{REQUEST_URI} [R=301,L]
</VirtualHost>

<VirtualHost *:443>
    ServerName {{.Domain}}

    SSLEngine on
    SSLCertificateFile {{.CertFile}}
    SSLCertificateKeyFile {{.KeyFile}}
    SSLProtocol -all +TLSv1.2 +TLSv1.3
{{- end}}

    ProxyPreserveHost On
    ProxyAddHeaders On
    ProxyPass / {{.Upstream}}/
    ProxyPassReverse / {{.Upstream}}/
    RequestHeader set X-Forwarded-Proto "{{.Scheme}}"
</VirtualHost>
`))
