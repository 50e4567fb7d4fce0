package cdnapi

import "time"

// Zone is a DNS zone managed by the provider.
type Zone struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	NameServers []string `json:"name_servers"`
	Paused      bool     `json:"paused"`
}

// DNSRecord is a record inside a zone.
type DNSRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Comment string `json:"comment,omitempty"`
	TTL     int    `json:"ttl,omitempty"`
	Proxied bool   `json:"proxied"`
}

// SSL modes accepted by EnableSSL.
const (
	SSLModeOff      = "off"
	SSLModeFlexible = "flexible"
	SSLModeFull     = "full"
	SSLModeStrict   = "strict"
)

// CertificateStatus is the edge certificate state for one host name.
type CertificateStatus struct {
	Hostname         string `json:"hostname"`
	CertificateState string `json:"certificate_status"`
	ValidationMethod string `json:"validation_method"`
}

// SSLStatus combines a zone's SSL mode with its edge certificate states.
type SSLStatus struct {
	ModifiedOn   time.Time           `json:"modified_on"`
	ZoneID       string              `json:"zone_id"`
	Mode         string              `json:"mode"`
	Certificates []CertificateStatus `json:"certificates"`
}

// Active reports whether every edge certificate is active.
func (s *SSLStatus) Active() bool {
	if len(s.Certificates) == 0 {
		return false
	}
	for _, c := range s.Certificates {
		if c.CertificateState != "active" {
			return false
		}
	}
	return true
}

type envelope[T any] struct {
	Result     T             `json:"result"`
	ResultInfo *resultInfo   `json:"result_info,omitempty"`
	Errors     []ErrorDetail `json:"errors"`
	Success    bool          `json:"success"`
}

type resultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	Count      int `json:"count"`
}

type settingValue struct {
	ModifiedOn time.Time `json:"modified_on"`
	ID         string    `json:"id"`
	Value      string    `json:"value"`
}
