package resend

// Config holds Resend credentials and the default sender.
type Config struct {
	APIKey      string `env:"RESEND_API_KEY" yaml:"api_key"`
	SenderEmail string `env:"RESEND_FROM_EMAIL" envDefault:"domains@example.com" yaml:"from_email"`
	SenderName  string `env:"RESEND_FROM_NAME" envDefault:"Custom Domains" yaml:"from_name"`
}

// Enabled reports whether an API key is configured.
func (c Config) Enabled() bool {
	return c.APIKey != ""
}
