package mailer

// Config holds mailer defaults.
type Config struct {
	FallbackSubject string `env:"MAILER_FALLBACK_SUBJECT" envDefault:"Custom domain update" yaml:"fallback_subject"`
	ReplyTo         string `env:"MAILER_REPLY_TO" yaml:"reply_to"`
}
