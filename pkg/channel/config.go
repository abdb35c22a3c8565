package channel

// SMSConfig holds SMS gateway configuration. Provider selects which gateway
// the dispatcher talks to; all supported gateways share the same REST shape.
type SMSConfig struct {
	Provider   string `env:"SMS_PROVIDER" envDefault:"orange"`
	GatewayURL string `env:"SMS_GATEWAY_URL,required"`
	APIKey     string `env:"SMS_API_KEY,required"`
	SenderName string `env:"SMS_SENDER_NAME" envDefault:"SeyniProps"`
}

// ChatConfig holds chat gateway (WhatsApp Business API style) configuration.
type ChatConfig struct {
	GatewayURL  string `env:"CHAT_GATEWAY_URL,required"`
	AccessToken string `env:"CHAT_ACCESS_TOKEN,required"`
}

// EmailConfig holds transactional email configuration. The Postmark tokens
// are optional to support development environments where email sending is
// replaced by the dev adapter.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	ReplyToEmail         string `env:"REPLY_TO_EMAIL,required"`
}
