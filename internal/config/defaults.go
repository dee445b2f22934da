package config

import (
	"github.com/shopspring/decimal"

	"aromabot/internal/pricing"
)

const defaultPersona = "Você é um assistente atencioso que ajuda clientes de uma loja de fragrâncias. " +
	"Responda em português, de forma simpática, curta e adequada ao WhatsApp."

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			DataDir:   "~/.aromabot",
			LogLevel:  "info",
			Workers:   4,
			QueueSize: 100,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			WebhookPath: "/webhook",
			MetricsPath: "/metrics",
		},
		Catalog: CatalogConfig{
			Backend:          "sqlite",
			DBPath:           "~/.aromabot/catalog.db",
			CodeField:        "PRO_IN_CODIGO",
			DescriptionField: "PRO_ST_DESCRICAO",
			CostField:        "PRO_RE_CUSTO",
			CacheTTLSeconds:  300,
			TimeoutSeconds:   10,
		},
		Knowledge: KnowledgeConfig{
			Provider:       "duckduckgo-html",
			MaxResults:     3,
			TimeoutSeconds: 10,
		},
		Responder: ResponderConfig{
			APIBase:        "https://openrouter.ai/api/v1",
			Model:          "openai/gpt-3.5-turbo",
			Persona:        defaultPersona,
			MaxTokens:      512,
			TimeoutSeconds: 30,
		},
		Delivery: DeliveryConfig{
			Provider: "ultramsg",
			UltraMsg: UltraMsgConfig{
				APIBase: "https://api.ultramsg.com",
			},
			WhatsApp: WhatsAppConfig{
				APIBase: "https://graph.facebook.com/v21.0",
			},
			TimeoutSeconds: 15,
			RatePerSecond:  5,
			Burst:          5,
		},
		Pricing: PricingConfig{
			Divisor: decimal.RequireFromString(pricing.DefaultDivisor),
		},
		Dedupe: DedupeConfig{
			TTLSeconds: 600,
			MaxEntries: 10000,
		},
	}
}

// Template returns the defaults with secrets replaced by environment
// placeholders, suitable for writing a fresh config file.
func Template() *Config {
	cfg := Defaults()
	cfg.Responder.APIKey = "${OPENROUTER_API_KEY}"
	cfg.Delivery.UltraMsg.Instance = "${ULTRAMSG_INSTANCE}"
	cfg.Delivery.UltraMsg.Token = "${ULTRAMSG_TOKEN}"
	cfg.Delivery.WhatsApp.AccessToken = "${WHATSAPP_ACCESS_TOKEN}"
	cfg.Delivery.WhatsApp.PhoneNumberID = "${WHATSAPP_PHONE_NUMBER_ID}"
	cfg.Delivery.Telegram.Token = "${TELEGRAM_BOT_TOKEN}"
	return cfg
}
