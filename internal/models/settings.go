package models

// SettingsKey is the key under which gateway settings are persisted.
const SettingsKey = "sheepy_plugin_settings"

const (
	DefaultTitle       = "Cryptocurrency, stablecoins and other digital assets"
	DefaultDescription = "Cryptocurrency payments are processed by Sheepy.com"
)

// StatusOverrides remaps invoice statuses to non-default order states.
type StatusOverrides map[InvoiceStatus]OrderState

// Credentials authenticate the gateway with Sheepy. SecretKey signs outbound
// API calls and NotificationKey verifies inbound notifications; the two are
// never interchanged.
type Credentials struct {
	APIKey          string `json:"api_key" yaml:"api_key"`
	SecretKey       string `json:"secret_key" yaml:"secret_key"`
	NotificationKey string `json:"notification_key" yaml:"notification_key"`
}

// Complete reports whether all three keys are set.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.SecretKey != "" && c.NotificationKey != ""
}

// GatewaySettings are the merchant-editable gateway options.
type GatewaySettings struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`

	Credentials `yaml:",inline"`

	StatusOverrides StatusOverrides `json:"order_states" yaml:"order_states"`
	DebugEnabled    bool            `json:"debug" yaml:"debug"`
}

// DefaultGatewaySettings returns the settings of a fresh install.
func DefaultGatewaySettings() *GatewaySettings {
	return &GatewaySettings{
		Enabled:         true,
		Title:           DefaultTitle,
		Description:     DefaultDescription,
		StatusOverrides: StatusOverrides{},
	}
}

// Redacted returns a copy safe to expose outside the process.
func (s *GatewaySettings) Redacted() GatewaySettings {
	out := *s
	out.APIKey = redact(s.APIKey)
	out.SecretKey = redact(s.SecretKey)
	out.NotificationKey = redact(s.NotificationKey)
	out.StatusOverrides = make(StatusOverrides, len(s.StatusOverrides))
	for k, v := range s.StatusOverrides {
		out.StatusOverrides[k] = v
	}
	return out
}

func redact(v string) string {
	if v == "" {
		return ""
	}
	return "********"
}
