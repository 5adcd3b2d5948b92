package registry

// Provider identifies the backend family a model is served by
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderXAI       Provider = "xai"
)

// DisplayName returns the vendor name shown next to a model
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderGoogle:
		return "Google"
	case ProviderXAI:
		return "xAI"
	default:
		return string(p)
	}
}
