package config

import (
	"fmt"
	"time"

	"github.com/quilldocs/quill/internal/providers"
)

// LLMClient builds the generation backend selected by the configuration,
// resolving ${ENV_VAR} references in secrets. A missing provider or API
// key returns (nil, nil): the pipeline then runs in placeholder mode
// rather than failing startup.
func (c *Config) LLMClient() (providers.LLMClient, error) {
	gen := c.Generation
	apiKey := ResolveEnvVars(gen.APIKey)

	switch gen.Provider {
	case "":
		return nil, nil
	case "openai":
		if apiKey == "" {
			return nil, nil
		}
		return providers.NewOpenAIChatClient(providers.OpenAIChatConfig{
			APIKey:     apiKey,
			Model:      gen.Model,
			Timeout:    time.Duration(gen.TimeoutSeconds) * time.Second,
			MaxRetries: gen.MaxRetries,
		}), nil
	case "azure":
		endpoint := ResolveEnvVars(gen.AzureEndpoint)
		if apiKey == "" || endpoint == "" {
			return nil, nil
		}
		deployment := gen.AzureDeployment
		if deployment == "" {
			deployment = gen.Model
		}
		return providers.NewOpenAIChatClient(providers.OpenAIChatConfig{
			APIKey:          apiKey,
			Model:           gen.Model,
			AzureEndpoint:   endpoint,
			AzureDeployment: deployment,
			AzureAPIVersion: gen.AzureAPIVersion,
			Timeout:         time.Duration(gen.TimeoutSeconds) * time.Second,
			MaxRetries:      gen.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", gen.Provider)
	}
}

// OCRProvider builds the text extraction provider, or (nil, nil) when OCR
// is disabled or unconfigured. With no provider, uploads are limited to
// plain text files.
func (c *Config) OCRProvider() (providers.OCRProvider, error) {
	ocr := c.OCR
	switch ocr.Provider {
	case "":
		return nil, nil
	case "azure":
		endpoint := ResolveEnvVars(ocr.Endpoint)
		apiKey := ResolveEnvVars(ocr.APIKey)
		if endpoint == "" || apiKey == "" {
			return nil, nil
		}
		return providers.NewAzureOCRClient(providers.AzureOCRConfig{
			Endpoint:     endpoint,
			APIKey:       apiKey,
			Timeout:      time.Duration(ocr.TimeoutSeconds) * time.Second,
			PollInterval: time.Duration(ocr.PollIntervalSeconds) * time.Second,
			RateLimit:    ocr.RateLimit,
			Retries:      ocr.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", ocr.Provider)
	}
}
