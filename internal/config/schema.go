package config

// Config holds quill configuration.
// Loaded from config.yaml with QUILL_ environment overrides.
type Config struct {
	Server     ServerCfg     `mapstructure:"server" yaml:"server"`
	Storage    StorageCfg    `mapstructure:"storage" yaml:"storage"`
	Auth       AuthCfg       `mapstructure:"auth" yaml:"auth"`
	Generation GenerationCfg `mapstructure:"generation" yaml:"generation"`
	OCR        OCRCfg        `mapstructure:"ocr" yaml:"ocr"`
}

// ServerCfg configures the HTTP listener.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// StorageCfg configures persistence paths.
type StorageCfg struct {
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // SQLite file path
	UploadDir    string `mapstructure:"upload_dir" yaml:"upload_dir"`       // Uploaded source files
}

// AuthCfg configures bearer-token authentication.
type AuthCfg struct {
	JWTSecret       string `mapstructure:"jwt_secret" yaml:"jwt_secret"` // Supports ${ENV_VAR} syntax
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes" yaml:"token_ttl_minutes"`
}

// GenerationCfg configures the content generation backend.
// Provider is "azure", "openai", or "" for placeholder mode.
type GenerationCfg struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"` // Supports ${ENV_VAR} syntax

	// Azure OpenAI only.
	AzureEndpoint   string `mapstructure:"azure_endpoint" yaml:"azure_endpoint"`
	AzureDeployment string `mapstructure:"azure_deployment" yaml:"azure_deployment"`
	AzureAPIVersion string `mapstructure:"azure_api_version" yaml:"azure_api_version"`

	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries" yaml:"max_retries"`
}

// OCRCfg configures the text extraction provider.
// Provider is "azure" or "" to disable OCR (plain-text uploads only).
type OCRCfg struct {
	Provider            string  `mapstructure:"provider" yaml:"provider"`
	Endpoint            string  `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey              string  `mapstructure:"api_key" yaml:"api_key"` // Supports ${ENV_VAR} syntax
	RateLimit           float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	MaxRetries          int     `mapstructure:"max_retries" yaml:"max_retries"`
	TimeoutSeconds      int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	PollIntervalSeconds int     `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Storage: StorageCfg{
			DatabasePath: "quill.db",
			UploadDir:    "uploads",
		},
		Auth: AuthCfg{
			JWTSecret:       "${QUILL_JWT_SECRET}",
			TokenTTLMinutes: 1440,
		},
		Generation: GenerationCfg{
			Provider:       "azure",
			Model:          "gpt-4o-mini",
			APIKey:         "${AZURE_OPENAI_API_KEY}",
			AzureEndpoint:  "${AZURE_OPENAI_ENDPOINT}",
			TimeoutSeconds: 120,
			MaxRetries:     3,
		},
		OCR: OCRCfg{
			Provider:            "azure",
			Endpoint:            "${AZURE_DI_ENDPOINT}",
			APIKey:              "${AZURE_DI_API_KEY}",
			RateLimit:           1.0,
			MaxRetries:          3,
			TimeoutSeconds:      120,
			PollIntervalSeconds: 2,
		},
	}
}

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	host := c.Server.Host
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return joinHostPort(host, port)
}
