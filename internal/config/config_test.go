package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quilldocs/quill/internal/providers"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Auth.JWTSecret != "${QUILL_JWT_SECRET}" {
		t.Error("expected jwt secret env placeholder")
	}
	if cfg.Generation.Provider != "azure" {
		t.Errorf("expected azure generation default, got %s", cfg.Generation.Provider)
	}
	if cfg.Storage.DatabasePath == "" || cfg.Storage.UploadDir == "" {
		t.Error("expected storage defaults")
	}
	if cfg.ListenAddr() != "127.0.0.1:8080" {
		t.Errorf("unexpected listen addr %s", cfg.ListenAddr())
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
server:
  host: "0.0.0.0"
  port: 9090
generation:
  provider: "openai"
  model: "gpt-4o"
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", cfg.Server.Port)
		}
		if cfg.Generation.Model != "gpt-4o" {
			t.Errorf("expected gpt-4o, got %s", cfg.Generation.Model)
		}
	})
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 8080
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var callbackCount atomic.Int32
	var lastPort atomic.Int32
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastPort.Store(int32(cfg.Server.Port))
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	newContent := `
server:
  port: 9191
`
	if err := os.WriteFile(configFile, []byte(newContent), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}
	if mgr.Get().Server.Port != 9191 {
		t.Errorf("config not updated: got port %d", mgr.Get().Server.Port)
	}
	if lastPort.Load() != 9191 {
		t.Errorf("callback received wrong port: %d", lastPort.Load())
	}
}

func TestLLMClientSelection(t *testing.T) {
	t.Run("no provider means placeholder mode", func(t *testing.T) {
		cfg := &Config{}
		client, err := cfg.LLMClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client != nil {
			t.Error("expected nil client")
		}
	})

	t.Run("missing api key means placeholder mode", func(t *testing.T) {
		cfg := &Config{Generation: GenerationCfg{Provider: "openai", APIKey: "${NOT_SET_ANYWHERE_999}"}}
		client, err := cfg.LLMClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client != nil {
			t.Error("expected nil client without an API key")
		}
	})

	t.Run("openai selected", func(t *testing.T) {
		cfg := &Config{Generation: GenerationCfg{Provider: "openai", APIKey: "sk-test", Model: "gpt-4o-mini"}}
		client, err := cfg.LLMClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client == nil || client.Name() != providers.OpenAIChatName {
			t.Errorf("client = %v", client)
		}
	})

	t.Run("azure selected", func(t *testing.T) {
		cfg := &Config{Generation: GenerationCfg{
			Provider:      "azure",
			APIKey:        "azure-key",
			Model:         "gpt-4o-mini",
			AzureEndpoint: "https://example.openai.azure.com",
		}}
		client, err := cfg.LLMClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client == nil || client.Name() != providers.AzureOpenAIChatName {
			t.Errorf("client = %v", client)
		}
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		cfg := &Config{Generation: GenerationCfg{Provider: "frobnicator"}}
		if _, err := cfg.LLMClient(); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestOCRProviderSelection(t *testing.T) {
	t.Run("disabled without config", func(t *testing.T) {
		cfg := &Config{}
		p, err := cfg.OCRProvider()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != nil {
			t.Error("expected nil provider")
		}
	})

	t.Run("azure selected", func(t *testing.T) {
		cfg := &Config{OCR: OCRCfg{Provider: "azure", Endpoint: "https://di.example.com", APIKey: "k"}}
		p, err := cfg.OCRProvider()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p == nil || p.Name() != providers.AzureOCRName {
			t.Errorf("provider = %v", p)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "generation:") || !strings.Contains(content, "jwt_secret:") {
		t.Errorf("default config missing sections:\n%s", content)
	}
}
