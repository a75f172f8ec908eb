package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIChatName      = "openai"
	AzureOpenAIChatName = "azure-openai"

	openAIChatDefaultModel = "gpt-4o-mini"
	azureDefaultAPIVersion = "2023-09-01-preview"
)

// OpenAIChatConfig holds configuration for the chat client. When
// AzureEndpoint and AzureDeployment are both set the client talks to an
// Azure OpenAI deployment; otherwise it uses the public API with APIKey.
type OpenAIChatConfig struct {
	APIKey string
	Model  string // Ignored for Azure; the deployment is the model.

	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	Timeout    time.Duration
	MaxRetries int
	BaseURL    string       // Optional (tests)
	HTTPClient *http.Client // Optional (tests)
}

// IsAzure reports whether the config selects the Azure variant.
func (c OpenAIChatConfig) IsAzure() bool {
	return c.AzureEndpoint != "" && c.AzureDeployment != ""
}

// OpenAIChatClient implements LLMClient using the official OpenAI SDK,
// covering both the public API and Azure deployments.
type OpenAIChatClient struct {
	name   string
	model  string
	client openai.Client
}

// NewOpenAIChatClient creates a chat client from config.
func NewOpenAIChatClient(cfg OpenAIChatConfig) *OpenAIChatClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}

	name := OpenAIChatName
	model := cfg.Model
	if model == "" {
		model = openAIChatDefaultModel
	}

	if cfg.IsAzure() {
		name = AzureOpenAIChatName
		model = cfg.AzureDeployment
		apiVersion := cfg.AzureAPIVersion
		if apiVersion == "" {
			apiVersion = azureDefaultAPIVersion
		}
		opts = append(opts,
			azure.WithEndpoint(cfg.AzureEndpoint, apiVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	}

	return &OpenAIChatClient{
		name:   name,
		model:  model,
		client: openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIChatClient) Name() string {
	return c.name
}

// Chat sends a chat completion request.
func (c *OpenAIChatClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  c.name,
		ModelUsed: model,
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	result.ExecutionTime = time.Since(start)
	if err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
		return result, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		result.Success = false
		result.ErrorMessage = "no choices in chat completion response"
		return result, fmt.Errorf("no choices in chat completion response")
	}

	result.Success = true
	result.Content = resp.Choices[0].Message.Content
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}

	return result, nil
}

// Verify interface
var _ LLMClient = (*OpenAIChatClient)(nil)
