package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	AzureOCRName       = "azure-di"
	azureOCRAPIVersion = "2023-07-31"
	azureOCRModel      = "prebuilt-read"
)

// AzureOCRConfig holds configuration for the Azure Document Intelligence
// client (prebuilt-read model).
type AzureOCRConfig struct {
	Endpoint     string
	APIKey       string
	Timeout      time.Duration
	PollInterval time.Duration
	RateLimit    float64 // Requests per second
	Retries      int
	RetryDelay   time.Duration
	HTTPClient   *http.Client // Optional (tests)
}

// AzureOCRClient implements OCRProvider against the Azure Document
// Intelligence REST API. Analysis is asynchronous: a submit request
// returns an operation URL that is polled until the result is ready.
type AzureOCRClient struct {
	endpoint     string
	apiKey       string
	pollInterval time.Duration
	rateLimit    float64
	retries      int
	retryDelay   time.Duration
	client       *http.Client
}

// NewAzureOCRClient creates a new Azure Document Intelligence client.
func NewAzureOCRClient(cfg AzureOCRConfig) *AzureOCRClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1.0
	}
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &AzureOCRClient{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		rateLimit:    cfg.RateLimit,
		retries:      cfg.Retries,
		retryDelay:   cfg.RetryDelay,
		client:       httpClient,
	}
}

// Name returns the provider identifier.
func (c *AzureOCRClient) Name() string {
	return AzureOCRName
}

// RequestsPerSecond returns the rate limit.
func (c *AzureOCRClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// MaxRetries returns the maximum retry attempts.
func (c *AzureOCRClient) MaxRetries() int {
	return c.retries
}

// RetryDelayBase returns the base delay for exponential backoff.
func (c *AzureOCRClient) RetryDelayBase() time.Duration {
	return c.retryDelay
}

// ExtractText runs the prebuilt-read model over the document bytes and
// returns the concatenated text content.
func (c *AzureOCRClient) ExtractText(ctx context.Context, document []byte, filename string) (*OCRResult, error) {
	start := time.Now()
	result := &OCRResult{}

	var opURL string
	err := retry.Do(
		func() error {
			var submitErr error
			opURL, submitErr = c.submit(ctx, document, filename)
			return submitErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.retries)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(_ uint, _ error) { result.RetryCount++ }),
	)
	if err != nil {
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("azure ocr submit failed: %w", err)
	}

	text, pageCount, err := c.poll(ctx, opURL)
	result.ExecutionTime = time.Since(start)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, fmt.Errorf("azure ocr analyze failed: %w", err)
	}

	result.Success = true
	result.Text = text
	result.Metadata = map[string]any{
		"model_used": azureOCRModel,
		"page_count": pageCount,
	}
	return result, nil
}

// submit posts the document for analysis and returns the operation URL.
func (c *AzureOCRClient) submit(ctx context.Context, document []byte, filename string) (string, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?api-version=%s",
		c.endpoint, azureOCRModel, azureOCRAPIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(document))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentTypeFor(filename))
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected submit status %d: %s", resp.StatusCode, string(body))
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", fmt.Errorf("missing Operation-Location header")
	}
	return opURL, nil
}

// poll fetches the operation result until it succeeds or fails.
func (c *AzureOCRClient) poll(ctx context.Context, opURL string) (string, int, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
		if err != nil {
			return "", 0, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return "", 0, err
		}

		var body azureAnalyzeResponse
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return "", 0, fmt.Errorf("failed to decode analyze response: %w", err)
		}

		switch body.Status {
		case "succeeded":
			return body.AnalyzeResult.Content, len(body.AnalyzeResult.Pages), nil
		case "failed":
			return "", 0, fmt.Errorf("analysis failed: %s", body.Error.Message)
		}

		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

type azureAnalyzeResponse struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Content string `json:"content"`
		Pages   []struct {
			PageNumber int `json:"pageNumber"`
		} `json:"pages"`
	} `json:"analyzeResult"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Verify interface
var _ OCRProvider = (*AzureOCRClient)(nil)
