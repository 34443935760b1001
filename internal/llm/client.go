// Package llm provides the client for the external generation/retrieval
// service, including the document store surface and the retry layer around
// generation calls.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	apiVersion     = "v1beta"
)

// File states reported by the remote service while it indexes an upload.
const (
	FileStateProcessing = "PROCESSING"
	FileStateActive     = "ACTIVE"
	FileStateFailed     = "FAILED"
)

// Store is a named document collection on the remote service.
type Store struct {
	Name        string
	DisplayName string
}

// File is a raw binary resource on the remote service.
type File struct {
	Name        string
	DisplayName string
	MIMEType    string
	State       string
}

// Metadatum is a single key/value tag attached to an indexed document.
type Metadatum struct {
	Key          string
	StringValue  string
	NumericValue *float64
}

// Document is an indexed entry inside a store.
type Document struct {
	Name           string
	DisplayName    string
	CustomMetadata []Metadatum
}

// Tags flattens the document's string-valued metadata into a map.
func (d *Document) Tags() map[string]string {
	tags := make(map[string]string, len(d.CustomMetadata))
	for _, m := range d.CustomMetadata {
		if m.StringValue != "" {
			tags[m.Key] = m.StringValue
		}
	}
	return tags
}

// GenerateRequest describes a single generation call. When StoreNames is set
// the call is grounded in those stores, optionally scoped by MetadataFilter.
// When JSONSchema is set the response is constrained to that schema.
type GenerateRequest struct {
	System         string
	Prompt         string
	Temperature    float64
	StoreNames     []string
	MetadataFilter string
	JSONSchema     json.RawMessage
}

// APIError is a structured error returned by the remote service.
type APIError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Code, e.Status, e.Message)
}

// Client is the boundary to the external generation/retrieval service.
// Everything above this interface is deterministic scaffolding; tests swap in
// fakes.
type Client interface {
	// GenerateContent issues one generation call and returns the raw text.
	GenerateContent(ctx context.Context, req *GenerateRequest) (string, error)

	CreateStore(ctx context.Context, displayName string) (*Store, error)
	ListStores(ctx context.Context) ([]*Store, error)
	DeleteStore(ctx context.Context, name string, force bool) error

	UploadFile(ctx context.Context, r io.Reader, displayName, mimeType string) (*File, error)
	GetFile(ctx context.Context, name string) (*File, error)
	DeleteFile(ctx context.Context, name string) error

	ImportFile(ctx context.Context, storeName, fileName string, metadata []Metadatum) error
	ListDocuments(ctx context.Context, storeName string) ([]*Document, error)
	DeleteDocument(ctx context.Context, name string) error
}

// GeminiClient implements Client over the service's REST API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

// Option customizes a GeminiClient.
type Option func(*GeminiClient)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *GeminiClient) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *GeminiClient) { c.httpClient = hc }
}

// NewGeminiClient creates a client for the given API key and model.
func NewGeminiClient(apiKey, model string, log *zap.Logger, opts ...Option) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model identifier is required")
	}
	c := &GeminiClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		log: log.Named("llm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model identifier.
func (c *GeminiClient) Model() string {
	return c.model
}

// GenerateContent issues one generation call and returns the concatenated
// text of the first candidate.
func (c *GeminiClient) GenerateContent(ctx context.Context, req *GenerateRequest) (string, error) {
	temp := req.Temperature
	body := &generateContentRequest{
		Contents: []wireContent{
			{Role: "user", Parts: []wirePart{{Text: req.Prompt}}},
		},
		GenerationConfig: &wireGenerationConfig{Temperature: &temp},
	}
	if req.System != "" {
		body.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.System}}}
	}
	if len(req.StoreNames) > 0 {
		body.Tools = []wireTool{{
			FileSearch: &wireFileSearch{
				FileSearchStoreNames: req.StoreNames,
				MetadataFilter:       req.MetadataFilter,
			},
		}}
	}
	if req.JSONSchema != nil {
		body.GenerationConfig.ResponseMIMEType = "application/json"
		body.GenerationConfig.ResponseJSONSchema = req.JSONSchema
	}

	var resp generateContentResponse
	path := fmt.Sprintf("/%s/models/%s:generateContent", apiVersion, c.model)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, p := range candidate.Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// doJSON performs one JSON request/response round trip. Non-2xx responses are
// decoded into an *APIError when the service returns its error envelope.
func (c *GeminiClient) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != nil {
			return envelope.Error
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
