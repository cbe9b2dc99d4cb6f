package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
	"github.com/arcflow/mbflow/internal/registry"
	"github.com/arcflow/mbflow/internal/utils"
)

// httpRequestConfig is the decoded config for the http-request node. URL,
// headers and body arrive already resolved; this node no longer substitutes
// variables itself, unlike the teacher's HTTPRequestExecutor.
type httpRequestConfig struct {
	URL       string            `json:"url"`
	Method    string            `json:"method,omitempty"`
	Body      any               `json:"body,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	OutputKey string            `json:"outputKey,omitempty"`
}

// HTTPRequestNode performs a single HTTP call and reports its response.
// Grounded on the teacher's HTTPRequestExecutor.
type HTTPRequestNode struct {
	Client *http.Client
}

func NewHTTPRequestNode() *HTTPRequestNode {
	return &HTTPRequestNode{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (HTTPRequestNode) Metadata() registry.Metadata {
	return registry.Metadata{
		ID:          "http-request",
		Name:        "HTTP Request",
		Version:     "1.0.0",
		Description: "Sends an HTTP request and captures the response.",
		Inputs:      []string{"url", "method", "body", "headers", "outputKey"},
		Outputs:     []string{"response"},
		Edges:       []string{"success", "error"},
		Category:    "io",
		AIHints: &registry.AIHints{
			Purpose: "Call an external HTTP API as part of a workflow step.",
		},
	}
}

func (n *HTTPRequestNode) Execute(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
	cfg, err := decodeConfig[httpRequestConfig]("http-request", config)
	if err != nil {
		return "", nil, nil, err
	}
	if cfg.URL == "" {
		return "", nil, nil, domainerrors.NewConfigurationError("http-request", "missing 'url' in config")
	}
	method := utils.DefaultValue(cfg.Method, http.MethodGet)

	var body io.Reader
	if cfg.Body != nil {
		switch v := cfg.Body.(type) {
		case string:
			body = bytes.NewReader([]byte(v))
		default:
			b, marshalErr := json.Marshal(v)
			if marshalErr != nil {
				return "", nil, nil, domainerrors.NewConfigurationError("http-request", fmt.Sprintf("failed to marshal body: %v", marshalErr))
			}
			body = bytes.NewReader(b)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
	if err != nil {
		return "", nil, nil, domainerrors.NewConfigurationError("http-request", fmt.Sprintf("failed to build request: %v", err))
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, nil, err
	}

	result := map[string]any{
		"statusCode": resp.StatusCode,
		"body":       string(respBody),
	}

	outputKey := utils.DefaultValue(cfg.OutputKey, "response")

	return "success", []registry.Write{{Path: outputKey, Value: result}}, nil, nil
}
