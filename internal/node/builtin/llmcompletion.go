package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	domainerrors "github.com/arcflow/mbflow/internal/domain/errors"
	"github.com/arcflow/mbflow/internal/registry"
	"github.com/arcflow/mbflow/internal/utils"
)

// llmCompletionConfig is the decoded config for the llm-completion node. The
// prompt arrives already resolved: unlike the teacher's
// OpenAICompletionExecutor, this node performs no variable substitution of
// its own.
type llmCompletionConfig struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	APIKey      string  `json:"apiKey,omitempty"`
	OutputKey   string  `json:"outputKey,omitempty"`
}

// LLMCompletionNode sends a chat completion request to the OpenAI API.
// Grounded on the teacher's OpenAICompletionExecutor, trimmed to the
// resolved-config, single-message contract this engine's invocation
// sub-procedure already provides.
type LLMCompletionNode struct {
	DefaultAPIKey string
}

func NewLLMCompletionNode(defaultAPIKey string) *LLMCompletionNode {
	return &LLMCompletionNode{DefaultAPIKey: defaultAPIKey}
}

func (LLMCompletionNode) Metadata() registry.Metadata {
	return registry.Metadata{
		ID:          "llm-completion",
		Name:        "LLM Completion",
		Version:     "1.0.0",
		Description: "Requests a chat completion from an OpenAI-compatible model.",
		Inputs:      []string{"model", "prompt", "maxTokens", "temperature", "apiKey", "outputKey"},
		Outputs:     []string{"completion"},
		Edges:       []string{"success", "error"},
		Category:    "ai",
		Retryable:   true,
		AIHints: &registry.AIHints{
			Purpose:   "Generate text with a large language model and write it to state.",
			WhenToUse: "Use whenever a workflow needs free-text generation or summarization.",
		},
	}
}

func (n *LLMCompletionNode) Execute(ctx context.Context, config map[string]any, view registry.StateView) (string, []registry.Write, any, error) {
	cfg, err := decodeConfig[llmCompletionConfig]("llm-completion", config)
	if err != nil {
		return "", nil, nil, err
	}
	if cfg.Prompt == "" {
		return "", nil, nil, domainerrors.NewConfigurationError("llm-completion", "missing 'prompt' in config")
	}

	model := utils.DefaultValue(cfg.Model, "gpt-4o")
	outputKey := utils.DefaultValue(cfg.OutputKey, "completion")

	apiKey := utils.DefaultValue(cfg.APIKey, n.DefaultAPIKey)
	if apiKey == "" {
		return "", nil, nil, domainerrors.NewConfigurationError("llm-completion", "no API key available (config, node default)")
	}

	client := openai.NewClient(apiKey)
	req := openai.ChatCompletionRequest{
		Model:               model,
		MaxCompletionTokens: cfg.MaxTokens,
		Temperature:         float32(cfg.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: cfg.Prompt},
		},
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", nil, nil, fmt.Errorf("openai completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, nil, domainerrors.NewConfigurationError("llm-completion", "model returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result := map[string]any{
		"content":          content,
		"model":            resp.Model,
		"promptTokens":     resp.Usage.PromptTokens,
		"completionTokens": resp.Usage.CompletionTokens,
	}

	return "success", []registry.Write{{Path: outputKey, Value: result}}, nil, nil
}
