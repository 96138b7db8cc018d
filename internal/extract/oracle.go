package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"foliogen/internal/config"
)

// Oracle 抽象外部补全服务，测试时可替换为本地假实现。
type Oracle interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIOracle 通过 OpenAI 兼容接口（如 DeepSeek）调用补全模型。
type OpenAIOracle struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIOracle 根据配置构造补全客户端。
func NewOpenAIOracle(cfg config.OracleConfig) (*OpenAIOracle, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("oracle api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &OpenAIOracle{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout(),
	}, nil
}

// Complete 发起一次 JSON 响应格式的对话补全。
func (o *OpenAIOracle) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("oracle completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from oracle")
	}

	return resp.Choices[0].Message.Content, nil
}
