package backend

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/merpai/merp/pkg/config"
)

// OpenAIConnector targets local servers exposing an OpenAI-compatible
// chat surface (LM Studio, llama.cpp server, Ollama's /v1 endpoint).
// Semantics match the Ollama connector: probes and generation degrade
// to empty listings and canned replies, never errors.
type OpenAIConnector struct {
	base
	cfg    config.BackendConfig
	client *openai.Client
}

func NewOpenAIConnector(cfg config.BackendConfig, logger *zap.Logger) *OpenAIConnector {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.URL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.URL, "/")
	}

	c := &OpenAIConnector{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
	c.logger = logger
	c.model = cfg.Model
	return c
}

func (c *OpenAIConnector) CheckConnection() bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	_, err := c.client.ListModels(ctx)
	if err != nil {
		if c.setConnected(false) {
			c.logger.Warn("backend disconnected", zap.Error(err))
			c.notifyStatus(EventDisconnected, map[string]any{"error": err.Error()})
		}
		return false
	}

	if c.setConnected(true) {
		c.logger.Info("connected to backend", zap.String("url", c.cfg.URL))
		c.notifyStatus(EventConnected, map[string]any{"url": c.cfg.URL})
	}
	return true
}

func (c *OpenAIConnector) ListModels() []string {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	list, err := c.client.ListModels(ctx)
	if err != nil {
		c.logger.Debug("model listing failed", zap.Error(err))
		return []string{}
	}

	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names
}

func (c *OpenAIConnector) SwitchModel(name string) {
	c.setModel(name)
	c.logger.Info("model switched", zap.String("model", name))
	c.notifyModel(EventModelSwitched, map[string]any{"model": name})
}

func (c *OpenAIConnector) Generate(prompt string) string {
	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.Model(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: float32(c.cfg.Temperature),
		TopP:        float32(c.cfg.TopP),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("generation timed out")
			return replyTimeout
		}
		c.logger.Warn("generation failed", zap.Error(err))
		return replyError
	}

	if len(resp.Choices) == 0 {
		return replyEmpty
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return replyEmpty
	}
	return text
}

func (c *OpenAIConnector) StartHealthMonitor(intervalSeconds int) error {
	return c.startMonitor(intervalSeconds, c.CheckConnection)
}

var _ Connector = (*OllamaConnector)(nil)
var _ Connector = (*OpenAIConnector)(nil)
