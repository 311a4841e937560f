package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/merpai/merp/pkg/config"
)

const (
	probeTimeout    = 2 * time.Second
	generateTimeout = 60 * time.Second
)

// Replies shown to the user when the backend cannot produce text
const (
	replyEmpty   = "hm, let me think about that..."
	replyTrouble = "having trouble thinking right now, try again."
	replyTimeout = "taking a moment... try again."
	replyError   = "got an error, try again."
)

// OllamaConnector speaks the Ollama HTTP surface: GET /api/tags for the
// probe and model listing, POST /api/generate for completions.
type OllamaConnector struct {
	base
	baseURL string
	cfg     config.BackendConfig
	client  *http.Client

	probeTimeout    time.Duration
	generateTimeout time.Duration
}

func NewOllamaConnector(cfg config.BackendConfig, logger *zap.Logger) *OllamaConnector {
	c := &OllamaConnector{
		baseURL:         strings.TrimRight(cfg.URL, "/"),
		cfg:             cfg,
		client:          &http.Client{},
		probeTimeout:    probeTimeout,
		generateTimeout: generateTimeout,
	}
	c.logger = logger
	c.model = cfg.Model
	return c
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CheckConnection probes the listing endpoint. Connected and
// disconnected events fire only on a state transition.
func (c *OllamaConnector) CheckConnection() bool {
	err := c.probeTags()
	if err != nil {
		if c.setConnected(false) {
			c.logger.Warn("backend disconnected", zap.Error(err))
			c.notifyStatus(EventDisconnected, map[string]any{"error": err.Error()})
		}
		return false
	}

	if c.setConnected(true) {
		c.logger.Info("connected to backend", zap.String("url", c.baseURL))
		c.notifyStatus(EventConnected, map[string]any{"url": c.baseURL})
	}
	return true
}

func (c *OllamaConnector) probeTags() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

// ListModels returns the models the backend advertises, or an empty
// slice on any failure.
func (c *OllamaConnector) ListModels() []string {
	ctx, cancel := context.WithTimeout(context.Background(), c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return []string{}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("model listing failed", zap.Error(err))
		return []string{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []string{}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return []string{}
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names
}

// SwitchModel records the active model. No network call is made; the
// next generation request simply uses the new id.
func (c *OllamaConnector) SwitchModel(name string) {
	c.setModel(name)
	c.logger.Info("model switched", zap.String("model", name))
	c.notifyModel(EventModelSwitched, map[string]any{"model": name})
}

// Generate submits the prompt and returns the completion text. Backend
// failures never surface as errors, only as canned replies.
func (c *OllamaConnector) Generate(prompt string) string {
	ctx, cancel := context.WithTimeout(context.Background(), c.generateTimeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:       c.Model(),
		Prompt:      prompt,
		Stream:      false,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		NumPredict:  c.cfg.MaxTokens,
	})
	if err != nil {
		return replyError
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return replyError
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("generation timed out")
			return replyTimeout
		}
		c.logger.Warn("generation failed", zap.Error(err))
		return replyError
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("generation returned non-200", zap.Int("status", resp.StatusCode))
		return replyTrouble
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn("failed to decode generation response", zap.Error(err))
		return replyError
	}

	text := strings.TrimSpace(result.Response)
	if text == "" {
		return replyEmpty
	}
	return text
}

func (c *OllamaConnector) StartHealthMonitor(intervalSeconds int) error {
	return c.startMonitor(intervalSeconds, c.CheckConnection)
}
