// Package backend talks to the local generative inference server and
// tracks its availability.
package backend

import (
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/merpai/merp/pkg/config"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Event string

const (
	EventConnected     Event = "connected"
	EventDisconnected  Event = "disconnected"
	EventHealth        Event = "health"
	EventModelSwitched Event = "model_switched"
)

// Callback receives connector events. Callbacks are invoked
// synchronously on the goroutine that triggered the transition.
type Callback func(event Event, data map[string]any)

// Connector is the generation backend. Generate and the listing calls
// never return errors; every failure degrades to a user-visible string
// or an empty collection.
type Connector interface {
	CheckConnection() bool
	Connected() bool
	ListModels() []string
	Model() string
	SwitchModel(name string)
	Generate(prompt string) string
	RegisterStatusCallback(cb Callback)
	RegisterModelCallback(cb Callback)
	StartHealthMonitor(intervalSeconds int) error
	StopHealthMonitor()
}

// New creates a connector for the configured provider
func New(cfg config.BackendConfig, logger *zap.Logger) (Connector, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		return NewOllamaConnector(cfg, logger), nil
	case ProviderOpenAI:
		return NewOpenAIConnector(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend provider: %q", cfg.Provider)
	}
}

// base carries the state shared by all connectors: the callback
// registries, the connectivity flag and the health-poll schedule.
type base struct {
	logger *zap.Logger

	cbMu            sync.Mutex
	statusCallbacks []Callback
	modelCallbacks  []Callback

	stateMu   sync.Mutex
	connected bool
	model     string

	cronMu  sync.Mutex
	monitor *cron.Cron
}

func (b *base) RegisterStatusCallback(cb Callback) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.statusCallbacks = append(b.statusCallbacks, cb)
}

func (b *base) RegisterModelCallback(cb Callback) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.modelCallbacks = append(b.modelCallbacks, cb)
}

func (b *base) notifyStatus(event Event, data map[string]any) {
	b.cbMu.Lock()
	callbacks := append([]Callback(nil), b.statusCallbacks...)
	b.cbMu.Unlock()
	for _, cb := range callbacks {
		b.invoke(cb, event, data)
	}
}

func (b *base) notifyModel(event Event, data map[string]any) {
	b.cbMu.Lock()
	callbacks := append([]Callback(nil), b.modelCallbacks...)
	b.cbMu.Unlock()
	for _, cb := range callbacks {
		b.invoke(cb, event, data)
	}
}

// invoke shields the notifier from misbehaving subscribers: one panic
// must not keep the remaining callbacks from running.
func (b *base) invoke(cb Callback, event Event, data map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("status callback panicked",
				zap.String("event", string(event)),
				zap.Any("panic", r))
		}
	}()
	cb(event, data)
}

// setConnected updates the flag and reports whether it changed
func (b *base) setConnected(connected bool) bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	changed := b.connected != connected
	b.connected = connected
	return changed
}

func (b *base) Connected() bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.connected
}

func (b *base) Model() string {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.model
}

func (b *base) setModel(name string) {
	b.stateMu.Lock()
	b.model = name
	b.stateMu.Unlock()
}

// startMonitor schedules check on a fixed interval; every run emits a
// health event with the result. Idempotent while running.
func (b *base) startMonitor(intervalSeconds int, check func() bool) error {
	b.cronMu.Lock()
	defer b.cronMu.Unlock()
	if b.monitor != nil {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %ds", intervalSeconds), func() {
		ok := check()
		b.notifyStatus(EventHealth, map[string]any{"connected": ok})
	})
	if err != nil {
		return fmt.Errorf("failed to schedule health check: %w", err)
	}

	c.Start()
	b.monitor = c
	b.logger.Info("health monitor started", zap.Int("interval_seconds", intervalSeconds))
	return nil
}

func (b *base) StopHealthMonitor() {
	b.cronMu.Lock()
	defer b.cronMu.Unlock()
	if b.monitor == nil {
		return
	}
	<-b.monitor.Stop().Done()
	b.monitor = nil
	b.logger.Info("health monitor stopped")
}
