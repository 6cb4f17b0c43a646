package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/service"
	"github.com/framegate/framegate/internal/infrastructure/llm"
)

func init() {
	llm.RegisterFactory("openai", func(cfg llm.ProviderConfig, logger *zap.Logger) service.Provider {
		return New(cfg, logger)
	})
}

// Provider streams completions from any OpenAI-compatible endpoint.
type Provider struct {
	client *goopenai.Client
	model  string
	logger *zap.Logger
}

var _ service.Provider = (*Provider)(nil)

// New creates a provider against cfg.BaseURL.
func New(cfg llm.ProviderConfig, logger *zap.Logger) *Provider {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Provider{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger.With(zap.String("component", "provider"), zap.String("provider", "openai")),
	}
}

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.model }

// Stream runs one chat completion round, forwarding content deltas to
// onDelta as they arrive. Sampling is pinned (temperature, seed) so
// identical conversations replay identically where the upstream
// honors seeding.
func (p *Provider) Stream(ctx context.Context, req service.ProviderRequest, onDelta func(string)) error {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	seed := req.Seed

	stream, err := p.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		Seed:        &seed,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return fmt.Errorf("open completion stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive completion delta: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			onDelta(delta)
		}
	}
}
