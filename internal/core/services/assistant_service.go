package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"parley/internal/core/domain"
	"parley/internal/core/ports"
	"parley/pkg/circuitbreaker"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

const assistantSystemPrompt = "You are a helpful in-call assistant for a two-party video chat. " +
	"Answer the user's questions briefly and stay on topic."

type assistantService struct {
	client  oai.Client
	model   string
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

// NewAssistantService builds an assistant backed by an OpenAI-compatible chat
// completion endpoint. The circuit breaker keeps a misbehaving upstream from
// stalling every request.
func NewAssistantService(apiKey, model, baseURL string, timeout time.Duration, logger *zap.SugaredLogger) (ports.AssistantService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("assistant: api key must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("assistant: model must not be empty")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	}

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig())
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("assistant circuit state changed", "from", from.String(), "to", to.String())
	})

	return &assistantService{
		client:  oai.NewClient(reqOpts...),
		model:   model,
		breaker: breaker,
		logger:  logger,
	}, nil
}

func (s *assistantService) Ask(ctx context.Context, question string, history []domain.ChatMessage) (string, error) {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, oai.SystemMessage(assistantSystemPrompt))

	for _, m := range history {
		switch m.Role {
		case "assistant":
			messages = append(messages, oai.AssistantMessage(m.Content))
		case "user":
			messages = append(messages, oai.UserMessage(m.Content))
		default:
			return "", fmt.Errorf("assistant: unknown message role %q", m.Role)
		}
	}
	messages = append(messages, oai.UserMessage(question))

	result, err := s.breaker.ExecuteWithResult(ctx, func() (interface{}, error) {
		resp, err := s.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
			Model:    shared.ChatModel(s.model),
			Messages: messages,
		})
		if err != nil {
			return nil, fmt.Errorf("assistant: chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("assistant: empty choices in response")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		s.logger.Warnw("assistant request failed", "error", err)
		return "", err
	}

	answer := result.(string)
	s.logger.Infow("assistant answered", "question_len", len(question), "answer_len", len(answer))
	return answer, nil
}
