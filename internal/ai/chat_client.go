package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"rag-backend/models"
)

// GeminiChat is the chat completion gateway. Calls run through a circuit
// breaker and a client-side rate limiter; when the breaker is open the call
// fails instead of fabricating an answer, so the orchestrator can surface
// the failure rather than returning ungrounded text.
type GeminiChat struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// Free-tier request budget; generous enough for self-hosted deployments.
const requestsPerMinute = 60

func NewGeminiChat(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for chat completion")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiChat",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	rateLimiter := rate.NewLimiter(rate.Limit(float64(requestsPerMinute)*0.9/60.0), requestsPerMinute/10)

	return &GeminiChat{
		client:      client,
		model:       model,
		breaker:     breaker,
		rateLimiter: rateLimiter,
		logger:      logger,
	}, nil
}

// Complete sends the structured prompt (system instructions, prior turns,
// new user message) and returns the generated text.
func (gc *GeminiChat) Complete(ctx context.Context, system string, history []models.Turn, message string) (string, error) {
	tracer := otel.Tracer("chat-gateway")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", gc.model),
		attribute.Int("gemini.history_turns", len(history)),
		attribute.Int("gemini.prompt_chars", len(system)+len(message)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}

		session := model.StartChat()
		session.History = toGenaiHistory(history)

		resp, err := session.SendMessage(ctx, genai.Text(message))
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
		}
		return "", err
	}

	resp := result.(*genai.GenerateContentResponse)
	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("model returned no text candidates")
	}
	if resp.UsageMetadata != nil {
		span.SetAttributes(attribute.Int("gemini.total_tokens", int(resp.UsageMetadata.TotalTokenCount)))
	}
	return text, nil
}

// Name reports the configured model id.
func (gc *GeminiChat) Name() string { return gc.model }

func (gc *GeminiChat) Close() error { return gc.client.Close() }

// toGenaiHistory maps conversation turns onto the SDK's content roles.
// Assistant turns use the "model" role.
func toGenaiHistory(history []models.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := "user"
		if t.Role == models.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return out
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
		if text != "" {
			break
		}
	}
	return text
}
