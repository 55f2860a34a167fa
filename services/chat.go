package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rag-backend/internal/retry"
	"rag-backend/models"
)

// chatState tracks one chat request through the orchestrator. States only
// advance forward; failed is reachable from any state.
type chatState string

const (
	stateReceived    chatState = "received"
	stateRetrieving  chatState = "retrieving"
	statePromptBuilt chatState = "prompt_built"
	stateGenerating  chatState = "generating"
	stateComplete    chatState = "complete"
	stateFailed      chatState = "failed"
)

const defaultSystemInstructions = "You are a helpful assistant. Answer using the provided context. " +
	"If the context is insufficient to answer, say so instead of guessing."

// ChatConfig bounds the prompt assembled by the orchestrator.
type ChatConfig struct {
	SystemInstructions   string
	PromptCharBudget     int
	MaxConversationTurns int
}

// ChatService combines retrieval output with the caller-held conversation,
// builds a budgeted prompt, and invokes the chat model. It keeps no state
// between calls; the caller owns and passes the conversation each time.
type ChatService struct {
	retrieval *RetrievalService
	model     ChatModel
	cfg       ChatConfig
	retry     retry.Policy
	timeout   time.Duration
	logger    *slog.Logger
}

func NewChatService(retrieval *RetrievalService, model ChatModel, cfg ChatConfig, policy retry.Policy, timeout time.Duration, logger *slog.Logger) (*ChatService, error) {
	if cfg.SystemInstructions == "" {
		cfg.SystemInstructions = defaultSystemInstructions
	}
	if cfg.PromptCharBudget <= 0 {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("prompt char budget must be positive, got %d", cfg.PromptCharBudget)}
	}
	if cfg.MaxConversationTurns < 0 {
		return nil, &ConfigurationError{Msg: "max conversation turns must not be negative"}
	}
	return &ChatService{
		retrieval: retrieval,
		model:     model,
		cfg:       cfg,
		retry:     policy,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Chat answers the query grounded in retrieved context. The returned
// Answer's Sources are exactly the chunks included in the prompt after
// budget truncation. topK <= 0 and threshold nil select the retrieval
// defaults.
func (s *ChatService) Chat(ctx context.Context, conversation []models.Turn, query string, topK int, threshold *float64) (*models.Answer, error) {
	state := stateReceived
	fail := func(err error) error {
		s.logger.Warn("chat request failed", "state", string(state), "error", err)
		state = stateFailed
		return err
	}

	if strings.TrimSpace(query) == "" {
		return nil, fail(&ValidationError{Msg: "query must not be empty"})
	}
	// Sliding context window: only the most recent turns reach the prompt;
	// the caller-held history is left untouched.
	recent := conversation
	if s.cfg.MaxConversationTurns > 0 && len(recent) > s.cfg.MaxConversationTurns {
		recent = recent[len(recent)-s.cfg.MaxConversationTurns:]
	}

	state = stateRetrieving
	retrievalStart := time.Now()
	retrieved, err := s.retrieval.Retrieve(ctx, query, topK, threshold)
	if err != nil {
		return nil, fail(err)
	}
	retrievalMs := int(time.Since(retrievalStart).Milliseconds())

	promptStart := time.Now()
	system, included := s.buildPrompt(recent, query, retrieved)
	state = statePromptBuilt
	promptMs := int(time.Since(promptStart).Milliseconds())
	s.logger.Debug("prompt assembled",
		"retrieved_chunks", len(retrieved),
		"included_chunks", len(included),
		"budget", s.cfg.PromptCharBudget,
	)

	state = stateGenerating
	generationStart := time.Now()
	var text string
	err = s.retry.Do(ctx, "chat completion", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		out, err := s.model.Complete(cctx, system, recent, query)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return nil, fail(&GenerationError{Err: err})
	}
	generationMs := int(time.Since(generationStart).Milliseconds())

	state = stateComplete
	s.logger.Info("chat request complete",
		"state", string(state),
		"sources", len(included),
		"retrieval_ms", retrievalMs,
		"generation_ms", generationMs,
	)
	return &models.Answer{
		Text:    text,
		Sources: included,
		Model:   s.model.Name(),
		Timings: models.PhaseTimings{
			RetrievalMs:      retrievalMs,
			PromptBuildingMs: promptMs,
			GenerationMs:     generationMs,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

// buildPrompt renders the system block (instructions plus source-tagged
// context) under the character budget. The budget covers the whole prompt:
// instructions, context, the recent turns, and the query. Chunks are added
// highest-similarity first and dropped whole from the low-similarity end
// when they would overflow; a chunk is never truncated mid-text.
func (s *ChatService) buildPrompt(recent []models.Turn, query string, retrieved []models.ScoredChunk) (string, []models.ScoredChunk) {
	fixed := runeLen(s.cfg.SystemInstructions) + runeLen(query)
	for _, t := range recent {
		fixed += runeLen(t.Role) + runeLen(t.Content)
	}

	const contextHeader = "\n\nContext:\n\n"
	const blockSeparator = "\n\n"

	remaining := s.cfg.PromptCharBudget - fixed
	var blocks []string
	included := make([]models.ScoredChunk, 0, len(retrieved))
	for i, sc := range retrieved {
		block := renderChunk(i+1, sc)
		cost := runeLen(block)
		if len(blocks) == 0 {
			cost += runeLen(contextHeader)
		} else {
			cost += runeLen(blockSeparator)
		}
		if cost > remaining {
			break
		}
		remaining -= cost
		blocks = append(blocks, block)
		included = append(included, sc)
	}

	system := s.cfg.SystemInstructions
	if len(blocks) > 0 {
		system += contextHeader + strings.Join(blocks, blockSeparator)
	}
	return system, included
}

func renderChunk(n int, sc models.ScoredChunk) string {
	source := sc.Source
	if source == "" {
		source = sc.DocumentID
	}
	return fmt.Sprintf("[source %d: %s#%d]\n%s", n, source, sc.ChunkIndex, sc.Text)
}

func runeLen(s string) int {
	return len([]rune(s))
}
