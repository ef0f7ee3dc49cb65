package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 5 * time.Second
)

// ErrAPIKeyNotSet is returned when no OpenAI key is configured.
var ErrAPIKeyNotSet = errors.New("narrative: OpenAI API key not set")

// Generator produces short human-readable match rationales. Strictly
// best-effort: it never influences the ranking, and the matcher falls back
// to a fixed template when it fails.
type Generator struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewGenerator(apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = defaultModel
	}
	return &Generator{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: defaultTimeout,
	}, nil
}

func (g *Generator) Narrate(ctx context.Context, job models.Job, ranked []models.RankedCandidate) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var b strings.Builder
	fmt.Fprintf(&b, "Summarize in one sentence for an operator why these workers rank in this order for a %s job. ", job.ServiceType)
	b.WriteString("Scores combine distance, rating, experience and specialization. Candidates: ")
	for i, c := range ranked {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s score %d, %.1f mi away, rating %.1f, %d jobs done",
			c.Pro.Name, c.Score, c.DistanceMiles, c.Pro.Rating, c.Pro.CompletedJobs)
	}

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(b.String()),
		},
		MaxTokens:   openai.Int(120),
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("narrative: empty completion")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
