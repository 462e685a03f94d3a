// Package answer produces short free-form replies for questions the intent
// resolver could not place.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"kiosk/agent/internal/catalog"
)

const DefaultModel = "gpt-4o-mini"

var ErrEmpty = errors.New("answer: empty completion")

type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// OpenAI answers with a chat completion grounded on the kiosk prompt.
type OpenAI struct {
	client openai.Client
	model  string
	prompt string
}

func NewOpenAI(apiKey, model, prompt string, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		prompt: prompt,
	}
}

func (o *OpenAI) Answer(ctx context.Context, question string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.prompt),
			openai.UserMessage(question),
		},
		Model: openai.ChatModel(o.model),
	})
	if err != nil {
		answerTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		answerTotal.WithLabelValues("empty").Inc()
		return "", ErrEmpty
	}
	answerTotal.WithLabelValues("ok").Inc()
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// KnowledgePrompt builds the system prompt from the catalog so answers stay
// on the kiosk's subjects.
func KnowledgePrompt(c *catalog.Catalog) string {
	org := c.Organization
	if org == "" {
		org = "this organization"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a friendly assistant for %s and ERP training. Keep replies under 3 sentences. ", org)
	b.WriteString("Do not greet; the visitor has already been welcomed. ")
	fmt.Fprintf(&b, "If asked about %s, answer briefly and include a helpful page link when possible. ", org)
	fmt.Fprintf(&b, "If the question is out of scope, say: 'There isn't enough information for that. Try asking about %s or ERP Module 1/2.'\n", org)
	if len(c.Topics) > 0 {
		b.WriteString("\nTopics:\n")
		for _, t := range c.Topics {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", t.Key, t.Summary, t.URL)
		}
	}
	if len(c.Modules) > 0 {
		b.WriteString("\nTraining modules:\n")
		for _, m := range c.Modules {
			fmt.Fprintf(&b, "- %s: %s\n", m.Title, m.Summary)
		}
	}
	return b.String()
}

// Speaker is the subset of a speech actor Assisted wraps.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Talk(ctx context.Context, text string) error
	Interrupt(ctx context.Context) error
}

// Assisted answers Talk requests itself and has the wrapped actor read the
// reply verbatim. Without an Answerer it defers to the actor's own Talk.
type Assisted struct {
	Speaker
	Answerer Answerer
	Log      *zap.Logger
}

func (a Assisted) Talk(ctx context.Context, text string) error {
	if a.Answerer == nil {
		return a.Speaker.Talk(ctx, text)
	}
	reply, err := a.Answerer.Answer(ctx, text)
	if err != nil {
		if a.Log != nil {
			a.Log.Warn("answer failed", zap.Error(err))
		}
		return err
	}
	return a.Speaker.Speak(ctx, reply)
}
