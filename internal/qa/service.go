// Package qa implements the question-answering service: embed the question,
// retrieve the most relevant course content, and generate an answer grounded
// in the retrieved excerpts.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/edurag/courseta-go/internal/gateway"
	"github.com/edurag/courseta-go/internal/index"
)

// systemPrompt frames the model as the course TA and keeps answers grounded
// in the retrieved excerpts.
const systemPrompt = `You are a Teaching Assistant for the Tools in Data Science course at IIT Madras.
Answer the student's question using only the provided course content and forum excerpts.
If the excerpts do not contain enough information to answer, say so plainly instead of guessing.
Be concise and specific.`

// linkTextLimit caps the snippet used as a link label.
const linkTextLimit = 100

// Link points a student back at a supporting document.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Answer is the full response to one question.
type Answer struct {
	Answer string `json:"answer"`
	Links  []Link `json:"links"`
}

// generator is the slice of the chat model the service needs.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Service answers questions over the indexed course corpus.
type Service struct {
	embedder gateway.Embedder
	searcher index.Searcher
	model    generator
	topK     int
	log      *slog.Logger
}

// New builds the service. chatModel is any eino chat model.
func New(embedder gateway.Embedder, searcher index.Searcher, chatModel generator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		embedder: embedder,
		searcher: searcher,
		model:    chatModel,
		topK:     index.DefaultTopK,
		log:      log,
	}
}

// Ask answers question, optionally considering a webp image supplied as raw
// base64 (no data-URL prefix). The returned links reference the retrieved
// documents in relevance order.
func (s *Service) Ask(ctx context.Context, question, imageB64 string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("qa: question is empty")
	}

	vec, err := s.embedder.Embed(ctx, gateway.Truncate(question))
	if err != nil {
		return nil, fmt.Errorf("qa: embed question: %w", err)
	}

	results, err := s.searcher.Search(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("qa: retrieve context: %w", err)
	}
	s.log.Debug("retrieved context", slog.Int("documents", len(results)))

	reply, err := s.model.Generate(ctx, s.buildMessages(question, imageB64, results))
	if err != nil {
		return nil, fmt.Errorf("qa: generate answer: %w", err)
	}

	links := make([]Link, 0, len(results))
	for _, r := range results {
		links = append(links, Link{URL: r.Doc.URL, Text: linkText(r.Doc.Title, r.Doc.Content)})
	}

	return &Answer{Answer: reply.Content, Links: links}, nil
}

// buildMessages assembles the system and user messages, attaching the image
// as a data URL when present.
func (s *Service) buildMessages(question, imageB64 string, results []index.Result) []*schema.Message {
	var ctxText strings.Builder
	for i, r := range results {
		fmt.Fprintf(&ctxText, "[%d] %s (%s)\n%s\n\n", i+1, r.Doc.Title, r.Doc.URL, r.Doc.Content)
	}
	if ctxText.Len() == 0 {
		ctxText.WriteString("(no relevant course content was found)\n")
	}

	prompt := fmt.Sprintf("Course content and forum excerpts:\n\n%sQuestion: %s", ctxText.String(), question)

	user := schema.UserMessage(prompt)
	if imageB64 != "" {
		user = &schema.Message{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: prompt},
				{
					Type: schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{
						URL: "data:image/webp;base64," + imageB64,
					},
				},
			},
		}
	}

	return []*schema.Message{schema.SystemMessage(systemPrompt), user}
}

// linkText labels a link with the document title, falling back to a content
// snippet for untitled documents.
func linkText(title, text string) string {
	if title != "" {
		return title
	}
	snippet := strings.Join(strings.Fields(text), " ")
	runes := []rune(snippet)
	if len(runes) > linkTextLimit {
		snippet = string(runes[:linkTextLimit])
	}
	return snippet
}
