package pipeline

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/pkg/logger"
	"context"
	"fmt"
	"strings"
)

// QAPipeline is responsible for generating an answer based on a query and retrieved chunks.
type QAPipeline struct {
	llm interfaces.StreamingLLM
	log *logger.Logger
}

// NewQAPipeline creates a new QAPipeline.
func NewQAPipeline(llm interfaces.StreamingLLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		llm: llm,
		log: log,
	}
}

// Run builds a prompt from the matches and calls the LLM to generate the full answer.
func (p *QAPipeline) Run(ctx context.Context, query string, matches []*schema.Match) (string, error) {
	prompt := buildPrompt(query, matches)

	p.log.Info(fmt.Sprintf("Sending prompt to LLM (%d chunks, %d characters)...", len(matches), len(prompt)))
	answer, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		p.log.Error(fmt.Sprintf("LLM failed to generate answer: %v", err))
		return "", err
	}

	p.log.Info("Successfully generated answer from LLM.")
	return answer, nil
}

// RunStream is like Run but hands each generated fragment to fn as it arrives.
func (p *QAPipeline) RunStream(ctx context.Context, query string, matches []*schema.Match, fn func(token string) error) error {
	prompt := buildPrompt(query, matches)

	p.log.Info(fmt.Sprintf("Streaming prompt to LLM (%d chunks, %d characters)...", len(matches), len(prompt)))
	if err := p.llm.GenerateStream(ctx, prompt, fn); err != nil {
		p.log.Error(fmt.Sprintf("LLM stream failed: %v", err))
		return err
	}
	return nil
}

// buildPrompt joins the chunk texts in ranking order and wraps them with the question.
func buildPrompt(query string, matches []*schema.Match) string {
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Record.Text)
	}

	var sb strings.Builder
	sb.WriteString("You are an AI assistant tasked with answering questions based on the provided context.\n\n")
	sb.WriteString("Context:\n---\n")
	sb.WriteString(strings.Join(texts, "\n\n"))
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("Question: %s\n\nAnswer:\n", query))
	return sb.String()
}
