package rag

import (
	"context"
	"fmt"
	"strings"

	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/llm"
)

const qaPrompt = `You are an assistant for question-answering tasks. ` +
	`Use the following pieces of retrieved context to answer the question. ` +
	`If you don't know the answer, just say that you don't know. ` +
	`Use three sentences maximum and keep the answer concise.`

// AnswerSynthesizer combines retrieved chunks into a grounded, length-bounded
// answer.
type AnswerSynthesizer struct {
	llmClient llm.Client
}

// NewAnswerSynthesizer creates a synthesizer on the given chat model.
func NewAnswerSynthesizer(llmClient llm.Client) *AnswerSynthesizer {
	return &AnswerSynthesizer{llmClient: llmClient}
}

// Synthesize answers the question strictly from the retrieved context.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, history []model.ChatMessage, contextDocs []model.Document) (string, error) {
	var grounding strings.Builder
	for i, doc := range contextDocs {
		if i > 0 {
			grounding.WriteString("\n\n")
		}
		grounding.WriteString(doc.Text)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: qaPrompt + "\n\n" + grounding.String()})
	messages = append(messages, toLLMMessages(history)...)
	messages = append(messages, llm.Message{Role: "user", Content: question})

	answer, err := s.llmClient.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
