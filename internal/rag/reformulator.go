// Package rag implements the query pipeline: history-aware reformulation,
// diversity-aware retrieval, grounded answer synthesis and citation
// extraction.
package rag

import (
	"context"
	"fmt"
	"strings"

	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/llm"
)

const contextualizePrompt = `Given a chat history and the latest user question ` +
	`which might reference context in the chat history, formulate a standalone question ` +
	`which can be understood without the chat history. Do NOT answer the question, ` +
	`just reformulate it if needed and otherwise return it as is.`

// QueryReformulator rewrites a context-dependent question into a standalone
// one using the conversation history. It never fails on ambiguous history;
// some standalone question is always returned.
type QueryReformulator struct {
	llmClient llm.Client
}

// NewQueryReformulator creates a reformulator on the given chat model.
func NewQueryReformulator(llmClient llm.Client) *QueryReformulator {
	return &QueryReformulator{llmClient: llmClient}
}

// Reformulate returns a self-contained version of the question. When the
// question does not depend on prior turns the model is instructed to return
// it as is.
func (r *QueryReformulator) Reformulate(ctx context.Context, history []model.ChatMessage, question string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: contextualizePrompt})
	messages = append(messages, toLLMMessages(history)...)
	messages = append(messages, llm.Message{Role: "user", Content: question})

	standalone, err := r.llmClient.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to reformulate question: %w", err)
	}
	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		return question, nil
	}
	return standalone, nil
}

// toLLMMessages converts stored chat turns into model messages, mapping any
// non-user role to "assistant".
func toLLMMessages(history []model.ChatMessage) []llm.Message {
	messages := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		role := "assistant"
		if turn.Role == "user" {
			role = "user"
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return messages
}
