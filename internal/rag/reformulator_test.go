package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/llm"
)

type stubLLM struct {
	completeFn func(ctx context.Context, messages []llm.Message) (string, error)
}

func (s *stubLLM) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return s.completeFn(ctx, messages)
}

func (s *stubLLM) DescribeImageOrTable(ctx context.Context, region string) (string, error) {
	return "", errors.New("not implemented")
}

func TestReformulateSendsHistoryAndQuestion(t *testing.T) {
	var got []llm.Message
	stub := &stubLLM{completeFn: func(ctx context.Context, messages []llm.Message) (string, error) {
		got = messages
		return "What is the revenue of Acme in 2023?", nil
	}}
	r := NewQueryReformulator(stub)

	history := []model.ChatMessage{
		{Role: "user", Content: "Tell me about Acme."},
		{Role: "assistant", Content: "Acme is a manufacturer."},
	}

	standalone, err := r.Reformulate(context.Background(), history, "What was their revenue in 2023?")
	require.NoError(t, err)
	assert.Equal(t, "What is the revenue of Acme in 2023?", standalone)

	require.Len(t, got, 4)
	assert.Equal(t, "system", got[0].Role)
	assert.Contains(t, got[0].Content, "standalone question")
	assert.Equal(t, "user", got[1].Role)
	assert.Equal(t, "assistant", got[2].Role)
	assert.Equal(t, "user", got[3].Role)
	assert.Equal(t, "What was their revenue in 2023?", got[3].Content)
}

func TestReformulateEmptyHistoryStillWorks(t *testing.T) {
	stub := &stubLLM{completeFn: func(ctx context.Context, messages []llm.Message) (string, error) {
		require.Len(t, messages, 2)
		// Nothing to resolve against, the model echoes the question.
		return messages[1].Content, nil
	}}
	r := NewQueryReformulator(stub)

	standalone, err := r.Reformulate(context.Background(), nil, "What is a vector index?")
	require.NoError(t, err)
	assert.Equal(t, "What is a vector index?", standalone)
}

func TestReformulateBlankOutputFallsBackToQuestion(t *testing.T) {
	stub := &stubLLM{completeFn: func(ctx context.Context, messages []llm.Message) (string, error) {
		return "  \n ", nil
	}}
	r := NewQueryReformulator(stub)

	standalone, err := r.Reformulate(context.Background(), nil, "original question")
	require.NoError(t, err)
	assert.Equal(t, "original question", standalone)
}

func TestReformulateMapsUnknownRolesToAssistant(t *testing.T) {
	var got []llm.Message
	stub := &stubLLM{completeFn: func(ctx context.Context, messages []llm.Message) (string, error) {
		got = messages
		return "q", nil
	}}
	r := NewQueryReformulator(stub)

	history := []model.ChatMessage{{Role: "ai", Content: "earlier answer"}}
	_, err := r.Reformulate(context.Background(), history, "q")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "assistant", got[1].Role)
}

func TestReformulateSurfacesModelErrors(t *testing.T) {
	stub := &stubLLM{completeFn: func(ctx context.Context, messages []llm.Message) (string, error) {
		return "", errors.New("model down")
	}}
	r := NewQueryReformulator(stub)

	_, err := r.Reformulate(context.Background(), nil, "q")
	require.Error(t, err)
}
