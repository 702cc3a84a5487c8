package service

import (
	"context"
	"time"

	"doc-qa-go/internal/model"
	"doc-qa-go/internal/rag"
	"doc-qa-go/internal/repository"
	"doc-qa-go/pkg/log"
)

// QueryService answers questions over the indexed documents.
type QueryService interface {
	Query(ctx context.Context, req model.QueryRequest) (*model.ChatResponse, error)
	GetTranscript(ctx context.Context, conversationID string) ([]model.ChatMessage, error)
}

type queryService struct {
	reformulator     *rag.QueryReformulator
	retriever        *rag.Retriever
	synthesizer      *rag.AnswerSynthesizer
	conversationRepo repository.ConversationRepository
}

// NewQueryService wires the query pipeline.
func NewQueryService(
	reformulator *rag.QueryReformulator,
	retriever *rag.Retriever,
	synthesizer *rag.AnswerSynthesizer,
	conversationRepo repository.ConversationRepository,
) QueryService {
	return &queryService{
		reformulator:     reformulator,
		retriever:        retriever,
		synthesizer:      synthesizer,
		conversationRepo: conversationRepo,
	}
}

// Query reformulates the question against the conversation history, retrieves
// context chunks (optionally scoped to one file) and synthesizes a grounded
// answer with citations. Failures of any stage propagate to the caller.
func (s *queryService) Query(ctx context.Context, req model.QueryRequest) (*model.ChatResponse, error) {
	history := model.HistoryExcludingLatest(req.Messages)

	standalone, err := s.reformulator.Reformulate(ctx, history, req.Query)
	if err != nil {
		return nil, err
	}
	if standalone != req.Query {
		log.Infof("reformulated query: %q -> %q", req.Query, standalone)
	}

	contextDocs, err := s.retriever.Retrieve(ctx, standalone, req.FileID)
	if err != nil {
		return nil, err
	}

	answer, err := s.synthesizer.Synthesize(ctx, standalone, history, contextDocs)
	if err != nil {
		return nil, err
	}

	sources := rag.ExtractSources(contextDocs)

	if req.ConversationID != "" {
		// Best effort, on a fresh context: a successfully generated answer is
		// worth persisting even if the request context is gone.
		s.persistTurn(req.ConversationID, req.Query, answer, sources)
	}

	return &model.ChatResponse{Answer: answer, Sources: sources}, nil
}

// GetTranscript returns the persisted transcript of a conversation.
func (s *queryService) GetTranscript(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	return s.conversationRepo.GetTranscript(ctx, conversationID)
}

func (s *queryService) persistTurn(conversationID, question, answer string, sources []model.Source) {
	now := time.Now().UTC().Format(time.RFC3339)
	err := s.conversationRepo.AppendTurn(context.Background(), conversationID,
		model.ChatMessage{Role: "user", Content: question, Timestamp: now},
		model.ChatMessage{Role: "assistant", Content: answer, Timestamp: now, Sources: sources},
	)
	if err != nil {
		log.Errorf("failed to persist conversation turn: %v", err)
	}
}
