package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"doc-qa-go/internal/model"
)

const (
	transcriptTTL      = 7 * 24 * time.Hour
	transcriptMaxTurns = 40
)

// ConversationRepository persists conversation transcripts.
type ConversationRepository interface {
	GetTranscript(ctx context.Context, conversationID string) ([]model.ChatMessage, error)
	AppendTurn(ctx context.Context, conversationID string, question, answer model.ChatMessage) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
}

// NewConversationRepository creates a Redis-backed ConversationRepository.
func NewConversationRepository(redisClient *redis.Client) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient}
}

func transcriptKey(conversationID string) string {
	return "conversation:" + conversationID
}

// GetTranscript returns the stored messages of a conversation, oldest first.
// An unknown conversation id yields an empty transcript.
func (r *redisConversationRepository) GetTranscript(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	jsonData, err := r.redisClient.Get(ctx, transcriptKey(conversationID)).Result()
	if err == redis.Nil {
		return []model.ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation transcript: %w", err)
	}

	var messages []model.ChatMessage
	if err := json.Unmarshal([]byte(jsonData), &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation transcript: %w", err)
	}
	return messages, nil
}

// AppendTurn appends a question/answer pair, keeping only the most recent
// turns and refreshing the transcript's TTL.
func (r *redisConversationRepository) AppendTurn(ctx context.Context, conversationID string, question, answer model.ChatMessage) error {
	messages, err := r.GetTranscript(ctx, conversationID)
	if err != nil {
		return err
	}

	messages = append(messages, question, answer)
	if len(messages) > transcriptMaxTurns {
		messages = messages[len(messages)-transcriptMaxTurns:]
	}

	jsonData, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation transcript: %w", err)
	}
	if err := r.redisClient.Set(ctx, transcriptKey(conversationID), jsonData, transcriptTTL).Err(); err != nil {
		return fmt.Errorf("failed to store conversation transcript: %w", err)
	}
	return nil
}
