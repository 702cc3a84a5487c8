package model

// ChatMessage is a single turn in a conversation. Role is "user" or
// "assistant". The most recent message of a query request is always the
// active question and is excluded when building history for reformulation.
type ChatMessage struct {
	ID        string   `json:"id,omitempty"`
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp,omitempty"`
	Sources   []Source `json:"sources,omitempty"`
}

// HistoryExcludingLatest returns every message but the last. The result is the
// role-tagged history handed to the query reformulator.
func HistoryExcludingLatest(messages []ChatMessage) []ChatMessage {
	if len(messages) == 0 {
		return nil
	}
	return messages[:len(messages)-1]
}
