package queue

import "encoding/json"

// MessageVersion is the current event schema version.
const MessageVersion = 1

// Message announces an ingestion status change to downstream consumers.
type Message struct {
	IngestionID string `json:"ingestionId"`
	Status      string `json:"status"`
	RequestID   string `json:"requestId,omitempty"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
