package queue

import "encoding/json"

// Message kinds published for out-of-band reconciliation.
const (
	KindOrphanedObject = "orphaned_object"
	KindDanglingRecord = "dangling_record"
)

// Message describes a detected cross-store inconsistency for a downstream cleaner.
type Message struct {
	Kind       string `json:"kind"`
	ImageID    int64  `json:"imageId,omitempty"`
	ObjectKey  string `json:"objectKey"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	DetectedAt string `json:"detectedAt"`
	Version    int    `json:"version"`
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
