package model

// Message is a single direct message between two users. Messages are never
// edited or deleted. Participants holds {sender, receiver} so the store can
// answer "all messages involving user X" with one membership filter.
type Message struct {
	ID           string   `json:"id"`
	SenderID     string   `json:"senderId"`
	ReceiverID   string   `json:"receiverId"`
	Text         string   `json:"text"`
	Timestamp    int64    `json:"timestamp"`
	Read         bool     `json:"read"`
	Participants []string `json:"participants"`
}
