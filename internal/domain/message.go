package domain

// Message is a single direct message, immutable once written.
type Message struct {
	MessageID       string `dynamodbav:"messageId" json:"messageId"`
	ConversationKey string `dynamodbav:"nicknameToNickname" json:"-"`
	Sender          string `dynamodbav:"sender" json:"sender"`
	Text            string `dynamodbav:"message" json:"message"`
	CreatedAt       int64  `dynamodbav:"createdAt" json:"createdAt"`
}

// ConversationKey derives the shared history key for a pair of nicknames.
// The pair is sorted before joining, so both directions of a conversation
// map to the same key.
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "#" + b
}
