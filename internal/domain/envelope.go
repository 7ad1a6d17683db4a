package domain

// Envelope is the frame pushed to clients over the websocket.
// Value is omitted entirely for bare frames such as ping.
type Envelope struct {
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

type clientsValue struct {
	Clients []Connection `json:"clients"`
}

type messageValue struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type messagesValue struct {
	Messages         []Message      `json:"messages"`
	LastEvaluatedKey map[string]any `json:"lastEvaluatedKey"`
}

type errorValue struct {
	Message string `json:"message"`
}

// ClientsPush lists every live client, used for roster replies and
// presence broadcasts.
func ClientsPush(clients []Connection) Envelope {
	if clients == nil {
		clients = []Connection{}
	}
	return Envelope{Type: "clients", Value: clientsValue{Clients: clients}}
}

// MessagePush delivers a single incoming direct message.
func MessagePush(sender, text string) Envelope {
	return Envelope{Type: "message", Value: messageValue{Sender: sender, Message: text}}
}

// MessagesPush carries one page of history, newest first, with the store's
// continuation cursor echoed as-is.
func MessagesPush(messages []Message, lastEvaluatedKey map[string]any) Envelope {
	if messages == nil {
		messages = []Message{}
	}
	return Envelope{Type: "messages", Value: messagesValue{
		Messages:         messages,
		LastEvaluatedKey: lastEvaluatedKey,
	}}
}

// ErrorPush reports a client-level failure back to the originating connection.
func ErrorPush(message string) Envelope {
	return Envelope{Type: "error", Value: errorValue{Message: message}}
}

// PingPush is the liveness probe sent to the current holder of a nickname.
func PingPush() Envelope {
	return Envelope{Type: "ping"}
}
