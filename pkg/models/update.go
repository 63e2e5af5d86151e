package models

// Update is one inbound update from the Telegram long-poll API.
// Updates arrive in strictly increasing ID order.
type Update struct {
	ID      int
	Message *InboundMessage
}

// InboundMessage is the subset of a Telegram message the bot acts on
type InboundMessage struct {
	ChatID int64
	Text   string
	Reply  *Reply // nil when the message is not a reply
}

// Reply is the message an inbound message replied to
type Reply struct {
	Text string
}
