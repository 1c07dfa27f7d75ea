// Package chat turns chat messages and button presses into replies. It is
// transport neutral: a gateway relays user input and renders the replies.
package chat

type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

type Document struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
	Caption     string `json:"caption,omitempty"`
}

type Reply struct {
	Text    string     `json:"text,omitempty"`
	Buttons [][]Button `json:"buttons,omitempty"`
	// Replace asks the gateway to edit the message whose button was pressed
	// instead of sending a new one.
	Replace  bool      `json:"replace,omitempty"`
	Document *Document `json:"document,omitempty"`
}

// Message is one inbound chat message.
type Message struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

func text(s string) Reply {
	return Reply{Text: s}
}

func edit(s string) Reply {
	return Reply{Text: s, Replace: true}
}
