package session

// Sender identifies who wrote a tutor message.
type Sender int

const (
	SenderUser Sender = iota
	SenderBot
)

// Message is one line of the tutor dialogue.
type Message struct {
	Sender Sender
	Text   string
}

// Dialogue is the append-only tutor exchange for the open lesson.
type Dialogue struct {
	messages []Message
}

func (d *Dialogue) append(s Sender, text string) {
	d.messages = append(d.messages, Message{Sender: s, Text: text})
}

func (d *Dialogue) reset() { d.messages = nil }

// Messages returns a copy of the exchange in order.
func (d *Dialogue) Messages() []Message {
	return append([]Message(nil), d.messages...)
}

func (d *Dialogue) Len() int { return len(d.messages) }
