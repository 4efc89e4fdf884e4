package engine

import (
	"fmt"
	"time"
)

// Message is one entry of a game's message log.
type Message struct {
	Date time.Time `json:"date"`
	Text string    `json:"text"`
}

// Log is an append-only game message log engines can embed.
type Log struct {
	messages []Message
	now      func() time.Time
}

// NewLog returns an empty log stamped with the wall clock.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// AddMessage formats and appends a message.
func (l *Log) AddMessage(format string, args ...any) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	l.messages = append(l.messages, Message{Date: l.now(), Text: text})
}

// Messages returns a copy of the log.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}
