package core

import (
	"encoding/json"
	"sync"
)

const clientBuffer = 16

// Client is one transport connection as seen by the core layer.
// It implements session.Conn.
type Client struct {
	id string
	// Username is the verified identity, empty when the handshake failed.
	Username string
	Events   chan *Event

	done chan struct{}
	once sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id, username string) *Client {
	return &Client{
		id:       id,
		Username: username,
		Events:   make(chan *Event, clientBuffer),
		done:     make(chan struct{}),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Push queues an event without blocking. It reports false if the client is
// closed or its buffer is full.
func (c *Client) Push(msgType string, data json.RawMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Events <- &Event{Type: msgType, Data: data}:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// Close asks the transport to end the connection. Safe to call repeatedly.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed once the server has closed the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
