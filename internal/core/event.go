package core

import "encoding/json"

// Event is a message pushed to one client. Data is already encoded.
type Event struct {
	Type string
	Data json.RawMessage
}
