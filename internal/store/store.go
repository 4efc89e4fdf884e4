// Package store persists the node's reference card data across restarts.
package store

import (
	"context"
	"errors"

	"github.com/vovakirdan/gamenode/internal/proto"
)

// ErrNotFound is returned when nothing has been stored yet.
var ErrNotFound = errors.New("not found")

// CardStore keeps the latest card data pushed by the lobby.
type CardStore interface {
	SaveCardData(ctx context.Context, data proto.CardData) error
	LoadCardData(ctx context.Context) (proto.CardData, error)
	Close() error
}
