package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// inboundPrefix is the first token of every subject the lobby sends to.
const inboundPrefix = "node"

// InboundSubject is the subject the lobby uses to reach node with topic.
func InboundSubject(node, topic string) string {
	return inboundPrefix + "." + node + "." + topic
}

// handleTimeout bounds how long one inbound message may wait for the hub.
const handleTimeout = 10 * time.Second

// Connect dials NATS. The node is announced on every (re)connect.
func (g *Gateway) Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("gamenode-"+g.opts.Node),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				g.log.Warn().Err(err).Msg("bus disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			g.log.Info().Str("url", nc.ConnectedUrl()).Msg("bus reconnected")
			g.Hello()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect bus: %w", err)
	}
	g.SetPublisher(nc)
	return nc, nil
}

// Subscribe listens for lobby requests addressed to this node.
func (g *Gateway) Subscribe(ctx context.Context, nc *nats.Conn) (*nats.Subscription, error) {
	subject := InboundSubject(g.opts.Node, "*")
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		topic := msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]

		hctx, cancel := context.WithTimeout(ctx, handleTimeout)
		defer cancel()

		reply, err := g.Handle(hctx, topic, msg.Data)
		if err != nil {
			g.log.Warn().Err(err).Str("topic", topic).Msg("handle bus message")
			return
		}
		if reply != nil && msg.Reply != "" {
			if err := msg.Respond(reply); err != nil {
				g.log.Warn().Err(err).Str("topic", topic).Msg("reply to bus message")
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	g.log.Info().Str("subject", subject).Msg("listening for lobby requests")
	return sub, nil
}
