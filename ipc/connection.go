package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
)

// Handler processes a received envelope. Return nil to send no reply.
type Handler func(ctx context.Context, env Envelope) (*Envelope, error)

// Connection represents a single bridge talking to the agent. Each game
// player gets its own connection, identified after the hello handshake.
type Connection struct {
	conn     net.Conn
	handlers map[string]Handler
	log      *slog.Logger
}

func NewConnection(conn net.Conn, handlers map[string]Handler, log *slog.Logger) *Connection {
	if handlers == nil {
		handlers = make(map[string]Handler)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Connection{
		conn:     conn,
		handlers: handlers,
		log:      log,
	}
}

func (c *Connection) RegisterHandler(msgType string, handler Handler) {
	c.handlers[msgType] = handler
}

func (c *Connection) Send(msgType string, data any) error {
	env, err := NewEnvelope(msgType, data)
	if err != nil {
		return err
	}
	return WriteEnvelope(c.conn, env)
}

// ReadLoop blocks until the connection closes, errors or ctx is done. It owns
// the conn lifetime so callers don't need to track cleanup.
func (c *Connection) ReadLoop(ctx context.Context) {
	defer c.conn.Close()
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	for {
		env, err := ReadEnvelope(c.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				c.log.Info("connection closed")
			} else {
				c.log.Info("connection read ended", "error", err)
			}
			return
		}

		handler, ok := c.handlers[env.Type]
		if !ok {
			c.log.Warn("no handler for message type", "type", env.Type)
			continue
		}

		resp, err := handler(ctx, env)
		if err != nil {
			c.log.Error("handler error", "type", env.Type, "error", err)
			continue
		}

		if resp != nil {
			if err := WriteEnvelope(c.conn, *resp); err != nil {
				c.log.Error("failed to send response", "type", resp.Type, "error", err)
				return
			}
			c.log.Debug("sent response", "type", resp.Type)
		}
	}
}
