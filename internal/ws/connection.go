package ws

import (
	"context"
	"errors"
	"sync"

	"parley/internal/protocol"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type wsConnection interface {
	Close() error
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
}

type messageHub interface {
	Handle(s *Session, msg protocol.OutgoingMessage)
	Leave(s *Session)
}

type Connection struct {
	ws         wsConnection
	hub        messageHub
	session    *Session
	fromClient chan protocol.OutgoingMessage
	errorCh    chan error
}

func NewConnection(
	hub messageHub,
	ws wsConnection,
	session *Session,
) *Connection {
	return &Connection{
		ws:         ws,
		hub:        hub,
		session:    session,
		fromClient: make(chan protocol.OutgoingMessage),
		errorCh:    make(chan error, 2),
	}
}

func (c *Connection) Session() *Session {
	return c.session
}

// Handle serves the connection until the peer goes away or ctx is cancelled.
func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(c.fromClient)
		close(c.errorCh)
		c.hub.Leave(c.session)
		c.session.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errorCh <- c.pumpMessages(ctx)
		cancel()
	})

	wg.Go(func() {
		c.errorCh <- c.mainLoop(ctx)
		cancel()
	})

	var err error
	select {
	case err = <-c.errorCh:
	case <-ctx.Done():
	}
	c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (c *Connection) pumpMessages(ctx context.Context) error {
	for {
		messageType, frame, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if messageType != websocket.TextMessage {
			log.Warn().Str("session", c.session.ID).Int("frameType", messageType).Msg("dropping non-text frame")
			continue
		}

		msg, err := protocol.DecodeOutgoing(frame)
		if err != nil {
			log.Warn().Str("session", c.session.ID).Err(err).Msg("dropping malformed frame")
			continue
		}

		select {
		case c.fromClient <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Connection) mainLoop(ctx context.Context) error {
	for {
		select {
		case msg := <-c.fromClient:
			c.hub.Handle(c.session, msg)
		case msg := <-c.session.Outbound():
			frame, err := protocol.EncodeIncoming(msg)
			if err != nil {
				log.Error().Str("session", c.session.ID).Err(err).Msg("failed to encode frame")
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
