package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"parley/internal/protocol"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// WSLink is a websocket connection to the chat server.
type WSLink struct {
	conn *websocket.Conn
}

func Dial(ctx context.Context, url string) (*WSLink, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return &WSLink{conn: conn}, nil
}

// Send writes one request frame. It must not be called concurrently.
func (l *WSLink) Send(msg protocol.OutgoingMessage) error {
	frame, err := protocol.EncodeOutgoing(msg)
	if err != nil {
		return err
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return l.conn.WriteMessage(websocket.TextMessage, frame)
}

// Receive reads frames until the connection fails and hands each decoded
// frame to deliver. Malformed frames are logged and skipped.
func (l *WSLink) Receive(deliver func(protocol.IncomingMessage)) error {
	for {
		messageType, frame, err := l.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return io.EOF
			}
			return err
		}
		if messageType != websocket.TextMessage {
			continue
		}

		msg, err := protocol.DecodeIncoming(frame)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		deliver(msg)
	}
}

// Close sends a close frame and tears the connection down.
func (l *WSLink) Close() error {
	_ = l.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return l.conn.Close()
}

// ReadInput feeds lines from r into the machine until r is exhausted.
func (m *Machine) ReadInput(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m.Input(scanner.Text())
	}
	m.InputClosed()
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Attach pumps frames from link into the machine and reports the
// disconnect when the link fails.
func (m *Machine) Attach(link *WSLink) {
	err := link.Receive(m.Deliver)
	m.Disconnected(err)
}
