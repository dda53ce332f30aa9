// Package client implements the console chat client: a single-threaded state
// machine fed by user input, server frames and request timeouts.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"parley/internal/protocol"

	"github.com/rs/zerolog/log"
)

const QuitCommand = `\quit`

var (
	ErrRequestTimeout = errors.New("request timed out")
	ErrConnectionLost = errors.New("connection lost")
)

type State int

const (
	StateStartup State = iota
	StateLogin
	StateCreateAccount
	StateSelectChat
	StateInChat
)

func (s State) String() string {
	switch s {
	case StateStartup:
		return "STARTUP"
	case StateLogin:
		return "LOGIN"
	case StateCreateAccount:
		return "CREATE_ACCOUNT"
	case StateSelectChat:
		return "SELECT_CHAT"
	case StateInChat:
		return "IN_CHAT"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Link carries requests to the server.
type Link interface {
	Send(msg protocol.OutgoingMessage) error
}

// afterFunc schedules f once after d and returns a function that cancels it.
type afterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type eventKind int

const (
	eventInput eventKind = iota
	eventInputClosed
	eventFrame
	eventDisconnected
)

type event struct {
	kind eventKind
	line string
	msg  protocol.IncomingMessage
	err  error
}

// Machine drives one user through startup, authentication, contact selection
// and chatting. All state is owned by the goroutine running Run.
type Machine struct {
	link    Link
	out     io.Writer
	timeout time.Duration
	after   afterFunc

	events chan event
	done   chan struct{}

	state     State
	username  string
	pending   string
	contact   string
	awaiting  bool
	requestID uint64
	stopTimer func() bool
}

func New(link Link, out io.Writer, timeout time.Duration) *Machine {
	return &Machine{
		link:    link,
		out:     out,
		timeout: timeout,
		after:   realAfterFunc,
		events:  make(chan event, 64),
		done:    make(chan struct{}),
		state:   StateStartup,
	}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Username() string {
	return m.username
}

func (m *Machine) Contact() string {
	return m.contact
}

// Input queues a line typed by the user.
func (m *Machine) Input(line string) {
	m.post(event{kind: eventInput, line: line})
}

// InputClosed reports the end of user input.
func (m *Machine) InputClosed() {
	m.post(event{kind: eventInputClosed})
}

// Deliver queues a frame received from the server.
func (m *Machine) Deliver(msg protocol.IncomingMessage) {
	m.post(event{kind: eventFrame, msg: msg})
}

// Disconnected reports that the link to the server is gone.
func (m *Machine) Disconnected(err error) {
	m.post(event{kind: eventDisconnected, err: err})
}

func (m *Machine) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// Run prints the startup prompt and processes events one at a time until
// input ends, the connection drops or ctx is cancelled.
func (m *Machine) Run(ctx context.Context) error {
	defer close(m.done)
	defer m.disarm()

	m.promptStartup()
	for {
		select {
		case ev := <-m.events:
			if err := m.process(ev); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Machine) process(ev event) error {
	switch ev.kind {
	case eventInput:
		return m.HandleInput(ev.line)
	case eventFrame:
		m.HandleMessage(ev.msg)
		return nil
	case eventInputClosed:
		return io.EOF
	case eventDisconnected:
		if ev.err != nil {
			return fmt.Errorf("%w: %v", ErrConnectionLost, ev.err)
		}
		return ErrConnectionLost
	default:
		return nil
	}
}

// HandleInput reacts to one line of user input.
func (m *Machine) HandleInput(line string) error {
	switch m.state {
	case StateStartup:
		switch line {
		case "1":
			m.promptLogin()
		case "2":
			m.promptCreateAccount()
		default:
			m.promptStartup()
		}
		return nil

	case StateLogin, StateCreateAccount, StateSelectChat:
		if m.awaiting {
			log.Debug().Str("state", m.state.String()).Msg("ignoring input while awaiting reply")
			return nil
		}
		switch m.state {
		case StateLogin:
			m.pending = line
			return m.request(protocol.Login(line))
		case StateCreateAccount:
			m.pending = line
			return m.request(protocol.CreateAccount(line))
		default:
			m.contact = line
			return m.request(protocol.FetchChat(line))
		}

	case StateInChat:
		if line == QuitCommand {
			m.promptSelectChat()
			return nil
		}
		m.requestID++
		msg := protocol.Message(m.contact, line)
		msg.ID = m.requestID
		return m.send(msg)
	}
	return nil
}

// HandleMessage reacts to a server frame or a synthesized timeout.
func (m *Machine) HandleMessage(msg protocol.IncomingMessage) {
	switch {
	case msg.Type == protocol.InTimeout:
		if !m.awaiting || msg.ID != m.requestID {
			return
		}
		m.disarm()
	case msg.Type.IsReply():
		if m.awaiting {
			if msg.ID != 0 && msg.ID != m.requestID {
				log.Debug().Uint64("id", msg.ID).Uint64("inFlight", m.requestID).Msg("dropping stale reply")
				return
			}
			m.disarm()
		} else if m.state != StateInChat {
			log.Debug().Str("type", msg.Type.String()).Msg("dropping unsolicited reply")
			return
		}
	}

	switch msg.Type {
	case protocol.InMessage:
		if m.state == StateInChat && msg.From == m.contact {
			m.println(msg.From + " : " + msg.Message)
		}

	case protocol.InSuccessfulLogin:
		if m.state == StateLogin {
			m.username = m.pending
			m.println("Login successful.")
			m.promptSelectChat()
		}

	case protocol.InSuccessfulCreateAccount:
		if m.state == StateCreateAccount {
			m.username = m.pending
			m.println("Account successfully created.")
			m.promptSelectChat()
		}

	case protocol.InInvalidUsername:
		switch m.state {
		case StateCreateAccount:
			m.println("This username is not valid, please select another username.")
			m.promptCreateAccount()
		case StateLogin:
			m.println("This username is not valid; please check spelling and try again.")
			m.promptLogin()
		case StateSelectChat:
			m.println("There is no such user; please check spelling and try again.")
			m.promptSelectChat()
		case StateInChat:
			m.println("There is no such user; type '" + QuitCommand + "' to pick another contact.")
		}

	case protocol.InDuplicateUsername:
		if m.state == StateCreateAccount {
			m.println("This username has already been taken, please choose another username.")
			m.promptCreateAccount()
		}

	case protocol.InChatHistory:
		if m.state == StateSelectChat {
			m.println("Type your message, or type '" + QuitCommand + "' to go to select chat screen")
			for _, entry := range msg.Messages {
				if entry.From == m.username {
					m.println("you : " + entry.Payload)
				} else {
					m.println(entry.From + " : " + entry.Payload)
				}
			}
			m.state = StateInChat
		}

	case protocol.InTimeout:
		log.Debug().Err(ErrRequestTimeout).Uint64("id", msg.ID).Msg("no reply from server")
		m.retry("Server timed out, please try again.")

	case protocol.InError:
		if m.state == StateInChat {
			m.println("Server error: " + msg.Payload)
			return
		}
		m.retry(fmt.Sprintf("Server error (%s), please try again.", msg.Payload))
	}
}

// retry re-prompts the state whose request failed.
func (m *Machine) retry(notice string) {
	switch m.state {
	case StateLogin:
		m.println(notice)
		m.promptLogin()
	case StateCreateAccount:
		m.println(notice)
		m.promptCreateAccount()
	case StateSelectChat:
		m.println(notice)
		m.promptSelectChat()
	}
}

// request sends a message that expects exactly one reply. The timer is armed
// before the frame leaves so no reply can beat it.
func (m *Machine) request(msg protocol.OutgoingMessage) error {
	m.disarm()
	m.requestID++
	msg.ID = m.requestID
	m.awaiting = true

	id := m.requestID
	m.stopTimer = m.after(m.timeout, func() {
		m.post(event{kind: eventFrame, msg: protocol.Control(protocol.InTimeout, id)})
	})

	return m.send(msg)
}

func (m *Machine) send(msg protocol.OutgoingMessage) error {
	if err := m.link.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return nil
}

func (m *Machine) disarm() {
	m.awaiting = false
	if m.stopTimer != nil {
		m.stopTimer()
		m.stopTimer = nil
	}
}

func (m *Machine) promptStartup() {
	m.state = StateStartup
	m.println("Type 1 for login, 2 for creating a new account")
}

func (m *Machine) promptLogin() {
	m.state = StateLogin
	m.println("Please enter your username")
}

func (m *Machine) promptCreateAccount() {
	m.state = StateCreateAccount
	m.println("Please enter the username you want")
}

func (m *Machine) promptSelectChat() {
	m.state = StateSelectChat
	m.println("Please enter the user you would like to chat with")
}

func (m *Machine) println(line string) {
	if _, err := fmt.Fprintln(m.out, line); err != nil {
		log.Warn().Err(err).Msg("failed to write to console")
	}
}
