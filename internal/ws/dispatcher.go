package ws

import (
	"cmp"
	"errors"
	"slices"

	"parley/internal/models"
	"parley/internal/protocol"

	"github.com/rs/zerolog/log"
)

const (
	reasonSessionRequired = "session required"
	reasonInternal        = "internal error"
)

// Directory is the set of registered usernames.
type Directory interface {
	GetUser(username string) (models.User, error)
	AddUser(username string) (models.User, error)
}

// History is the append-only store of direct messages.
type History interface {
	AddMessage(from, to, text string) (models.ChatMessage, error)
	ListMessages(from, to string) ([]models.ChatMessage, error)
}

// Dispatcher reacts to client requests. Each connection calls Handle
// sequentially, so replies on one connection follow request order.
type Dispatcher struct {
	directory Directory
	history   History
	registry  *Registry
}

func NewDispatcher(directory Directory, history History, registry *Registry) *Dispatcher {
	return &Dispatcher{
		directory: directory,
		history:   history,
		registry:  registry,
	}
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

func (d *Dispatcher) Handle(s *Session, msg protocol.OutgoingMessage) {
	log.Debug().
		Str("session", s.ID).
		Str("username", s.Username()).
		Str("type", msg.Type.String()).
		Msg("dispatching request")

	switch msg.Type {
	case protocol.OutLogin:
		d.handleLogin(s, msg)
	case protocol.OutCreateAccount:
		d.handleCreateAccount(s, msg)
	case protocol.OutMessage:
		d.handleMessage(s, msg)
	case protocol.OutFetchChat:
		d.handleFetchChat(s, msg)
	default:
		log.Warn().Str("session", s.ID).Str("type", string(msg.Type)).Msg("dropping request of unknown type")
	}
}

// Leave drops the session's binding when its connection closes.
func (d *Dispatcher) Leave(s *Session) {
	d.registry.Unregister(s)
	if name := s.Username(); name != "" {
		log.Info().Str("session", s.ID).Str("username", name).Msg("user went offline")
	}
}

func (d *Dispatcher) handleLogin(s *Session, msg protocol.OutgoingMessage) {
	_, err := d.directory.GetUser(msg.Username)
	if errors.Is(err, models.ErrNotFound) {
		s.Send(protocol.Control(protocol.InInvalidUsername, msg.ID))
		return
	}
	if err != nil {
		d.fail(s, msg, err)
		return
	}

	d.bind(s, msg.Username)
	s.Send(protocol.Control(protocol.InSuccessfulLogin, msg.ID))
}

func (d *Dispatcher) handleCreateAccount(s *Session, msg protocol.OutgoingMessage) {
	if msg.Username == "" {
		s.Send(protocol.Control(protocol.InInvalidUsername, msg.ID))
		return
	}

	_, err := d.directory.GetUser(msg.Username)
	switch {
	case err == nil:
		s.Send(protocol.Control(protocol.InDuplicateUsername, msg.ID))
		return
	case !errors.Is(err, models.ErrNotFound):
		d.fail(s, msg, err)
		return
	}

	if _, err := d.directory.AddUser(msg.Username); err != nil {
		if errors.Is(err, models.ErrUserExists) {
			// Lost a race with a concurrent create for the same name.
			s.Send(protocol.Control(protocol.InDuplicateUsername, msg.ID))
			return
		}
		d.fail(s, msg, err)
		return
	}

	log.Info().Str("username", msg.Username).Msg("account created")
	d.bind(s, msg.Username)
	s.Send(protocol.Control(protocol.InSuccessfulCreateAccount, msg.ID))
}

func (d *Dispatcher) handleMessage(s *Session, msg protocol.OutgoingMessage) {
	from := s.Username()
	if from == "" {
		d.reject(s, msg, models.ErrSessionRequired)
		return
	}

	if _, err := d.directory.GetUser(msg.To); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.Send(protocol.Control(protocol.InInvalidUsername, msg.ID))
			return
		}
		d.fail(s, msg, err)
		return
	}

	if _, err := d.history.AddMessage(from, msg.To, msg.Message); err != nil {
		d.fail(s, msg, err)
		return
	}

	if recipient, online := d.registry.Lookup(msg.To); online {
		recipient.Send(protocol.Live(from, msg.Message))
	}
}

func (d *Dispatcher) handleFetchChat(s *Session, msg protocol.OutgoingMessage) {
	requester := s.Username()
	if requester == "" {
		d.reject(s, msg, models.ErrSessionRequired)
		return
	}

	target := msg.Username
	if _, err := d.directory.GetUser(target); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.Send(protocol.Control(protocol.InInvalidUsername, msg.ID))
			return
		}
		d.fail(s, msg, err)
		return
	}

	sent, err := d.history.ListMessages(requester, target)
	if err != nil {
		d.fail(s, msg, err)
		return
	}
	var received []models.ChatMessage
	// A conversation with oneself would otherwise be listed twice.
	if target != requester {
		received, err = d.history.ListMessages(target, requester)
		if err != nil {
			d.fail(s, msg, err)
			return
		}
	}

	s.Send(protocol.History(msg.ID, MergeHistory(sent, received)))
}

func (d *Dispatcher) bind(s *Session, username string) {
	if displaced := d.registry.Register(username, s); displaced != nil {
		log.Warn().
			Str("username", username).
			Str("session", s.ID).
			Str("displaced", displaced.ID).
			Msg("login replaced an existing session")
	}
}

func (d *Dispatcher) reject(s *Session, msg protocol.OutgoingMessage, err error) {
	log.Warn().Str("session", s.ID).Str("type", msg.Type.String()).Err(err).Msg("request rejected")
	s.Send(protocol.Error(msg.ID, reasonSessionRequired))
}

func (d *Dispatcher) fail(s *Session, msg protocol.OutgoingMessage, err error) {
	log.Error().Str("session", s.ID).Str("type", msg.Type.String()).Err(err).Msg("store operation failed")
	s.Send(protocol.Error(msg.ID, reasonInternal))
}

// MergeHistory combines both directions of a conversation in timestamp order.
// Ties keep the requester's own messages first, then insertion order.
func MergeHistory(sent, received []models.ChatMessage) []models.HistoryEntry {
	all := make([]models.ChatMessage, 0, len(sent)+len(received))
	all = append(all, sent...)
	all = append(all, received...)
	slices.SortStableFunc(all, func(a, b models.ChatMessage) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	entries := make([]models.HistoryEntry, len(all))
	for i, m := range all {
		entries[i] = models.HistoryEntry{From: m.From, To: m.To, Payload: m.Message}
	}
	return entries
}
