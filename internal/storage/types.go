package storage

import (
	"encoding"
	"encoding/binary"

	"github.com/vmihailenco/msgpack/v5"
)

// Storeable is a msgpack record addressed by its own key.
type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type DBUser struct {
	UserName  string `msgpack:"userName"`
	CreatedAt int64  `msgpack:"createdAt"`
}

func (u *DBUser) Key() []byte {
	return []byte(u.UserName)
}

func (u *DBUser) MarshalBinary() (data []byte, err error) {
	type alias DBUser
	return msgpack.Marshal((*alias)(u))
}

func (u *DBUser) UnmarshalBinary(data []byte) error {
	type alias DBUser
	return msgpack.Unmarshal(data, (*alias)(u))
}

type DBChatMessage struct {
	Seq       uint64 `msgpack:"seq"`
	From      string `msgpack:"from"`
	To        string `msgpack:"to"`
	Message   string `msgpack:"message"`
	Timestamp int64  `msgpack:"timestamp"`
}

// Key orders messages by insertion within a conversation bucket.
func (m *DBChatMessage) Key() []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, m.Seq)
	return key
}

func (m *DBChatMessage) MarshalBinary() (data []byte, err error) {
	type alias DBChatMessage
	return msgpack.Marshal((*alias)(m))
}

func (m *DBChatMessage) UnmarshalBinary(data []byte) error {
	type alias DBChatMessage
	return msgpack.Unmarshal(data, (*alias)(m))
}

// conversationKey names the nested bucket holding messages sent from one user to another.
// The sender is length-prefixed so no pair of names can collide with another.
func conversationKey(from, to string) []byte {
	key := make([]byte, 0, binary.MaxVarintLen64+len(from)+len(to))
	key = binary.AppendUvarint(key, uint64(len(from)))
	key = append(key, from...)
	key = append(key, to...)
	return key
}
