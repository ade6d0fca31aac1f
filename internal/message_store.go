package internal

import (
	"sync"
)

// MessageStore holds the ordered message list. Messages are stored by value
// and only ever replaced whole, so readers never observe a half-applied
// update.
type MessageStore struct {
	mu       sync.RWMutex
	order    []string
	messages map[string]Message
}

// NewMessageStore creates a new MessageStore
func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[string]Message),
	}
}

// Get retrieves a copy of a message by ID
func (s *MessageStore) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return Message{}, false
	}
	return msg.Clone(), true
}

// Has reports whether a message with the given ID exists
func (s *MessageStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.messages[id]
	return ok
}

// Append adds messages to the end of the list. Messages whose ID already
// exists are skipped.
func (s *MessageStore) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range msgs {
		if _, ok := s.messages[msg.ID]; ok {
			continue
		}
		s.messages[msg.ID] = msg.Clone()
		s.order = append(s.order, msg.ID)
	}
}

// Insert places messages at index, shifting later messages back. The index
// is clamped to the list bounds. It returns the number of messages inserted.
func (s *MessageStore) Insert(index int, msgs ...Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 {
		index = 0
	}
	if index > len(s.order) {
		index = len(s.order)
	}

	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if _, ok := s.messages[msg.ID]; ok {
			continue
		}
		s.messages[msg.ID] = msg.Clone()
		ids = append(ids, msg.ID)
	}

	order := make([]string, 0, len(s.order)+len(ids))
	order = append(order, s.order[:index]...)
	order = append(order, ids...)
	order = append(order, s.order[index:]...)
	s.order = order
	return len(ids)
}

// Update reads the current message, applies fn to a private copy and
// replaces the stored value with the result. It returns false if the
// message does not exist.
func (s *MessageStore) Update(id string, fn func(Message) Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return false
	}
	next := fn(msg.Clone())
	next.ID = id
	s.messages[id] = next
	return true
}

// IndexOf returns the position of a message, or -1
func (s *MessageStore) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, mid := range s.order {
		if mid == id {
			return i
		}
	}
	return -1
}

// Next returns the message that follows id in the list
func (s *MessageStore) Next(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, mid := range s.order {
		if mid == id && i+1 < len(s.order) {
			return s.messages[s.order[i+1]].Clone(), true
		}
	}
	return Message{}, false
}

// Streaming returns the last assistant message that is still streaming
func (s *MessageStore) Streaming() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		msg := s.messages[s.order[i]]
		if msg.Role == RoleAssistant && msg.IsStreaming {
			return msg.Clone(), true
		}
	}
	return Message{}, false
}

// HistoryPrefixLen returns how many messages at the head of the list came
// from replay
func (s *MessageStore) HistoryPrefixLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, id := range s.order {
		if !s.messages[id].IsHistory {
			break
		}
		n++
	}
	return n
}

// DropHistory removes every message that came from replay and returns how
// many were removed
func (s *MessageStore) DropHistory() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	dropped := 0
	for _, id := range s.order {
		if s.messages[id].IsHistory {
			delete(s.messages, id)
			dropped++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return dropped
}

// Len returns the number of messages in the store
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List returns copies of all messages in order
func (s *MessageStore) List() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, 0, len(s.order))
	for _, id := range s.order {
		msgs = append(msgs, s.messages[id].Clone())
	}
	return msgs
}

// Reset drops all messages
func (s *MessageStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.messages = make(map[string]Message)
}
