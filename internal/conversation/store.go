package conversation

import (
	"sync"
	"time"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/google/uuid"
)

const (
	WelcomeMessageID = "welcome"
	WelcomeMessage   = "Hello! I am OmniStudy AI. What subject are we mastering today? I can explain topics, quiz you, or help you create a study plan."
)

type EventType string

const (
	EventMessageAppended EventType = "message_appended"
	EventBusyChanged     EventType = "busy_changed"
)

// Event is emitted to listeners after a store mutation
type Event struct {
	Type           EventType
	ConversationID string
	Message        *entity.Message // set for EventMessageAppended
	Busy           bool            // set for EventBusyChanged
}

type Listener func(Event)

// Store is the append-only transcript of one conversation plus its busy flag.
// Messages are never edited, removed or reordered.
type Store struct {
	id        string
	createdAt time.Time

	mu        sync.RWMutex
	messages  []entity.Message
	index     map[string]int
	busy      bool
	listeners map[int]Listener
	nextSubID int
}

// New creates a store seeded with the welcome message
func New(id string) *Store {
	now := time.Now()
	s := &Store{
		id:        id,
		createdAt: now,
		index:     make(map[string]int),
		listeners: make(map[int]Listener),
	}

	s.appendLocked(entity.Message{
		ID:        WelcomeMessageID,
		Role:      entity.RoleAssistant,
		Content:   WelcomeMessage,
		CreatedAt: now,
	})

	return s
}

func (s *Store) ID() string {
	return s.id
}

func (s *Store) CreatedAt() time.Time {
	return s.createdAt
}

// AppendUser constructs and appends a user message
func (s *Store) AppendUser(text string) entity.Message {
	msg := entity.Message{
		ID:        uuid.New().String(),
		Role:      entity.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.appendLocked(msg)
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	s.emit(listeners, Event{Type: EventMessageAppended, ConversationID: s.id, Message: &msg})
	return msg
}

// AppendAssistant appends an assistant message, assigning an id and timestamp when missing
func (s *Store) AppendAssistant(msg entity.Message) entity.Message {
	msg.Role = entity.RoleAssistant
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.appendLocked(msg)
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	s.emit(listeners, Event{Type: EventMessageAppended, ConversationID: s.id, Message: &msg})
	return msg
}

// TryBegin sets the busy flag if it is clear. A false result means a request
// is already in flight and the submission must be dropped.
func (s *Store) TryBegin() bool {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return false
	}
	s.busy = true
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	s.emit(listeners, Event{Type: EventBusyChanged, ConversationID: s.id, Busy: true})
	return true
}

func (s *Store) SetBusy(busy bool) {
	s.mu.Lock()
	if s.busy == busy {
		s.mu.Unlock()
		return
	}
	s.busy = busy
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	s.emit(listeners, Event{Type: EventBusyChanged, ConversationID: s.id, Busy: busy})
}

func (s *Store) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// Messages returns a copy of the transcript in insertion order
func (s *Store) Messages() []entity.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Message(id string) (entity.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return entity.Message{}, false
	}
	return s.messages[i], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Subscribe registers a listener and returns a function removing it.
// Listeners run synchronously after the mutation, outside the store lock.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) appendLocked(msg entity.Message) {
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
}

func (s *Store) snapshotListenersLocked() []Listener {
	if len(s.listeners) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextSubID; i++ {
		if l, ok := s.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) emit(listeners []Listener, e Event) {
	for _, l := range listeners {
		l(e)
	}
}
