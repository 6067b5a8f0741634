// Package session tracks the connection to the active directory host.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/hdsview/pkg/directory"
	"github.com/DeBrosOfficial/hdsview/pkg/errors"
	"github.com/DeBrosOfficial/hdsview/pkg/logging"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
)

// State is the connection state of a Session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

// AllStates lists every state, for metrics.
var AllStates = []string{
	string(StateDisconnected),
	string(StateConnecting),
	string(StateConnected),
	string(StateFailed),
}

// ErrConnectInFlight is returned by Connect in single-flight mode while
// another attempt is pending.
var ErrConnectInFlight = stderrors.New("a connect attempt is already in flight")

// Dialer builds a directory client for a user-supplied address.
type Dialer func(address string) (directory.DirectoryClient, error)

// Contact is the optional operator contact a directory advertises.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Event is emitted on every state transition.
type Event struct {
	State       State     `json:"state"`
	AttemptID   string    `json:"attempt_id"`
	Address     string    `json:"address,omitempty"`
	ServerName  string    `json:"server_name,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Contact     *Contact  `json:"contact,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Observer receives session events. Calls are synchronous and happen outside
// the session lock.
type Observer interface {
	OnSessionEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnSessionEvent calls f.
func (f ObserverFunc) OnSessionEvent(e Event) { f(e) }

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	State       State     `json:"state"`
	AttemptID   string    `json:"attempt_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Address     string    `json:"address,omitempty"`
	ServerName  string    `json:"server_name,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Contact     *Contact  `json:"contact,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitempty"`
}

// binding is the result of a successful connect.
type binding struct {
	address     string
	identity    directory.Identity
	profile     directory.Profile
	client      directory.DirectoryClient
	connectedAt time.Time
}

func (b *binding) displayName() string {
	if b.profile.Name != "" {
		return b.profile.Name
	}
	return b.identity.ServerName
}

func (b *binding) contact() *Contact {
	if !b.profile.HasContact() {
		return nil
	}
	return &Contact{Name: b.profile.ContactName, Email: b.profile.ContactEmail}
}

// Option configures a Session.
type Option func(*Session)

// WithSingleFlight rejects Connect while another attempt is pending.
func WithSingleFlight() Option {
	return func(s *Session) { s.singleFlight = true }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = logging.Wrap(l) }
}

// WithMetrics records transitions into reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Session) { s.metrics = reg }
}

// WithObserver subscribes o before the session is used.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.subscribe(o) }
}

// Session is the connection state machine. Concurrent Connect calls are
// allowed; each completion overwrites the state it finds.
type Session struct {
	dial         Dialer
	logger       *logging.ColoredLogger
	metrics      *metrics.Registry
	singleFlight bool

	mu        sync.RWMutex
	state     State
	attemptID string
	reason    string
	pending   int
	binding   *binding

	obsMu     sync.RWMutex
	observers map[uint64]Observer
	nextObs   uint64
}

// New creates a disconnected session.
func New(dial Dialer, opts ...Option) *Session {
	s := &Session{
		dial:      dial,
		logger:    logging.Wrap(nil),
		state:     StateDisconnected,
		observers: make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.SetSessionState(string(StateDisconnected), AllStates)
	return s
}

// Connect binds the session to the directory at address. It identifies the
// host, checks that it is a directory and loads its profile best-effort. On
// failure the session enters StateFailed and any previous binding is kept.
func (s *Session) Connect(ctx context.Context, address string) error {
	attempt := uuid.NewString()

	s.mu.Lock()
	if s.singleFlight && s.pending > 0 {
		s.mu.Unlock()
		return ErrConnectInFlight
	}
	s.pending++
	s.state = StateConnecting
	s.attemptID = attempt
	s.reason = ""
	s.mu.Unlock()

	s.logger.ComponentInfo(logging.ComponentSession, "connecting",
		zap.String("address", address), zap.String("attempt", attempt))
	s.transition(Event{State: StateConnecting, AttemptID: attempt, Address: address})

	b, err := s.bind(ctx, address)
	if err != nil {
		reason := err.Error()
		s.mu.Lock()
		s.pending--
		s.state = StateFailed
		s.attemptID = attempt
		s.reason = reason
		s.mu.Unlock()

		s.logger.ComponentWarn(logging.ComponentSession, "connect failed",
			zap.String("address", address), zap.String("attempt", attempt), zap.Error(err))
		s.transition(Event{State: StateFailed, AttemptID: attempt, Address: address, Reason: reason})
		return err
	}

	s.mu.Lock()
	s.pending--
	s.state = StateConnected
	s.attemptID = attempt
	s.reason = ""
	s.binding = b
	s.mu.Unlock()

	s.logger.ComponentInfo(logging.ComponentSession, "connected",
		zap.String("address", b.address),
		zap.String("servername", b.identity.ServerName),
		zap.String("attempt", attempt))
	s.transition(Event{
		State:       StateConnected,
		AttemptID:   attempt,
		Address:     b.address,
		ServerName:  b.identity.ServerName,
		DisplayName: b.displayName(),
		Contact:     b.contact(),
	})
	return nil
}

func (s *Session) bind(ctx context.Context, address string) (*binding, error) {
	if s.dial == nil {
		return nil, errors.NewInternalError("session has no dialer", nil)
	}
	client, err := s.dial(address)
	if err != nil {
		return nil, err
	}

	id, err := client.Identify(ctx)
	if err != nil {
		return nil, err
	}
	if id.ServerType != directory.DirectoryType {
		return nil, errors.NewProtocolError(
			fmt.Sprintf("%s is not a directory (type %q)", client.Target(), id.ServerType), nil)
	}

	b := &binding{
		address:     client.Target().String(),
		identity:    id,
		client:      client,
		connectedAt: time.Now().UTC(),
	}

	state, err := client.GetHostState(ctx, id.ServerName)
	if err != nil {
		s.logger.ComponentWarn(logging.ComponentSession, "host profile unavailable",
			zap.String("servername", id.ServerName), zap.Error(err))
	} else {
		b.profile = state.Profile()
	}
	return b, nil
}

func (s *Session) transition(e Event) {
	e.Timestamp = time.Now().UTC()
	s.metrics.SetSessionState(string(e.State), AllStates)

	s.obsMu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.obsMu.RUnlock()

	for _, o := range observers {
		o.OnSessionEvent(e)
	}
}

// Subscribe registers o for future events and returns a function that
// removes it.
func (s *Session) Subscribe(o Observer) (unsubscribe func()) {
	id := s.subscribe(o)
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Session) subscribe(o Observer) uint64 {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextObs++
	s.observers[s.nextObs] = o
	return s.nextObs
}

// Snapshot returns the current state. Binding fields describe the last
// successful connect, which survives later failures.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		State:     s.state,
		AttemptID: s.attemptID,
		Reason:    s.reason,
	}
	if b := s.binding; b != nil {
		snap.Address = b.address
		snap.ServerName = b.identity.ServerName
		snap.DisplayName = b.displayName()
		snap.Contact = b.contact()
		snap.ConnectedAt = b.connectedAt
	}
	return snap
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Client returns the bound directory client, or errors.ErrNotConnected if no
// connect has ever succeeded.
func (s *Session) Client() (directory.DirectoryClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.binding == nil {
		return nil, errors.ErrNotConnected
	}
	return s.binding.client, nil
}

// Identity returns the bound directory's identity.
func (s *Session) Identity() (directory.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.binding == nil {
		return directory.Identity{}, errors.ErrNotConnected
	}
	return s.binding.identity, nil
}
