package connect

import (
	"context"
	"time"

	"github.com/toolscout-ai/toolscout/internal/logging"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

// DefaultTimeout bounds a single connection attempt, handshake included.
const DefaultTimeout = 30 * time.Second

// Session is the slice of session state the manager needs. Implemented by
// registry sessions.
type Session interface {
	// Connected reports whether the session already holds this server.
	Connected(name string) bool
	// AddConnection stores an established connection on the session.
	AddConnection(conn *Connection)
}

// Manager turns connect requests into session connections.
type Manager struct {
	dial    Dialer
	timeout time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithDialer substitutes the dialer. Used in tests.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// NewManager creates a manager with the production MCP dialer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		dial:    NewSDKDialer("toolscout", "1.0.0"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect resolves name against the catalog snapshot and dials the server on
// behalf of the session. The attempt is idempotent per session: a server the
// session already holds is reported as such, never re-dialed. Failures are
// returned in the Outcome, not as an error, so a broken server cannot take
// the conversation down with it.
func (m *Manager) Connect(ctx context.Context, sess Session, catalog types.CatalogSnapshot, name string) Outcome {
	if sess.Connected(name) {
		out := Outcome{Kind: KindAlreadyConnected, Server: types.ServerDescriptor{Name: name}}
		if desc, ok := catalog.Find(name); ok {
			out.Server = desc
		}
		return out
	}

	desc, ok := catalog.Find(name)
	if !ok {
		return Outcome{Kind: KindNotFound, Server: types.ServerDescriptor{Name: name}}
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn, err := m.dial.Dial(dialCtx, desc)
	if err != nil {
		log := logging.Component("connect")
		log.Warn().
			Str("server", name).
			Err(err).
			Msg("connection failed")
		return Outcome{Kind: KindFailed, Server: desc, Err: err}
	}

	tools := conn.Tools()
	sess.AddConnection(&Connection{Server: desc, Conn: conn, Tools: tools})

	log := logging.Component("connect")
	log.Info().
		Str("server", name).
		Int("tools", len(tools)).
		Msg("server connected")

	return Outcome{Kind: KindConnected, Server: desc, Tools: tools}
}
