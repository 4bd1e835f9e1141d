package session

import "sync"

// GuardState is the dashboard gate's view of the auth state.
type GuardState int

const (
	// StateLoading means the auth state has not resolved yet. The gate
	// shows nothing in this state, never a premature redirect.
	StateLoading GuardState = iota
	// StateDenied covers both signed-out visitors and signed-in
	// non-admins. The two are indistinguishable from outside the guard.
	StateDenied
	// StateAllowed means a signed-in operator on the allow-list.
	StateAllowed
)

// Guard gates the admin dashboard. It starts in StateLoading and tracks the
// manager's broadcasts once bound, classifying each principal against the
// allow-list.
type Guard struct {
	allowList *AllowList

	mu          sync.Mutex
	state       GuardState
	unsubscribe func()
}

// NewGuard creates an unbound guard in the loading state.
func NewGuard(allowList *AllowList) *Guard {
	return &Guard{allowList: allowList, state: StateLoading}
}

// Bind subscribes the guard to the manager. The subscription replays the
// current auth state synchronously, so the guard leaves StateLoading before
// Bind returns.
func (g *Guard) Bind(m *Manager) {
	g.mu.Lock()
	if g.unsubscribe != nil {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	unsub := m.Subscribe(func(p *Principal) {
		g.mu.Lock()
		g.state = g.classify(p)
		g.mu.Unlock()
	})

	g.mu.Lock()
	g.unsubscribe = unsub
	g.mu.Unlock()
}

// Release detaches the guard from the manager and resets it to loading.
func (g *Guard) Release() {
	g.mu.Lock()
	unsub := g.unsubscribe
	g.unsubscribe = nil
	g.state = StateLoading
	g.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// State returns the current gate state.
func (g *Guard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Allowed reports whether the dashboard may render.
func (g *Guard) Allowed() bool {
	return g.State() == StateAllowed
}

func (g *Guard) classify(p *Principal) GuardState {
	if p == nil {
		return StateDenied
	}
	if !g.allowList.IsAdmin(p.Email) {
		return StateDenied
	}
	return StateAllowed
}
