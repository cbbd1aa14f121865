// Package sessions keeps one live vendor session per login and drives it
// through code request, token exchange, inventory refresh and door opening.
package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/logging"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// codeWait is how long a handle awaiting a confirmation code outlives its
// eviction from the registry.
const codeWait = 15 * time.Minute

type pendingHandle struct {
	h     *Handle
	since time.Time
}

// Manager is the registry of live handles, keyed by login. Entries expire
// after ttl without use and the least recently used ones are dropped once
// size is exceeded. A handle dropped while awaiting a confirmation code is
// brought back on the next request for its login, so the code it asked for
// stays redeemable.
type Manager struct {
	mu      sync.Mutex
	handles *expirable.LRU[string, *Handle]
	group   singleflight.Group

	// lock order: mu, then pendingMu
	pendingMu sync.Mutex
	pending   map[string]pendingHandle

	api       VendorAPI
	accounts  Accounts
	inventory Inventory
	logger    logging.Logger
}

func NewManager(api VendorAPI, accounts Accounts, inventory Inventory, logger logging.Logger, size int, ttl time.Duration) *Manager {
	m := &Manager{
		api:       api,
		accounts:  accounts,
		inventory: inventory,
		logger:    logger.With("module", "sessions"),
		pending:   make(map[string]pendingHandle),
	}
	m.handles = expirable.NewLRU[string, *Handle](size, func(login string, _ *Handle) {
		m.logger.Debug(context.Background(), "session dropped", "login", login)
	}, ttl)
	return m
}

// GetOrCreate returns the live handle of login, building one when there is
// none. A new handle picks up the vendor token stored for the login, if any.
// Concurrent callers for the same login always get the same handle.
func (m *Manager) GetOrCreate(ctx context.Context, login string) (*Handle, error) {
	if h, ok := m.touch(login); ok {
		return h, nil
	}

	// the result is shared with other callers, so the first caller going
	// away must not fail them
	hctx := context.WithoutCancel(ctx)

	v, err, _ := m.group.Do(login, func() (any, error) {
		m.mu.Lock()
		h, ok := m.handles.Peek(login)
		if !ok {
			if h, ok = m.revive(login); ok {
				m.handles.Add(login, h)
			}
		}
		m.mu.Unlock()
		if ok {
			return h, nil
		}

		h, err := m.hydrate(hctx, login)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.handles.Add(login, h)
		m.mu.Unlock()

		m.logger.Debug(hctx, "session created", "login", login, "state", h.State().String())
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// Lookup returns the live handle of login without creating one.
func (m *Manager) Lookup(login string) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles.Get(login); ok {
		return h, true
	}
	h, ok := m.revive(login)
	if ok {
		m.handles.Add(login, h)
	}
	return h, ok
}

// Evict drops the handle of login, if any.
func (m *Manager) Evict(login string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handles.Remove(login)

	m.pendingMu.Lock()
	delete(m.pending, login)
	m.pendingMu.Unlock()
}

// Len is the number of live handles.
func (m *Manager) Len() int {
	return m.handles.Len()
}

// touch returns a live handle and restarts its ttl.
func (m *Manager) touch(login string) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handles.Get(login)
	if ok {
		m.handles.Add(login, h)
	}
	return h, ok
}

func (m *Manager) hydrate(ctx context.Context, login string) (*Handle, error) {
	var token string

	stored, err := m.accounts.FindLogin(ctx, login)
	switch {
	case err == nil:
		token = stored.VendorToken
	case errors.Is(err, common.ErrorNotFound):
	default:
		return nil, err
	}

	h := newHandle(login, token, m.api, m.accounts, m.inventory, m.logger)
	h.onState = m.track
	return h, nil
}

// track remembers handles awaiting a confirmation code and puts such a handle
// back into the registry if its login has no live handle.
func (m *Manager) track(h *Handle, s State) {
	now := time.Now()

	m.pendingMu.Lock()
	for login, p := range m.pending {
		if now.Sub(p.since) > codeWait {
			delete(m.pending, login)
		}
	}
	if s == StateCodeRequested {
		m.pending[h.login] = pendingHandle{h: h, since: now}
	} else if p, ok := m.pending[h.login]; ok && p.h == h {
		delete(m.pending, h.login)
	}
	m.pendingMu.Unlock()

	if s != StateCodeRequested {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handles.Peek(h.login); !ok {
		m.handles.Add(h.login, h)
	}
}

// revive returns the handle of login still awaiting its code. Callers hold mu.
func (m *Manager) revive(login string) (*Handle, bool) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	p, ok := m.pending[login]
	if !ok {
		return nil, false
	}
	if time.Since(p.since) > codeWait {
		delete(m.pending, login)
		return nil, false
	}
	m.logger.Debug(context.Background(), "session revived", "login", login)
	return p.h, true
}
