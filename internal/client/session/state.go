// Package session holds the single observable source of truth for "is the
// client authenticated". One writer (the auth service / logout path), many
// readers (route-level guards in the CLI, the idle monitor, the dashboard).
package session

import "sync"

// State представляет наблюдаемый флаг аутентификации
//
// Два уровня проверки: Authenticated() дает синхронный ответ по текущему
// значению, Subscribe() - поток обновлений. Generation() растет на каждом
// logout: установка сессии, начатая до logout, обязана свериться с ним
// и отбросить устаревший результат.
type State struct {
	subs          map[int]chan bool
	nextSubID     int
	generation    uint64
	mu            sync.Mutex
	authenticated bool
}

// NewState creates session state with the given initial value, normally
// "access token present in the credential store".
func NewState(authenticated bool) *State {
	return &State{
		authenticated: authenticated,
		subs:          make(map[int]chan bool),
	}
}

// Authenticated returns the current value synchronously.
func (s *State) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Generation returns the current logout generation. Snapshot it before a
// session-establishing network call and pass it to EstablishIfCurrent.
func (s *State) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// EstablishIfCurrent publishes true if no logout happened since the given
// generation snapshot. Returns false for stale completions: a late login
// response must not resurrect a cleared session.
func (s *State) EstablishIfCurrent(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return false
	}
	s.authenticated = true
	s.publish(true)
	return true
}

// MarkLoggedOut bumps the generation and publishes false.
func (s *State) MarkLoggedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.authenticated = false
	s.publish(false)
}

// Subscribe registers an observer. The returned cancel func must be called
// on teardown; listener registration is always scoped.
func (s *State) Subscribe() (<-chan bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	// Буфер 1: подписчик всегда видит последнее значение, не блокируя писателя
	ch := make(chan bool, 1)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
	return ch, cancel
}

// publish delivers latest-wins and never blocks: a slow subscriber loses
// intermediate values, not the final one. Called with s.mu held.
func (s *State) publish(value bool) {
	for _, ch := range s.subs {
		select {
		case ch <- value:
			continue
		default:
		}
		// Буфер занят: вытесняем старое значение
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- value:
		default:
		}
	}
}
