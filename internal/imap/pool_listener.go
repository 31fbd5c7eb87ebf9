package imap

// GetListenerConnection gets or creates a listener connection for a user.
// Listener connections are dedicated connections for IDLE command.
// Returns a locked connection that must be unlocked by the caller.
func (p *Pool) GetListenerConnection(userID string, creds Credentials) (ListenerClient, error) {
	p.mu.RLock()
	listener, exists := p.listeners[userID]
	p.mu.RUnlock()

	if exists {
		listener.Lock()
		p.mu.RLock()
		current := p.listeners[userID]
		p.mu.RUnlock()

		if current == listener && listener.loggedIn() {
			return listener, nil // Caller must unlock
		}
		listener.Unlock()

		p.mu.Lock()
		if p.listeners[userID] == listener {
			delete(p.listeners, userID)
		}
		p.mu.Unlock()
		closeListener(listener)
	}

	listener, err := dial(creds, p.useTLS)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if existing, ok := p.listeners[userID]; ok {
		// Another goroutine created one first; use it.
		p.mu.Unlock()
		listener.logout()
		existing.Lock()
		return existing, nil
	}
	p.listeners[userID] = listener
	p.mu.Unlock()

	listener.Lock()
	return listener, nil
}

// RemoveListenerConnection removes a listener connection from the pool.
func (p *Pool) RemoveListenerConnection(userID string) {
	p.mu.Lock()
	listener, exists := p.listeners[userID]
	delete(p.listeners, userID)
	p.mu.Unlock()

	if exists {
		closeListener(listener)
	}
}

// closeListener logs out an idle listener. A listener that is locked is
// mid-IDLE, so its connection is closed under it, which ends the IDLE.
func closeListener(listener *threadSafeClient) {
	if listener.TryLock() {
		listener.logout()
		listener.Unlock()
		return
	}
	_ = listener.client.Terminate()
}
