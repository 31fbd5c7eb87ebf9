package imap

import (
	"sync"
	"time"
)

// workerClientSet holds the worker connections of one user.
// The semaphore caps how many of them are in use at once.
type workerClientSet struct {
	clients   []*threadSafeClient
	mu        sync.Mutex
	semaphore chan struct{}
}

// getOrCreateWorkerSet gets or creates a worker client set for a user.
// Thread-safe: uses double-check locking pattern.
func (p *Pool) getOrCreateWorkerSet(userID string) *workerClientSet {
	p.mu.RLock()
	set, exists := p.workerSets[userID]
	p.mu.RUnlock()

	if exists {
		return set
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another goroutine might have created it
	if set, exists := p.workerSets[userID]; exists {
		return set
	}

	set = &workerClientSet{
		semaphore: make(chan struct{}, p.maxWorkers),
	}
	p.workerSets[userID] = set
	return set
}

// getWorkerConnection returns a locked worker connection and the release
// function that must be called when the caller is done with it.
func (p *Pool) getWorkerConnection(userID string, creds Credentials) (*threadSafeClient, func(), error) {
	set := p.getOrCreateWorkerSet(userID)
	set.semaphore <- struct{}{}

	releaseFor := func(c *threadSafeClient) func() {
		return func() {
			c.lastUsed = time.Now()
			c.Unlock()
			<-set.semaphore
		}
	}

	for {
		c := set.takeIdle()
		if c == nil {
			break
		}
		if c.loggedIn() && (time.Since(c.lastUsed) <= healthCheckThreshold || checkConnectionHealth(c)) {
			return c, releaseFor(c), nil
		}
		// Dead connection: drop it and try the next one.
		set.remove(c)
		c.logout()
		c.Unlock()
	}

	c, err := dial(creds, p.useTLS)
	if err != nil {
		<-set.semaphore
		return nil, nil, err
	}
	c.Lock()
	set.add(c)

	return c, releaseFor(c), nil
}

// checkConnectionHealth performs a NOOP command to check if client is alive.
// The client must be locked before calling this.
func checkConnectionHealth(c *threadSafeClient) bool {
	return c.client.Noop() == nil
}

// takeIdle locks and returns a connection nobody is using, or nil.
func (s *workerClientSet) takeIdle() *threadSafeClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if c.TryLock() {
			return c
		}
	}
	return nil
}

func (s *workerClientSet) add(c *threadSafeClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = append(s.clients, c)
}

func (s *workerClientSet) remove(c *threadSafeClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.clients {
		if existing == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return
		}
	}
}

func (s *workerClientSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// closeIdle logs out connections unused for longer than maxIdle and returns how many it closed.
func (s *workerClientSet) closeIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.clients[:0]
	closed := 0
	for _, c := range s.clients {
		if !c.TryLock() {
			kept = append(kept, c)
			continue
		}
		if time.Since(c.lastUsed) > maxIdle {
			c.logout()
			closed++
		} else {
			kept = append(kept, c)
		}
		c.Unlock()
	}
	s.clients = kept
	return closed
}

// close logs out every connection. Connections in use are terminated.
func (s *workerClientSet) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if c.TryLock() {
			c.logout()
			c.Unlock()
		} else {
			_ = c.client.Terminate()
		}
	}
	s.clients = nil
}
