package imap

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"
)

const (
	// workerIdleTimeout is the maximum time a worker connection can be idle before being closed.
	workerIdleTimeout = 10 * time.Minute
	// healthCheckThreshold is the idle time after which we perform a health check before reuse.
	healthCheckThreshold = 1 * time.Minute
	// cleanupInterval is how often idle worker connections are reaped.
	cleanupInterval = 1 * time.Minute
)

// Pool manages IMAP connections per user.
// Supports two types of connections:
// - Worker connections: 1-3 connections per user for folder fetches (SELECT, SEARCH, THREAD, FETCH)
// - Listener connections: 1 dedicated connection per user for IDLE command
//
// Thread safety: Each connection is wrapped with a mutex to ensure thread-safe access.
// Multiple goroutines can use different connections concurrently, but access to the same
// connection is serialized.
type Pool struct {
	workerSets    map[string]*workerClientSet  // userID -> worker client set
	listeners     map[string]*threadSafeClient // userID -> listener connection
	mu            sync.RWMutex
	maxWorkers    int
	useTLS        bool
	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
}

// NewPool creates a new IMAP connection pool with the default worker limit.
func NewPool(useTLS bool) *Pool {
	return NewPoolWithMaxWorkers(useTLS, 3)
}

// NewPoolWithMaxWorkers creates a new IMAP connection pool with a configurable
// maximum number of worker connections per user.
func NewPoolWithMaxWorkers(useTLS bool, maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		workerSets:    make(map[string]*workerClientSet),
		listeners:     make(map[string]*threadSafeClient),
		maxWorkers:    maxWorkers,
		useTLS:        useTLS,
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
	go p.startCleanupGoroutine()
	return p
}

// WithClient runs fn on a worker connection for the user, dialing one if no
// idle connection is available. At most maxWorkers calls per user run at once.
func (p *Pool) WithClient(userID string, creds Credentials, fn func(c *client.Client) error) error {
	tsClient, release, err := p.getWorkerConnection(userID, creds)
	if err != nil {
		return fmt.Errorf("failed to get IMAP connection: %w", err)
	}
	defer release()

	return fn(tsClient.GetClient())
}

// RemoveClient removes all connections (worker and listener) for a user from the pool.
func (p *Pool) RemoveClient(userID string) {
	p.mu.Lock()
	set, hasSet := p.workerSets[userID]
	delete(p.workerSets, userID)
	listener, hasListener := p.listeners[userID]
	delete(p.listeners, userID)
	p.mu.Unlock()

	if hasSet {
		set.close()
	}
	if hasListener {
		closeListener(listener)
	}
}

// Close closes all connections in the pool and stops the cleanup goroutine.
func (p *Pool) Close() {
	p.cleanupCancel()

	p.mu.Lock()
	sets := p.workerSets
	listeners := p.listeners
	p.workerSets = make(map[string]*workerClientSet)
	p.listeners = make(map[string]*threadSafeClient)
	p.mu.Unlock()

	for _, set := range sets {
		set.close()
	}
	for userID, listener := range listeners {
		log.Printf("IMAP pool: closing listener connection for user %s", userID)
		closeListener(listener)
	}
}

// startCleanupGoroutine periodically closes worker connections idle for longer than workerIdleTimeout.
func (p *Pool) startCleanupGoroutine() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.cleanupCtx.Done():
			return
		case <-ticker.C:
			p.cleanupIdleWorkers()
		}
	}
}

func (p *Pool) cleanupIdleWorkers() {
	p.mu.RLock()
	sets := make([]*workerClientSet, 0, len(p.workerSets))
	for _, set := range p.workerSets {
		sets = append(sets, set)
	}
	p.mu.RUnlock()

	for _, set := range sets {
		if closed := set.closeIdle(workerIdleTimeout); closed > 0 {
			log.Printf("IMAP pool: closed %d idle worker connections", closed)
		}
	}
}
