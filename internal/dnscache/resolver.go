// Package dnscache keeps resolved host addresses for a bounded lifetime so
// that many connections to the same host avoid repeated DNS round trips.
package dnscache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LookupFunc resolves a host name to its addresses
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// entry represents cached addresses with expiration
type entry struct {
	addrs     []string
	expiresAt time.Time
}

// Resolver is an LRU cache of host lookups with TTL support
type Resolver struct {
	cache  *lru.Cache[string, *entry]
	ttl    time.Duration
	lookup LookupFunc
	dialer *net.Dialer
	mu     sync.RWMutex
}

// New creates a resolver holding at most size hosts for ttl each.
// A nil dialer uses a zero net.Dialer.
func New(size int, ttl time.Duration, dialer *net.Dialer) (*Resolver, error) {
	cache, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, err
	}
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	return &Resolver{
		cache:  cache,
		ttl:    ttl,
		lookup: net.DefaultResolver.LookupHost,
		dialer: dialer,
	}, nil
}

// SetLookup replaces the underlying lookup (used by tests)
func (r *Resolver) SetLookup(fn LookupFunc) {
	r.mu.Lock()
	r.lookup = fn
	r.mu.Unlock()
}

// LookupHost returns the addresses for host, from cache when fresh
func (r *Resolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{host}, nil
	}

	r.mu.RLock()
	e, ok := r.cache.Get(host)
	lookup := r.lookup
	r.mu.RUnlock()

	if ok && time.Now().Before(e.expiresAt) {
		return e.addrs, nil
	}

	addrs, err := lookup(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses for host %s", host)
	}

	// A zero ttl disables caching.
	if r.ttl > 0 {
		r.mu.Lock()
		r.cache.Add(host, &entry{addrs: addrs, expiresAt: time.Now().Add(r.ttl)})
		r.mu.Unlock()
	}

	return addrs, nil
}

// DialContext dials addr resolving the host through the cache.
// Each cached address is tried in turn until one connects.
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	addrs, err := r.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, ip := range addrs {
		conn, err := r.dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, errors.Join(errs...)
}

// Len returns the number of cached hosts, including expired ones not yet evicted
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache.Len()
}

// Purge drops every cached entry
func (r *Resolver) Purge() {
	r.mu.Lock()
	r.cache.Purge()
	r.mu.Unlock()
}
