package batch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tgbatch/internal/transport"
)

// Session accumulates calls and runs them as one batch.
// A Session must be closed with Close; calls added but never executed are
// cancelled and released there.
type Session struct {
	sender Sender
	opts   Options
	id     uuid.UUID
	logger zerolog.Logger

	mu      sync.Mutex
	seq     uint64
	current *run              // accepting Add
	running map[*run]struct{} // being executed
	closed  bool
}

// run is one batch of calls sharing a completion channel and a lifetime
type run struct {
	reg         *registry
	completions chan *pendingOp
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	once        sync.Once
}

func newRun() *run {
	ctx, cancel := context.WithCancel(context.Background())
	return &run{
		reg:         newRegistry(),
		completions: make(chan *pendingOp),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// start sends req in its own goroutine and reports the op on completions.
// A nil req means building it failed with buildErr.
func (r *run) start(sender Sender, op *pendingOp, req *http.Request, buildErr error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if req == nil {
			op.err = buildErr
		} else {
			op.reply, op.err = sender.Do(req)
		}

		select {
		case r.completions <- op:
		case <-r.ctx.Done():
		}
	}()
}

// release cancels every call of the run, waits for their goroutines and
// empties the registry. Only the first call has any effect.
func (r *run) release() {
	r.once.Do(func() {
		r.cancel()
		r.wg.Wait()
		for _, op := range r.reg.drain() {
			op.free()
		}
	})
}

// NewSession creates a Session sending through sender
func NewSession(sender Sender, opts Options, logger zerolog.Logger) (*Session, error) {
	if sender == nil {
		return nil, ErrNilSender
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	id := uuid.New()
	return &Session{
		sender:  sender,
		opts:    opts,
		id:      id,
		running: make(map[*run]struct{}),
		logger:  logger.With().Str("component", "batch").Str("session", id.String()).Logger(),
	}, nil
}

// ID returns the session identity embedded in its handles
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Add registers a call and starts it immediately. It never waits on the network.
// A call whose request cannot be built is still registered and completes as a
// TransportFailure carrying the build error.
func (s *Session) Add(operation string, params transport.Params) (Handle, error) {
	if operation == "" {
		return Handle{}, ErrEmptyOperation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Handle{}, ErrSessionClosed
	}
	if s.current == nil {
		s.current = newRun()
	}
	r := s.current

	s.seq++
	op := &pendingOp{
		handle: Handle{session: s.id, seq: s.seq},
		desc:   Descriptor{Operation: operation, Params: params.Clone()},
	}

	ctx := r.ctx
	if s.opts.Timeout > 0 {
		ctx, op.cancel = context.WithTimeout(ctx, s.opts.Timeout)
	}

	req, err := s.sender.Prepare(ctx, operation, op.desc.Params)
	if err != nil {
		s.logger.Debug().Err(err).Str("operation", operation).Msg("failed to build request")
	}

	r.reg.add(op)
	r.start(s.sender, op, req, err)

	return op.handle, nil
}

// Pending returns the number of calls added and not yet executed
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.reg.len()
}

// Descriptor returns the call registered under h, if it is still pending
func (s *Session) Descriptor(h Handle) (Descriptor, bool) {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return Descriptor{}, false
	}
	op, ok := r.reg.get(h)
	if !ok {
		return Descriptor{}, false
	}
	return Descriptor{Operation: op.desc.Operation, Params: op.desc.Params.Clone()}, true
}

// Execute waits for every pending call and returns one Result per handle.
// Individual failures are reported in the map. An error is returned only when
// the batch as a whole cannot complete: the session was closed, or ctx ended.
// All calls of the batch are released before Execute returns, and the next
// Add starts a new batch.
func (s *Session) Execute(ctx context.Context) (map[Handle]Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	r := s.current
	if r == nil || r.reg.len() == 0 {
		s.mu.Unlock()
		return map[Handle]Result{}, nil
	}
	s.current = nil
	s.running[r] = struct{}{}
	s.mu.Unlock()

	defer func() {
		r.release()
		s.mu.Lock()
		delete(s.running, r)
		s.mu.Unlock()
	}()

	return s.multiplex(ctx, r)
}

// multiplex is the single control loop collecting completions for r
func (s *Session) multiplex(ctx context.Context, r *run) (map[Handle]Result, error) {
	start := time.Now()
	remaining := r.reg.len()
	results := make(map[Handle]Result, remaining)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	var transportFailures, decodeFailures int
	for remaining > 0 {
		select {
		case op := <-r.completions:
			res := correlate(op.reply, op.err)
			results[op.handle] = res
			op.free()
			remaining--

			switch res.Kind {
			case TransportFailure:
				transportFailures++
			case DecodeFailure:
				decodeFailures++
			}

			s.logger.Debug().
				Str("handle", op.handle.String()).
				Str("operation", op.desc.Operation).
				Str("result", res.Kind.String()).
				Msg("operation completed")

		case <-ticker.C:
			s.logger.Debug().
				Int("remaining", remaining).
				Dur("elapsed", time.Since(start)).
				Msg("waiting for operations")

		case <-r.ctx.Done():
			s.logger.Warn().Int("remaining", remaining).Msg("session closed during execute")
			return nil, ErrSessionClosed

		case <-ctx.Done():
			s.logger.Warn().Err(ctx.Err()).Int("remaining", remaining).Msg("batch aborted")
			return nil, fmt.Errorf("batch aborted: %w", ctx.Err())
		}
	}

	// Close may race the last completion; a closed run has no trustworthy result set.
	if r.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}

	event := s.logger.Info()
	if transportFailures > 0 || decodeFailures > 0 {
		event = s.logger.Warn()
	}
	event.
		Int("requests", len(results)).
		Int("transportFailures", transportFailures).
		Int("decodeFailures", decodeFailures).
		Dur("took", time.Since(start)).
		Msg("batch executed")

	return results, nil
}

// Close releases every call that was added but not executed, and aborts every
// running Execute. It waits for all of them to finish. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	current := s.current
	s.current = nil
	running := make([]*run, 0, len(s.running))
	for r := range s.running {
		running = append(running, r)
	}
	s.mu.Unlock()

	if current != nil {
		n := current.reg.len()
		current.release()
		if n > 0 {
			s.logger.Debug().Int("released", n).Msg("released unexecuted operations")
		}
	}
	for _, r := range running {
		r.release()
	}
}
