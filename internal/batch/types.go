package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"tgbatch/internal/transport"
)

// ErrSessionClosed is returned when a closed Session is used
var ErrSessionClosed = errors.New("batch session closed")

// ErrEmptyOperation is returned by Add when no operation name is given
var ErrEmptyOperation = errors.New("operation name is required")

// ErrNilSender is returned by NewSession when no Sender is given
var ErrNilSender = errors.New("sender is required")

// InvalidJSONResponse is the description of every DecodeFailure
const InvalidJSONResponse = "Invalid JSON response"

// DefaultPollInterval bounds how long the multiplexer sleeps between checks
const DefaultPollInterval = 100 * time.Millisecond

// Sender builds and sends single requests. *transport.Transport implements it.
type Sender interface {
	Prepare(ctx context.Context, operation string, params transport.Params) (*http.Request, error)
	Do(req *http.Request) (*transport.Reply, error)
}

// Options configures a Session
type Options struct {
	// PollInterval is the longest the multiplexer waits before re-checking state.
	PollInterval time.Duration
	// Timeout, when positive, is a deadline applied to every operation from the moment it is added.
	Timeout time.Duration
}

// Descriptor is one call: an operation name plus its parameters
type Descriptor struct {
	Operation string
	Params    transport.Params
}

// Handle identifies a call within the Session that created it
type Handle struct {
	session uuid.UUID
	seq     uint64
}

// Seq returns the position of the call within its session, starting at 1
func (h Handle) Seq() uint64 {
	return h.seq
}

// IsZero returns true for the zero Handle, which no session ever returns
func (h Handle) IsZero() bool {
	return h.seq == 0
}

// String implements fmt.Stringer
func (h Handle) String() string {
	return fmt.Sprintf("%s#%d", h.session, h.seq)
}

// Kind classifies a Result
type Kind int

const (
	Success Kind = iota
	TransportFailure
	DecodeFailure
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case TransportFailure:
		return "transport failure"
	case DecodeFailure:
		return "decode failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of one call
type Result struct {
	Kind        Kind
	Value       json.RawMessage // set for Success: the remote envelope as received
	Description string          // set for failures
}

// OK returns true if the call produced a JSON body
func (r Result) OK() bool {
	return r.Kind == Success
}

// Err returns nil for Success and an error describing the failure otherwise
func (r Result) Err() error {
	if r.Kind == Success {
		return nil
	}
	return fmt.Errorf("%s: %s", r.Kind, r.Description)
}

// pendingOp is an in-flight call owned by a registry
type pendingOp struct {
	handle  Handle
	desc    Descriptor
	cancel  context.CancelFunc
	release sync.Once

	// written by the op goroutine before it hands the op to the multiplexer
	reply *transport.Reply
	err   error
}

// free cancels the op's context; safe to call more than once
func (op *pendingOp) free() {
	op.release.Do(func() {
		if op.cancel != nil {
			op.cancel()
		}
	})
}

// registry maps handles to their pending ops for one batch
type registry struct {
	ops map[Handle]*pendingOp
	mu  sync.Mutex
}

func newRegistry() *registry {
	return &registry{ops: make(map[Handle]*pendingOp)}
}

func (r *registry) add(op *pendingOp) {
	r.mu.Lock()
	r.ops[op.handle] = op
	r.mu.Unlock()
}

func (r *registry) get(h Handle) (*pendingOp, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[h]
	return op, ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// drain empties the registry and returns what it held
func (r *registry) drain() []*pendingOp {
	r.mu.Lock()
	defer r.mu.Unlock()

	ops := make([]*pendingOp, 0, len(r.ops))
	for _, op := range r.ops {
		ops = append(ops, op)
	}
	r.ops = make(map[Handle]*pendingOp)
	return ops
}
