package hostapi

import (
	"sync"

	"github.com/WizzyDev/solevm/core/types"
)

// BlockRegistry stands in for the host's real cross-invocation account
// lock table: an in-memory set of addresses an iterative transaction
// currently holds exclusive access to, so a second transaction
// touching the same address is rejected until Continue/Cancel/Finalize
// unblocks it. Out of scope as a real distributed lock; its interface
// exists so iterative-execution tests can exercise blocking/unblocking
// semantics end to end.
type BlockRegistry struct {
	mu      sync.Mutex
	blocked map[types.Address]bool
}

// NewBlockRegistry returns an empty registry.
func NewBlockRegistry() *BlockRegistry {
	return &BlockRegistry{blocked: make(map[types.Address]bool)}
}

// Block marks addr as held by an in-progress iterative transaction.
// Idempotent: blocking an already-blocked address is a no-op.
func (r *BlockRegistry) Block(addr types.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocked[addr] = true
}

// Unblock releases addr. Idempotent: unblocking an address that was
// never blocked is a no-op.
func (r *BlockRegistry) Unblock(addr types.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocked, addr)
}

// IsBlocked reports whether addr is currently held.
func (r *BlockRegistry) IsBlocked(addr types.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocked[addr]
}
