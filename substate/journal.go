package substate

import (
	"math/big"

	"github.com/WizzyDev/solevm/core/types"
)

// journalEntry is one revertible change recorded against the
// currently-open log frame.
type journalEntry interface {
	revert(s *Substate)
}

type balanceChange struct {
	addr        types.Address
	prev        *big.Int
	prevExisted bool
}

func (c balanceChange) revert(s *Substate) {
	if c.prevExisted {
		s.balances[c.addr] = c.prev
	} else {
		delete(s.balances, c.addr)
	}
}

type nonceChange struct {
	addr        types.Address
	prev        uint64
	prevExisted bool
}

func (c nonceChange) revert(s *Substate) {
	if c.prevExisted {
		s.nonces[c.addr] = c.prev
	} else {
		delete(s.nonces, c.addr)
	}
}

type codeChange struct {
	addr         types.Address
	prevCode     []byte
	prevCodeHash types.Hash
	prevExisted  bool
}

func (c codeChange) revert(s *Substate) {
	if c.prevExisted {
		s.codes[c.addr] = c.prevCode
		s.codeHashes[c.addr] = c.prevCodeHash
	} else {
		delete(s.codes, c.addr)
		delete(s.codeHashes, c.addr)
	}
}

type storageChange struct {
	addr        types.Address
	key         string
	prev        *big.Int
	prevExisted bool
}

func (c storageChange) revert(s *Substate) {
	m := s.storage[c.addr]
	if c.prevExisted {
		m[c.key] = c.prev
	} else {
		delete(m, c.key)
	}
}

type touchChange struct {
	addr        types.Address
	prevExisted bool
}

func (c touchChange) revert(s *Substate) {
	if !c.prevExisted {
		delete(s.touched, c.addr)
	}
}

type deleteChange struct {
	addr types.Address
	prev bool
}

func (c deleteChange) revert(s *Substate) { s.deleted[c.addr] = c.prev }

type refundChange struct {
	prev uint64
}

func (c refundChange) revert(s *Substate) { s.refund = c.prev }

// logFrame is one entry in the Substate's call-depth stack: the
// journal entries recorded while this frame (and everything it pushed)
// was live, plus the indices into the shared logsEmitted/actions
// slices at the moment this frame was entered (so a revert can truncate
// both back to exactly what existed before the frame started).
type logFrame struct {
	entries      []journalEntry
	gasLimit     uint64
	isStatic     bool
	logsStart    int
	actionsStart int
}
