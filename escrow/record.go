package escrow

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lf2netr0/atomicswap-core/immutables"
)

// State is the escrow lifecycle from spec §3: Funded is the only
// non-terminal state; Withdrawn and Cancelled are terminal.
type State int

const (
	StateFunded State = iota
	StateWithdrawn
	StateCancelled

	// StateRescued is never assigned by this package: rescue_funds (see
	// RescueFunds) may be called repeatedly against whatever balance
	// remains and deliberately leaves State untouched, since a rescue
	// sweep doesn't end the escrow's lifecycle the way a withdraw or
	// cancel does. It is reserved for a host integration's own
	// bookkeeping — e.g. to record, outside this package, that a given
	// escrow has had a rescue sweep applied to it.
	StateRescued
)

func (s State) String() string {
	switch s {
	case StateFunded:
		return "Funded"
	case StateWithdrawn:
		return "Withdrawn"
	case StateCancelled:
		return "Cancelled"
	case StateRescued:
		return "Rescued"
	default:
		return "Unknown"
	}
}

// Side distinguishes an EscrowSrc from an EscrowDst record, since both
// share the same persisted shape and differ only in which party each
// transition pays out to (spec §4.3 vs §4.4).
type Side int

const (
	Src Side = iota
	Dst
)

func (s Side) String() string {
	if s == Src {
		return "src"
	}
	return "dst"
}

// Record is the persisted state of a single escrow object: its binding
// Immutables, lifecycle State, and remaining principal/safety-deposit
// balances. A terminal transition zeroes both balances and the caller
// removes the Record from the ObjectStore, per spec §3 ("terminal states
// delete the object").
type Record struct {
	ID         chainhash.Hash
	Side       Side
	Immutables immutables.Immutables
	State      State
	Principal  uint64
	Safety     uint64
}

// Payout describes one balance leaving the escrow as part of a
// transition. The core authorizes and records the payout; the host
// ledger integration that embeds this core is responsible for the actual
// asset movement (spec §1: the core has no coin-transfer collaborator of
// its own — see design note on the Coin capability).
type Payout struct {
	Recipient immutables.Address
	Amount    uint64
	IsSafety  bool
}
