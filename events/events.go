// Package events defines the append-only event types emitted by every
// state transition (spec §6.1) and the EventSink collaborator that
// receives them. Modeled on the teacher's lnwire message idiom: one
// concrete struct per wire-level fact, grouped under a common interface
// rather than a stringly-typed payload.
package events

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lf2netr0/atomicswap-core/immutables"
)

// Event is implemented by every emittable fact. Name identifies the event
// kind the way lnwire.Message's MsgType identifies a wire message.
type Event interface {
	Name() string
}

// Sink is the append-only collaborator every mutating operation emits
// through once the store transaction carrying its mutation has committed;
// a transaction that rolls back emits nothing.
type Sink interface {
	Emit(Event)
}

// OrderCreated is emitted when a maker's order is accepted into the pool.
type OrderCreated struct {
	OrderHash chainhash.Hash
	Maker     immutables.Address
	Token     immutables.Address
	Amount    uint64
	Expiry    uint64
	PoolID    string
}

func (OrderCreated) Name() string { return "OrderCreated" }

// OrderTaken is emitted when a resolver claims an order and an EscrowSrc
// has been minted for it.
type OrderTaken struct {
	OrderHash   chainhash.Hash
	Maker       immutables.Address
	Taker       immutables.Address
	Resolver    immutables.Address
	SrcEscrowID chainhash.Hash
}

func (OrderTaken) Name() string { return "OrderTaken" }

// OrderCancelled is emitted when a maker cancels a pending order (or it is
// swept after expiry).
type OrderCancelled struct {
	OrderHash       chainhash.Hash
	Maker           immutables.Address
	RefundedAmount  uint64
}

func (OrderCancelled) Name() string { return "OrderCancelled" }

// EscrowCreated is emitted by the Factory whenever it mints an EscrowSrc
// or EscrowDst.
type EscrowCreated struct {
	EscrowID     chainhash.Hash
	FactoryID    chainhash.Hash
	OrderHash    chainhash.Hash
	IsSrc        bool
	Maker        immutables.Address
	Taker        immutables.Address
	TokenAmount  uint64
	SafetyAmount uint64
}

func (EscrowCreated) Name() string { return "EscrowCreated" }

// CrossChainSwapInitiated is emitted by Factory.InitiateCrossChainSwap
// once both counterpart escrows have been minted atomically.
type CrossChainSwapInitiated struct {
	SrcEscrowID     chainhash.Hash
	DstEscrowID     chainhash.Hash
	OrderHash       chainhash.Hash
	Maker           immutables.Address
	Taker           immutables.Address
	SrcTokenAmount  uint64
	DstTokenAmount  uint64
}

func (CrossChainSwapInitiated) Name() string { return "CrossChainSwapInitiated" }

// Withdrawal is emitted by a successful withdraw on either escrow flavor.
// Secret is deliberately public: its emission is the cross-chain
// signaling primitive (spec §6.1).
type Withdrawal struct {
	EscrowID chainhash.Hash
	Secret   []byte
}

func (Withdrawal) Name() string { return "Withdrawal" }

// EscrowCancelled is emitted by cancel/public_cancel on either escrow
// flavor.
type EscrowCancelled struct {
	EscrowID chainhash.Hash
}

func (EscrowCancelled) Name() string { return "EscrowCancelled" }

// FundsRescued is emitted by rescue_funds.
type FundsRescued struct {
	EscrowID chainhash.Hash
	Token    immutables.Address
	Amount   uint64
}

func (FundsRescued) Name() string { return "FundsRescued" }

// NodeInvalidated is emitted when a Merkle leaf is consumed.
type NodeInvalidated struct {
	MerkleRoot chainhash.Hash
	Index      uint64
	LeafHash   chainhash.Hash
}

func (NodeInvalidated) Name() string { return "NodeInvalidated" }

// Recorder is a Sink that appends every event to an in-memory slice, used
// by tests the way the teacher's test files assert on captured
// notifications rather than a live bus.
type Recorder struct {
	Events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(e Event) {
	r.Events = append(r.Events, e)
}

// Last returns the most recently recorded event, or nil if none.
func (r *Recorder) Last() Event {
	if len(r.Events) == 0 {
		return nil
	}
	return r.Events[len(r.Events)-1]
}
