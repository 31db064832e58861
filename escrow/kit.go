package escrow

import (
	"github.com/lf2netr0/atomicswap-core/cryptoprovider"
	"github.com/lf2netr0/atomicswap-core/events"
	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/walltime"
)

// Escrow is the set of transitions both flavors expose. Src additionally
// offers WithdrawTo, PublicWithdrawTo and PublicCancel, which Dst lacks.
type Escrow interface {
	Withdraw(rec *Record, caller immutables.Address, secret []byte) ([]Payout, events.Event, error)
	PublicWithdraw(rec *Record, caller immutables.Address, secret []byte) ([]Payout, events.Event, error)
	Cancel(rec *Record, caller immutables.Address) ([]Payout, events.Event, error)
	RescueFunds(rec *Record, caller immutables.Address, token immutables.Address, amount uint64, rescueDelay uint32) ([]Payout, events.Event, error)
}

var (
	_ Escrow = Src{}
	_ Escrow = Dst{}
)

// Kit bundles the collaborators every escrow transition needs, mirroring
// the teacher's ResolverKit: a small grab-bag of capabilities attached to
// a concrete resolver rather than reached for as package globals.
type Kit struct {
	Clock  walltime.Clock
	Crypto cryptoprovider.Crypto
}

// NativeAssetSentinel is the opaque Address value rescue_funds compares
// against to decide whether it is draining the safety-deposit balance
// (native asset) or the principal balance (spec §4.3's rescue_funds
// effect). The zero Address is reserved for this purpose; no real token
// address should ever hash to it since real addresses are supplied by the
// host ledger integration, never left as the zero value.
var NativeAssetSentinel immutables.Address
