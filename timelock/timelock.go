// Package timelock implements the seven-phase timelock codec described in
// spec §4.1: packing/unpacking a 256-bit word and resolving it, together
// with a deployment timestamp, into absolute per-phase deadlines.
package timelock

import (
	"math/big"

	"github.com/lf2netr0/atomicswap-core/swaperrors"
)

// Phase enumerates the seven named phase boundaries a Timelocks value
// carries, in the bit order laid out in spec §3.
type Phase int

const (
	SrcWithdrawal Phase = iota
	SrcPublicWithdrawal
	SrcCancellation
	SrcPublicCancellation
	DstWithdrawal
	DstPublicWithdrawal
	DstCancellation

	numPhases = 7
)

// bit offsets of each field's low bit within the 256-bit word, matching
// spec §3 exactly: deployed_at occupies the top 32 bits, the seven phase
// offsets fill the remaining 224 bits in the order above.
const (
	bitsDeployedAt = 224
)

func phaseBitOffset(p Phase) int {
	return int(p) * 32
}

// Offsets holds the seven raw phase offsets (seconds relative to
// deployed_at), in Phase order.
type Offsets [numPhases]uint32

// Timelocks is the packed 256-bit word from spec §3. It is represented as
// a big.Int the way on-chain EVM integration points naturally serialize
// it, rather than inventing a bespoke fixed-width type — every other
// Immutables field uses native Go widths, but this one field is explicitly
// specified as a 256-bit packed word shared with an EVM counterpart.
type Timelocks struct {
	v *big.Int
}

// mask32 isolates the low 32 bits of a big.Int.
var mask32 = big.NewInt(0xFFFFFFFF)

// Pack builds a Timelocks value from the seven phase offsets and a
// deployment timestamp, per spec §4.1's pack operation.
func Pack(offsets Offsets, deployedAt uint32) Timelocks {
	v := new(big.Int).Lsh(big.NewInt(int64(deployedAt)), bitsDeployedAt)
	for p := Phase(0); p < numPhases; p++ {
		term := new(big.Int).Lsh(big.NewInt(int64(offsets[p])), uint(phaseBitOffset(p)))
		v.Or(v, term)
	}
	return Timelocks{v: v}
}

// Unpack recovers the seven phase offsets and deployment timestamp packed
// into t. Unpack(Pack(offsets, ts)) == (offsets, ts) for all valid inputs
// (spec §8 round-trip law).
func (t Timelocks) Unpack() (Offsets, uint32) {
	var out Offsets
	for p := Phase(0); p < numPhases; p++ {
		word := new(big.Int).Rsh(t.v, uint(phaseBitOffset(p)))
		word.And(word, mask32)
		out[p] = uint32(word.Uint64())
	}
	deployedAt := new(big.Int).Rsh(t.v, bitsDeployedAt)
	deployedAt.And(deployedAt, mask32)
	return out, uint32(deployedAt.Uint64())
}

// WithDeployedAt clears the top 32 bits of t and sets them to ts, per
// spec §4.1. Used by the Factory when stamping an escrow at creation.
func (t Timelocks) WithDeployedAt(ts uint32) Timelocks {
	cleared := new(big.Int).AndNot(t.v, new(big.Int).Lsh(mask32, bitsDeployedAt))
	cleared.Or(cleared, new(big.Int).Lsh(big.NewInt(int64(ts)), bitsDeployedAt))
	return Timelocks{v: cleared}
}

// DeployedAt returns the deployment timestamp stamped into t.
func (t Timelocks) DeployedAt() uint32 {
	_, ts := t.Unpack()
	return ts
}

// Offset returns the raw relative offset for phase.
func (t Timelocks) Offset(phase Phase) (uint32, error) {
	if phase < 0 || int(phase) >= numPhases {
		return 0, swaperrors.ErrPhaseOutOfRange
	}
	offsets, _ := t.Unpack()
	return offsets[phase], nil
}

// PhaseDeadline returns deployed_at + offset(phase), per spec §4.1.
func (t Timelocks) PhaseDeadline(phase Phase) (uint64, error) {
	offset, err := t.Offset(phase)
	if err != nil {
		return 0, err
	}
	return uint64(t.DeployedAt()) + uint64(offset), nil
}

// RescueDeadline returns deployed_at + rescueDelay, per spec §4.1.
func (t Timelocks) RescueDeadline(rescueDelay uint32) uint64 {
	return uint64(t.DeployedAt()) + uint64(rescueDelay)
}

// After reports whether now has reached deadline: current_time >= deadline.
func After(now, deadline uint64) bool {
	return now >= deadline
}

// Before reports whether now has not yet reached deadline: current_time <
// deadline.
func Before(now, deadline uint64) bool {
	return now < deadline
}

// Bytes32 renders t as a big-endian 32-byte array, the canonical
// serialization used when t is hashed as part of Immutables (spec §6.2).
func (t Timelocks) Bytes32() [32]byte {
	var out [32]byte
	b := t.v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// FromBytes32 parses the canonical 32-byte serialization back into a
// Timelocks value.
func FromBytes32(b [32]byte) Timelocks {
	return Timelocks{v: new(big.Int).SetBytes(b[:])}
}

// ValidateSrc checks the source-side ordering invariant from spec §3:
// src_withdrawal <= src_public_withdrawal < src_cancellation <=
// src_public_cancellation.
func (t Timelocks) ValidateSrc() bool {
	o, _ := t.Unpack()
	return o[SrcWithdrawal] <= o[SrcPublicWithdrawal] &&
		o[SrcPublicWithdrawal] < o[SrcCancellation] &&
		o[SrcCancellation] <= o[SrcPublicCancellation]
}

// ValidateDst checks the destination-side ordering invariant from spec §3:
// dst_withdrawal <= dst_public_withdrawal < dst_cancellation, and that the
// destination side closes strictly before the source side's cancellation
// window opens (dst_cancellation < src_cancellation).
func (t Timelocks) ValidateDst() bool {
	o, _ := t.Unpack()
	return o[DstWithdrawal] <= o[DstPublicWithdrawal] &&
		o[DstPublicWithdrawal] < o[DstCancellation] &&
		o[DstCancellation] < o[SrcCancellation]
}
