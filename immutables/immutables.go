// Package immutables defines the canonical per-swap parameter bundle whose
// hash is an escrow's binding identity (spec §3, §4.2, §6.2).
package immutables

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lf2netr0/atomicswap-core/cryptoprovider"
	"github.com/lf2netr0/atomicswap-core/timelock"
)

// Address is an opaque ledger-native address, padded to 32 bytes for
// hashing the way an EVM integration pads a 20-byte address and a Move
// integration pads its own native object id (spec §3's "native to each
// ledger" note).
type Address [32]byte

// AddressFromBytes right-aligns raw (an arbitrary-length native address)
// into a 32-byte Address, zero-padding on the left — the same convention
// ABI encoders use for sub-32-byte scalars.
func AddressFromBytes(raw []byte) Address {
	var a Address
	if len(raw) > 32 {
		raw = raw[len(raw)-32:]
	}
	copy(a[32-len(raw):], raw)
	return a
}

// Immutables is the value-typed, ledger-agnostic record from spec §3. All
// fields are semantically immutable after creation; Hash is the escrow's
// binding identity.
type Immutables struct {
	OrderHash     chainhash.Hash
	Hashlock      chainhash.Hash
	Maker         Address
	Taker         Address
	Token         Address
	Amount        uint64
	SafetyDeposit uint64
	Timelocks     timelock.Timelocks

	// Salt and Nonce are opaque maker-chosen replay-prevention values fed
	// into order_hash derivation (spec §6.2); the core never interprets
	// them.
	Salt  uint64
	Nonce uint64
}

// Hash computes immutables_hash: Keccak-256 over the concatenation of
// fields in declaration order (spec §6.2), using fixed-width
// little-endian for scalars as the canonical encoding chosen for this
// implementation (spec §4.2 leaves the exact byte layout to the
// implementer, provided it is applied consistently across every ledger).
func (imm Immutables) Hash(c cryptoprovider.Crypto) chainhash.Hash {
	var amountBuf, safetyBuf, saltBuf, nonceBuf [8]byte
	binary.LittleEndian.PutUint64(amountBuf[:], imm.Amount)
	binary.LittleEndian.PutUint64(safetyBuf[:], imm.SafetyDeposit)
	binary.LittleEndian.PutUint64(saltBuf[:], imm.Salt)
	binary.LittleEndian.PutUint64(nonceBuf[:], imm.Nonce)
	tlBytes := imm.Timelocks.Bytes32()

	h := c.Keccak256(
		imm.OrderHash[:],
		imm.Hashlock[:],
		imm.Maker[:],
		imm.Taker[:],
		imm.Token[:],
		amountBuf[:],
		safetyBuf[:],
		tlBytes[:],
		saltBuf[:],
		nonceBuf[:],
	)
	return chainhash.Hash(h)
}

// Equal reports structural equality between two Immutables values — used
// by the round-trip law hash_immutables(imm1) == hash_immutables(imm2) iff
// imm1 == imm2 (spec §8).
func (imm Immutables) Equal(other Immutables) bool {
	return imm.OrderHash == other.OrderHash &&
		imm.Hashlock == other.Hashlock &&
		imm.Maker == other.Maker &&
		imm.Taker == other.Taker &&
		imm.Token == other.Token &&
		imm.Amount == other.Amount &&
		imm.SafetyDeposit == other.SafetyDeposit &&
		imm.Timelocks.Bytes32() == other.Timelocks.Bytes32() &&
		imm.Salt == other.Salt &&
		imm.Nonce == other.Nonce
}

// VerifyCrossChainCompatibility checks the compatibility rule from spec
// §4.2 and §4.5: the two counterpart escrows are compatible only if
// order_hash and hashlock are bitwise equal, and maker/taker are mirrored.
func VerifyCrossChainCompatibility(src, dst Immutables) bool {
	return src.OrderHash == dst.OrderHash &&
		src.Hashlock == dst.Hashlock &&
		src.Maker == dst.Taker &&
		src.Taker == dst.Maker
}
