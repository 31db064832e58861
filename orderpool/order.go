// Package orderpool implements the OrderPool component from spec §4.6: a
// registry of maker-funded pending swaps awaiting resolver claim, with an
// atomic claim-and-promote-to-EscrowSrc handoff into the factory package.
package orderpool

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lf2netr0/atomicswap-core/cryptoprovider"
	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/timelock"
)

// Status is a PendingOrder's lifecycle state (spec §3's PendingOrder).
type Status int

const (
	StatusActive Status = iota
	StatusTaken
	StatusCancelled
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusTaken:
		return "Taken"
	case StatusCancelled:
		return "Cancelled"
	case StatusExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// OrderImmutablesTemplate carries every field of the eventual source-side
// Immutables except taker, which is only known at claim time (spec §3).
// AllowPartialFills, AllowMultipleFills, and DutchAuctionParams are carried
// and hashed (the first two) or attached as an opaque extension (the last)
// per spec §6.2 and the Non-goals note that these are accepted but never
// executed.
type OrderImmutablesTemplate struct {
	Hashlock         chainhash.Hash
	Salt             uint64
	Nonce            uint64
	Maker            immutables.Address
	MakerAsset       immutables.Address
	TakerAsset       immutables.Address
	MakingAmount     uint64
	TakingAmount     uint64
	SafetyDeposit    uint64
	SrcChainID       uint64
	DstChainID       uint64
	SrcSafetyDeposit uint64
	DstSafetyDeposit uint64
	Timelocks        timelock.Timelocks

	AllowPartialFills  bool
	AllowMultipleFills bool

	// DutchAuctionParams is an opaque extension payload a maker may attach
	// (spec Non-goal: "Dutch-auction price curves accepted as opaque
	// fields but not executed"). It is never interpreted by this package
	// and is not part of the order_hash preimage defined by spec §6.2.
	DutchAuctionParams []byte
}

// ComputeOrderHash implements spec §6.2's order_hash: Keccak-256 over the
// concatenation, in the exact field order given, of the template's fields.
// Scalars are fixed-width little-endian; addresses are their native
// 32-byte padded form; booleans are a single 0/1 byte.
func ComputeOrderHash(tmpl OrderImmutablesTemplate, crypto cryptoprovider.Crypto) chainhash.Hash {
	var salt, nonce, making, taking, safety, srcChain, dstChain, srcSafety, dstSafety [8]byte
	binary.LittleEndian.PutUint64(salt[:], tmpl.Salt)
	binary.LittleEndian.PutUint64(nonce[:], tmpl.Nonce)
	binary.LittleEndian.PutUint64(making[:], tmpl.MakingAmount)
	binary.LittleEndian.PutUint64(taking[:], tmpl.TakingAmount)
	binary.LittleEndian.PutUint64(safety[:], tmpl.SafetyDeposit)
	binary.LittleEndian.PutUint64(srcChain[:], tmpl.SrcChainID)
	binary.LittleEndian.PutUint64(dstChain[:], tmpl.DstChainID)
	binary.LittleEndian.PutUint64(srcSafety[:], tmpl.SrcSafetyDeposit)
	binary.LittleEndian.PutUint64(dstSafety[:], tmpl.DstSafetyDeposit)
	tlBytes := tmpl.Timelocks.Bytes32()

	boolByte := func(b bool) []byte {
		if b {
			return []byte{1}
		}
		return []byte{0}
	}

	h := crypto.Keccak256(
		tmpl.Hashlock[:],
		salt[:],
		nonce[:],
		tmpl.Maker[:],
		tmpl.MakerAsset[:],
		tmpl.TakerAsset[:],
		making[:],
		taking[:],
		safety[:],
		srcChain[:],
		dstChain[:],
		srcSafety[:],
		dstSafety[:],
		tlBytes[:],
		boolByte(tmpl.AllowPartialFills),
		boolByte(tmpl.AllowMultipleFills),
	)
	return chainhash.Hash(h)
}

// PendingOrder is a maker-funded swap awaiting resolver claim (spec §3).
type PendingOrder struct {
	OrderHash     chainhash.Hash
	Maker         immutables.Address
	TokenBalance  uint64
	SafetyBalance uint64
	Expiry        uint64
	Status        Status
	CreatedAt     uint64
	Template      OrderImmutablesTemplate

	// AuctionSalt is derived from Template.DutchAuctionParams via
	// cryptoprovider.DeriveAuctionSalt when that field is set, and is the
	// zero value otherwise. It is never part of order_hash's preimage.
	// It depends on the blob alone, so two orders carrying identical
	// auction parameters get the same AuctionSalt.
	AuctionSalt chainhash.Hash
}
