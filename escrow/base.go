// Package escrow implements the BaseEscrow predicate primitives and the
// EscrowSrc/EscrowDst state machines from spec §4.2–§4.4: the core of the
// protocol's fund-safety guarantee. Modeled the way contractcourt shapes a
// ContractResolver — a shared predicate/state kit embedded into two
// concrete flavors that diverge only on recipient addressing.
package escrow

import (
	"github.com/lf2netr0/atomicswap-core/cryptoprovider"
	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/swaperrors"
	"github.com/lf2netr0/atomicswap-core/timelock"
)

// assertCallerIs fails with InvalidCaller unless caller == expected.
func assertCallerIs(caller, expected immutables.Address) error {
	if caller != expected {
		return swaperrors.ErrInvalidCaller
	}
	return nil
}

// assertSecretMatches recomputes Keccak-256(secret) and compares it,
// constant-time, against imm.Hashlock. Every withdraw path must call this
// before transferring any balance (spec §4.3).
func assertSecretMatches(crypto cryptoprovider.Crypto, secret []byte, imm immutables.Immutables) error {
	got := crypto.Keccak256(secret)
	if !cryptoprovider.ConstantTimeEqual(got, [32]byte(imm.Hashlock)) {
		return swaperrors.ErrInvalidSecret
	}
	return nil
}

// assertAfter fails with InvalidTime unless now >= deadline.
func assertAfter(now, deadline uint64) error {
	if !timelock.After(now, deadline) {
		return swaperrors.ErrInvalidTime
	}
	return nil
}

// assertBefore fails with InvalidTime unless now < deadline.
func assertBefore(now, deadline uint64) error {
	if !timelock.Before(now, deadline) {
		return swaperrors.ErrInvalidTime
	}
	return nil
}

// assertWindow fails with InvalidTime unless lo <= now < hi.
func assertWindow(now, lo, hi uint64) error {
	if err := assertAfter(now, lo); err != nil {
		return err
	}
	return assertBefore(now, hi)
}

// HashImmutables computes the escrow-binding identity for imm — an alias
// over immutables.Immutables.Hash kept here so escrow callers don't need
// to import the immutables package just to bind an object to its
// parameters (spec §4.2).
func HashImmutables(crypto cryptoprovider.Crypto, imm immutables.Immutables) [32]byte {
	return [32]byte(imm.Hash(crypto))
}
