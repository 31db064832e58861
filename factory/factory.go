// Package factory implements the EscrowFactory component from spec §4.5:
// deterministic creation of EscrowSrc/EscrowDst records, deployment-
// timestamp stamping, per-order uniqueness, and statistics. Structured
// the way htlcswitch.Switch is: a Config of injected collaborators and an
// explicit constructor, no package-level singleton (spec §9's "avoid
// global mutable state" design note).
package factory

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lf2netr0/atomicswap-core/cryptoprovider"
	"github.com/lf2netr0/atomicswap-core/escrow"
	"github.com/lf2netr0/atomicswap-core/events"
	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/store"
	"github.com/lf2netr0/atomicswap-core/swaperrors"
	"github.com/lf2netr0/atomicswap-core/walltime"
)

// Config is the Factory's persistent configuration (spec §3 "Factory").
// ALL elements must be set for the Factory to carry out its duties,
// matching the teacher's documentation convention on htlcswitch.Config.
type Config struct {
	// SrcRescueDelay is the seconds-past-deployment rescue offset
	// configured for EscrowSrc records minted by this Factory. The Factory
	// only stores it: Src.RescueFunds takes its rescue delay as an
	// argument, and nothing in this package passes this value there.
	SrcRescueDelay uint32

	// DstRescueDelay is the same, for EscrowDst records.
	DstRescueDelay uint32

	// Admin identifies the Factory's administrative identity. The core
	// does not currently gate any operation on it; it is carried so a
	// host integration can implement admin-only maintenance ops without
	// the Factory needing to change shape later.
	Admin immutables.Address
}

// Stats is a point-in-time snapshot of the Factory's cumulative and active
// counters (spec §3 "Statistics").
type Stats struct {
	CumulativeCreated uint64
	ActiveCount       uint64
	CumulativeVolume  uint64
}

// Factory mints EscrowSrc/EscrowDst records and tracks the
// per-(order_hash, side) uniqueness invariant from spec §4.5.
type Factory struct {
	ID     chainhash.Hash
	cfg    Config
	store  store.ObjectStore
	clock  walltime.Clock
	crypto cryptoprovider.Crypto
	events events.Sink
}

// New constructs a Factory. id should be stable for the lifetime of the
// deployment; it is embedded into every EscrowCreated event so observers
// can tell which Factory minted a given escrow.
func New(id chainhash.Hash, cfg Config, st store.ObjectStore, clock walltime.Clock, crypto cryptoprovider.Crypto, sink events.Sink) *Factory {
	return &Factory{ID: id, cfg: cfg, store: st, clock: clock, crypto: crypto, events: sink}
}

func indexKey(orderHash chainhash.Hash, side escrow.Side) []byte {
	key := make([]byte, 33)
	copy(key, orderHash[:])
	key[32] = byte(side)
	return key
}

const statsKey = "stats"

func encodeStats(s Stats) []byte {
	buf := make([]byte, 24)
	binary.BigEndian.PutUint64(buf[0:8], s.CumulativeCreated)
	binary.BigEndian.PutUint64(buf[8:16], s.ActiveCount)
	binary.BigEndian.PutUint64(buf[16:24], s.CumulativeVolume)
	return buf
}

func decodeStats(b []byte) Stats {
	if len(b) != 24 {
		return Stats{}
	}
	return Stats{
		CumulativeCreated: binary.BigEndian.Uint64(b[0:8]),
		ActiveCount:       binary.BigEndian.Uint64(b[8:16]),
		CumulativeVolume:  binary.BigEndian.Uint64(b[16:24]),
	}
}

// Stats returns the Factory's current statistics snapshot.
func (f *Factory) Stats() (Stats, error) {
	var out Stats
	err := f.store.View(func(tx store.Tx) error {
		b, ok, err := tx.Get(store.BucketFactory, []byte(statsKey))
		if err != nil {
			return err
		}
		if ok {
			out = decodeStats(b)
		}
		return nil
	})
	return out, err
}

// EscrowIDFor returns the escrow identity indexed for (orderHash, side),
// if one exists.
func (f *Factory) EscrowIDFor(orderHash chainhash.Hash, side escrow.Side) (chainhash.Hash, bool, error) {
	var id chainhash.Hash
	var found bool
	err := f.store.View(func(tx store.Tx) error {
		b, ok, err := tx.Get(store.BucketFactory, indexKey(orderHash, side))
		if err != nil || !ok {
			return err
		}
		copy(id[:], b)
		found = true
		return nil
	})
	return id, found, err
}

// CreateSrcEscrow implements spec §4.5's create_src_escrow: rejects if an
// escrow already exists for (order_hash, src), stamps deployed_at,
// asserts the supplied coin amounts match imm, mints the escrow, indexes
// it, bumps statistics, and emits EscrowCreated.
func (f *Factory) CreateSrcEscrow(imm immutables.Immutables, principalCoin, safetyCoin uint64) (chainhash.Hash, error) {
	return f.createEscrow(imm, escrow.Src, principalCoin, safetyCoin)
}

// CreateDstEscrow implements spec §4.5's create_dst_escrow.
func (f *Factory) CreateDstEscrow(imm immutables.Immutables, principalCoin, safetyCoin uint64) (chainhash.Hash, error) {
	return f.createEscrow(imm, escrow.Dst, principalCoin, safetyCoin)
}

func (f *Factory) createEscrow(imm immutables.Immutables, side escrow.Side, principalCoin, safetyCoin uint64) (chainhash.Hash, error) {
	var escrowID chainhash.Hash
	var emitted events.EscrowCreated

	err := f.store.Update(func(tx store.Tx) error {
		var err error
		escrowID, emitted, err = f.createEscrowWithinTx(tx, imm, side, principalCoin, safetyCoin)
		return err
	})
	if err != nil {
		log.Debugf("Factory(%v): create %v escrow for order %v failed: %v",
			f.ID, side, imm.OrderHash, swaperrors.LogWrap(err))
		return chainhash.Hash{}, err
	}

	if f.events != nil {
		f.events.Emit(emitted)
	}
	log.Infof("Factory(%v): minted %v escrow %v for order %v", f.ID, side, escrowID, imm.OrderHash)

	return escrowID, nil
}

// createEscrowWithinTx carries out CreateSrcEscrow/CreateDstEscrow's effects
// against an already-open tx, without opening a transaction of its own or
// emitting the resulting event. It exists so callers that must span the
// mint across a larger atomic boundary — orderpool's claim-and-mint handoff
// and InitiateCrossChainSwap's paired mint — can fold it into one
// store.Update call instead of running it as an independently-committing
// step. The caller is responsible for emitting the returned event only once
// tx has committed.
func (f *Factory) createEscrowWithinTx(tx store.Tx, imm immutables.Immutables, side escrow.Side, principalCoin, safetyCoin uint64) (chainhash.Hash, events.EscrowCreated, error) {
	if principalCoin != imm.Amount || safetyCoin != imm.SafetyDeposit {
		return chainhash.Hash{}, events.EscrowCreated{}, swaperrors.ErrFactoryMismatch
	}

	imm.Timelocks = imm.Timelocks.WithDeployedAt(uint32(f.clock.Now()))
	escrowID := chainhash.Hash(imm.Hash(f.crypto))

	key := indexKey(imm.OrderHash, side)
	if _, ok, err := tx.Get(store.BucketFactory, key); err != nil {
		return chainhash.Hash{}, events.EscrowCreated{}, err
	} else if ok {
		return chainhash.Hash{}, events.EscrowCreated{}, swaperrors.ErrEscrowExists
	}

	rec := &escrow.Record{
		ID:         escrowID,
		Side:       side,
		Immutables: imm,
		State:      escrow.StateFunded,
		Principal:  principalCoin,
		Safety:     safetyCoin,
	}
	b, err := escrow.EncodeBytes(rec)
	if err != nil {
		return chainhash.Hash{}, events.EscrowCreated{}, err
	}
	if err := tx.Put(store.BucketEscrows, escrowID[:], b); err != nil {
		return chainhash.Hash{}, events.EscrowCreated{}, err
	}
	if err := tx.Put(store.BucketFactory, key, escrowID[:]); err != nil {
		return chainhash.Hash{}, events.EscrowCreated{}, err
	}

	statsBytes, ok, err := tx.Get(store.BucketFactory, []byte(statsKey))
	if err != nil {
		return chainhash.Hash{}, events.EscrowCreated{}, err
	}
	stats := Stats{}
	if ok {
		stats = decodeStats(statsBytes)
	}
	stats.CumulativeCreated++
	stats.ActiveCount++
	stats.CumulativeVolume += imm.Amount
	if err := tx.Put(store.BucketFactory, []byte(statsKey), encodeStats(stats)); err != nil {
		return chainhash.Hash{}, events.EscrowCreated{}, err
	}

	emitted := events.EscrowCreated{
		EscrowID:     escrowID,
		FactoryID:    f.ID,
		OrderHash:    imm.OrderHash,
		IsSrc:        side == escrow.Src,
		Maker:        imm.Maker,
		Taker:        imm.Taker,
		TokenAmount:  imm.Amount,
		SafetyAmount: imm.SafetyDeposit,
	}
	return escrowID, emitted, nil
}

// CreateSrcEscrowTx is CreateSrcEscrow scoped to a transaction the caller
// already has open, for handoffs that must commit atomically alongside
// other mutations (see createEscrowWithinTx).
func (f *Factory) CreateSrcEscrowTx(tx store.Tx, imm immutables.Immutables, principalCoin, safetyCoin uint64) (chainhash.Hash, events.EscrowCreated, error) {
	return f.createEscrowWithinTx(tx, imm, escrow.Src, principalCoin, safetyCoin)
}

// CreateDstEscrowTx is the CreateSrcEscrowTx counterpart for the
// destination side.
func (f *Factory) CreateDstEscrowTx(tx store.Tx, imm immutables.Immutables, principalCoin, safetyCoin uint64) (chainhash.Hash, events.EscrowCreated, error) {
	return f.createEscrowWithinTx(tx, imm, escrow.Dst, principalCoin, safetyCoin)
}

// Escrow returns the persisted Record for escrowID, if one exists. Exposed
// for callers (tests, host integrations reconciling a completed swap) that
// need to read an escrow's current state without reaching into the
// ObjectStore directly.
func (f *Factory) Escrow(escrowID chainhash.Hash) (*escrow.Record, bool, error) {
	var rec *escrow.Record
	err := f.store.View(func(tx store.Tx) error {
		b, ok, err := tx.Get(store.BucketEscrows, escrowID[:])
		if err != nil || !ok {
			return err
		}
		rec, err = escrow.DecodeBytes(b)
		return err
	})
	return rec, rec != nil, err
}

// InitiateCrossChainSwap composes CreateSrcEscrow and CreateDstEscrow in
// one call, additionally asserting cross-chain compatibility (spec
// §4.5's initiate_cross_chain_swap). Both creations run inside a single
// store.Update, so either both escrows, their index entries and the
// statistics bump commit together, or none of them does.
func (f *Factory) InitiateCrossChainSwap(srcImm, dstImm immutables.Immutables, srcPrincipal, srcSafety, dstPrincipal, dstSafety uint64) (srcID, dstID chainhash.Hash, err error) {
	if !immutables.VerifyCrossChainCompatibility(srcImm, dstImm) {
		return chainhash.Hash{}, chainhash.Hash{}, swaperrors.ErrFactoryMismatch
	}

	var srcEvent, dstEvent events.EscrowCreated
	err = f.store.Update(func(tx store.Tx) error {
		var err error
		srcID, srcEvent, err = f.createEscrowWithinTx(tx, srcImm, escrow.Src, srcPrincipal, srcSafety)
		if err != nil {
			return err
		}
		dstID, dstEvent, err = f.createEscrowWithinTx(tx, dstImm, escrow.Dst, dstPrincipal, dstSafety)
		return err
	})
	if err != nil {
		return chainhash.Hash{}, chainhash.Hash{}, err
	}

	f.events.Emit(srcEvent)
	f.events.Emit(dstEvent)
	f.events.Emit(events.CrossChainSwapInitiated{
		SrcEscrowID:    srcID,
		DstEscrowID:    dstID,
		OrderHash:      srcImm.OrderHash,
		Maker:          srcImm.Maker,
		Taker:          srcImm.Taker,
		SrcTokenAmount: srcImm.Amount,
		DstTokenAmount: dstImm.Amount,
	})

	return srcID, dstID, nil
}

// ReleaseEscrowReference unindexes (orderHash, side) once its escrow has
// reached a terminal state, and decrements ActiveCount. Host integrations
// call it after observing a terminal Withdraw/Cancel/PublicCancel; no
// other package in this module calls it. It is not part of
// the ledger-facing surface a wallet UI would call (spec §4.5's
// remove_escrow_reference is documented as "package-internal").
func (f *Factory) ReleaseEscrowReference(orderHash chainhash.Hash, side escrow.Side) error {
	return f.store.Update(func(tx store.Tx) error {
		key := indexKey(orderHash, side)
		if _, ok, err := tx.Get(store.BucketFactory, key); err != nil {
			return err
		} else if !ok {
			return nil
		}
		if err := tx.Delete(store.BucketFactory, key); err != nil {
			return err
		}

		statsBytes, ok, err := tx.Get(store.BucketFactory, []byte(statsKey))
		if err != nil {
			return err
		}
		if ok {
			stats := decodeStats(statsBytes)
			if stats.ActiveCount > 0 {
				stats.ActiveCount--
			}
			if err := tx.Put(store.BucketFactory, []byte(statsKey), encodeStats(stats)); err != nil {
				return err
			}
		}
		return nil
	})
}
