package orderpool

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lf2netr0/atomicswap-core/cryptoprovider"
	"github.com/lf2netr0/atomicswap-core/events"
	"github.com/lf2netr0/atomicswap-core/factory"
	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/store"
	"github.com/lf2netr0/atomicswap-core/swaperrors"
	"github.com/lf2netr0/atomicswap-core/walltime"
)

// Config carries every collaborator the Pool needs. Modeled on
// htlcswitch.Config's documented convention: every field below MUST be
// set before the Config is passed to New.
type Config struct {
	Store   store.ObjectStore
	Clock   walltime.Clock
	Crypto  cryptoprovider.Crypto
	Events  events.Sink
	Factory *factory.Factory
}

// Validate reports whether cfg is fully populated.
func (cfg Config) Validate() error {
	if cfg.Store == nil {
		return fmt.Errorf("orderpool: Config.Store must be set")
	}
	if cfg.Clock == nil {
		return fmt.Errorf("orderpool: Config.Clock must be set")
	}
	if cfg.Crypto == nil {
		return fmt.Errorf("orderpool: Config.Crypto must be set")
	}
	if cfg.Events == nil {
		return fmt.Errorf("orderpool: Config.Events must be set")
	}
	if cfg.Factory == nil {
		return fmt.Errorf("orderpool: Config.Factory must be set")
	}
	return nil
}

// Stats is a point-in-time snapshot of the Pool's cumulative counters
// (spec §3 "Statistics").
type Stats struct {
	CumulativeCreated uint64
	ActiveCount       uint64
	CompletedCount    uint64
	CancelledCount    uint64
	CumulativeVolume  uint64
}

// Pool implements the OrderPool component from spec §4.6.
type Pool struct {
	cfg Config
}

// New constructs a Pool. Returns an error if cfg is incomplete.
func New(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pool{cfg: cfg}, nil
}

const statsKey = "stats"

func encodeStats(s Stats) []byte {
	buf := make([]byte, 40)
	putU64 := func(off int, v uint64) { endian.PutUint64(buf[off:off+8], v) }
	putU64(0, s.CumulativeCreated)
	putU64(8, s.ActiveCount)
	putU64(16, s.CompletedCount)
	putU64(24, s.CancelledCount)
	putU64(32, s.CumulativeVolume)
	return buf
}

func decodeStats(b []byte) Stats {
	if len(b) != 40 {
		return Stats{}
	}
	return Stats{
		CumulativeCreated: endian.Uint64(b[0:8]),
		ActiveCount:       endian.Uint64(b[8:16]),
		CompletedCount:    endian.Uint64(b[16:24]),
		CancelledCount:    endian.Uint64(b[24:32]),
		CumulativeVolume:  endian.Uint64(b[32:40]),
	}
}

// Stats returns the pool's current statistics snapshot.
func (p *Pool) Stats() (Stats, error) {
	var out Stats
	err := p.cfg.Store.View(func(tx store.Tx) error {
		b, ok, err := tx.Get(store.BucketOrders, []byte(statsKey))
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

func bumpStats(tx store.Tx, fn func(*Stats)) error {
	b, ok, err := tx.Get(store.BucketOrders, []byte(statsKey))
	if err != nil {
		return err
	}
	s := Stats{}
	if ok {
		s = decodeStats(b)
	}
	fn(&s)
	return tx.Put(store.BucketOrders, []byte(statsKey), encodeStats(s))
}

// Get returns the pending order for orderHash, if any.
func (p *Pool) Get(orderHash chainhash.Hash) (*PendingOrder, bool, error) {
	var out *PendingOrder
	err := p.cfg.Store.View(func(tx store.Tx) error {
		b, ok, err := tx.Get(store.BucketOrders, orderHash[:])
		if err != nil || !ok {
			return err
		}
		out, err = DecodeBytes(b)
		return err
	})
	return out, out != nil, err
}

// CreateOrder implements spec §4.6's create_order: recomputes order_hash
// from tmpl and asserts it matches the caller-supplied value, stores the
// PendingOrder, bumps stats, and emits OrderCreated.
func (p *Pool) CreateOrder(orderHash chainhash.Hash, tmpl OrderImmutablesTemplate, expiry, createdAt uint64, poolID string) error {
	return p.createOrder(orderHash, tmpl, expiry, createdAt, poolID)
}

// CreateFusionOrder is CreateOrder extended with spec §4.6's optional
// maker-signature check: when makerSignature is non-empty it must verify
// against orderHash under makerPubKey or the order is rejected before ever
// reaching the pool. Everything else is shared with CreateOrder, including
// the AuctionSalt derived via cryptoprovider.DeriveAuctionSalt for a
// non-empty DutchAuctionParams payload; auction curves are accepted only
// as that opaque extension field and never executed.
func (p *Pool) CreateFusionOrder(orderHash chainhash.Hash, tmpl OrderImmutablesTemplate, expiry, createdAt uint64, poolID string, makerSignature, makerPubKey []byte) error {
	if len(makerSignature) > 0 {
		if !p.cfg.Crypto.VerifySignature([32]byte(orderHash), makerSignature, makerPubKey) {
			return swaperrors.ErrInvalidSignature
		}
	}
	return p.createOrder(orderHash, tmpl, expiry, createdAt, poolID)
}

func (p *Pool) createOrder(orderHash chainhash.Hash, tmpl OrderImmutablesTemplate, expiry, createdAt uint64, poolID string) error {
	computed := ComputeOrderHash(tmpl, p.cfg.Crypto)
	if computed != orderHash {
		return swaperrors.ErrHashMismatch
	}

	var auctionSalt chainhash.Hash
	if len(tmpl.DutchAuctionParams) > 0 {
		salt, err := cryptoprovider.DeriveAuctionSalt(tmpl.DutchAuctionParams)
		if err != nil {
			return err
		}
		auctionSalt = chainhash.Hash(salt)
	}

	order := &PendingOrder{
		OrderHash:     orderHash,
		Maker:         tmpl.Maker,
		TokenBalance:  tmpl.MakingAmount,
		SafetyBalance: tmpl.SrcSafetyDeposit,
		Expiry:        expiry,
		Status:        StatusActive,
		CreatedAt:     createdAt,
		Template:      tmpl,
		AuctionSalt:   auctionSalt,
	}

	var emitted events.OrderCreated

	err := p.cfg.Store.Update(func(tx store.Tx) error {
		if _, ok, err := tx.Get(store.BucketOrders, orderHash[:]); err != nil {
			return err
		} else if ok {
			return swaperrors.ErrOrderAlreadyExists
		}

		b, err := EncodeBytes(order)
		if err != nil {
			return err
		}
		if err := tx.Put(store.BucketOrders, orderHash[:], b); err != nil {
			return err
		}

		if err := bumpStats(tx, func(s *Stats) {
			s.CumulativeCreated++
			s.ActiveCount++
			s.CumulativeVolume += tmpl.MakingAmount
		}); err != nil {
			return err
		}

		emitted = events.OrderCreated{
			OrderHash: orderHash,
			Maker:     tmpl.Maker,
			Token:     tmpl.MakerAsset,
			Amount:    tmpl.MakingAmount,
			Expiry:    expiry,
			PoolID:    poolID,
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.cfg.Events.Emit(emitted)
	log.Infof("Pool: created order %v for maker %x, amount=%d", orderHash, tmpl.Maker, tmpl.MakingAmount)
	return nil
}

// CancelOrder implements spec §4.6's cancel_order: authenticates
// caller == maker, requires Active status, removes the entry, and emits
// OrderCancelled. The returned amount, like OrderCancelled.RefundedAmount,
// is the order's principal balance only; the safety balance is not
// included in it or reported anywhere else.
func (p *Pool) CancelOrder(orderHash chainhash.Hash, caller immutables.Address) (uint64, error) {
	var refunded uint64
	var emitted events.OrderCancelled

	err := p.cfg.Store.Update(func(tx store.Tx) error {
		b, ok, err := tx.Get(store.BucketOrders, orderHash[:])
		if err != nil {
			return err
		}
		if !ok {
			return swaperrors.ErrOrderNotFound
		}
		order, err := DecodeBytes(b)
		if err != nil {
			return err
		}
		if order.Maker != caller {
			return swaperrors.ErrInvalidCaller
		}
		if order.Status != StatusActive {
			return swaperrors.ErrOrderCancelled
		}

		refunded = order.TokenBalance
		if err := tx.Delete(store.BucketOrders, orderHash[:]); err != nil {
			return err
		}
		if err := bumpStats(tx, func(s *Stats) {
			if s.ActiveCount > 0 {
				s.ActiveCount--
			}
			s.CancelledCount++
		}); err != nil {
			return err
		}

		emitted = events.OrderCancelled{
			OrderHash:      orderHash,
			Maker:          order.Maker,
			RefundedAmount: refunded,
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	p.cfg.Events.Emit(emitted)
	log.Infof("Pool: cancelled order %v, refunded %d", orderHash, refunded)
	return refunded, nil
}

// ClaimAndCreateEscrow implements spec §4.6's claim_and_create_escrow: it
// removes the PendingOrder (failing with OrderNotFound otherwise), builds
// the full source-side Immutables with taker set to resolver, and mints an
// EscrowSrc through Factory — all inside one ObjectStore.Update call, so
// either both the order removal and the escrow mint commit or neither does
// (spec §4.6 "Ordering", property P1). The Get below is only a cheap
// early-exit before opening the transaction; the authoritative checks run
// again inside it against the same snapshot the mutation commits from.
func (p *Pool) ClaimAndCreateEscrow(orderHash chainhash.Hash, resolver immutables.Address) (chainhash.Hash, error) {
	order, found, err := p.Get(orderHash)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if !found {
		return chainhash.Hash{}, swaperrors.ErrOrderNotFound
	}
	if order.Status != StatusActive {
		return chainhash.Hash{}, swaperrors.ErrOrderAlreadyTaken
	}
	if p.cfg.Clock.Now() >= order.Expiry {
		return chainhash.Hash{}, swaperrors.ErrOrderExpired
	}

	var escrowID chainhash.Hash
	var escrowEvent events.EscrowCreated
	var current *PendingOrder

	err = p.cfg.Store.Update(func(tx store.Tx) error {
		b, ok, err := tx.Get(store.BucketOrders, orderHash[:])
		if err != nil {
			return err
		}
		if !ok {
			return swaperrors.ErrOrderNotFound
		}
		current, err = DecodeBytes(b)
		if err != nil {
			return err
		}
		if current.Status != StatusActive {
			return swaperrors.ErrOrderAlreadyTaken
		}
		if p.cfg.Clock.Now() >= current.Expiry {
			return swaperrors.ErrOrderExpired
		}

		if err := tx.Delete(store.BucketOrders, orderHash[:]); err != nil {
			return err
		}
		if err := bumpStats(tx, func(s *Stats) {
			if s.ActiveCount > 0 {
				s.ActiveCount--
			}
			s.CompletedCount++
		}); err != nil {
			return err
		}

		imm := immutables.Immutables{
			OrderHash:     orderHash,
			Hashlock:      current.Template.Hashlock,
			Maker:         current.Template.Maker,
			Taker:         resolver,
			Token:         current.Template.MakerAsset,
			Amount:        current.TokenBalance,
			SafetyDeposit: current.SafetyBalance,
			Timelocks:     current.Template.Timelocks,
			Salt:          current.Template.Salt,
			Nonce:         current.Template.Nonce,
		}

		escrowID, escrowEvent, err = p.cfg.Factory.CreateSrcEscrowTx(tx, imm, current.TokenBalance, current.SafetyBalance)
		return err
	})
	if err != nil {
		return chainhash.Hash{}, err
	}

	if p.cfg.Events != nil {
		p.cfg.Events.Emit(escrowEvent)
	}
	p.cfg.Events.Emit(events.OrderTaken{
		OrderHash:   orderHash,
		Maker:       current.Maker,
		Taker:       resolver,
		Resolver:    resolver,
		SrcEscrowID: escrowID,
	})
	log.Infof("Pool: order %v claimed by %x, minted src escrow %v", orderHash, resolver, escrowID)

	return escrowID, nil
}

// Expire implements spec §4.6's optional housekeeping sweep: anyone may
// call this on an Active order whose expiry has elapsed, refunding the
// maker and transitioning to Cancelled.
func (p *Pool) Expire(orderHash chainhash.Hash) error {
	var emitted events.OrderCancelled

	err := p.cfg.Store.Update(func(tx store.Tx) error {
		b, ok, err := tx.Get(store.BucketOrders, orderHash[:])
		if err != nil {
			return err
		}
		if !ok {
			return swaperrors.ErrOrderNotFound
		}
		order, err := DecodeBytes(b)
		if err != nil {
			return err
		}
		if order.Status != StatusActive {
			return swaperrors.ErrOrderAlreadyTaken
		}
		if p.cfg.Clock.Now() < order.Expiry {
			return swaperrors.ErrOrderNotYetExpired
		}

		if err := tx.Delete(store.BucketOrders, orderHash[:]); err != nil {
			return err
		}
		if err := bumpStats(tx, func(s *Stats) {
			if s.ActiveCount > 0 {
				s.ActiveCount--
			}
			s.CancelledCount++
		}); err != nil {
			return err
		}

		emitted = events.OrderCancelled{
			OrderHash:      orderHash,
			Maker:          order.Maker,
			RefundedAmount: order.TokenBalance,
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.cfg.Events.Emit(emitted)
	return nil
}
