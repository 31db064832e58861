package orderpool

import (
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lf2netr0/atomicswap-core/cryptoprovider"
	"github.com/lf2netr0/atomicswap-core/escrow"
	"github.com/lf2netr0/atomicswap-core/events"
	"github.com/lf2netr0/atomicswap-core/factory"
	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/store"
	"github.com/lf2netr0/atomicswap-core/swaperrors"
	"github.com/lf2netr0/atomicswap-core/timelock"
	"github.com/lf2netr0/atomicswap-core/walltime"
)

func newTestPool(t *testing.T) (*Pool, *events.Recorder, *walltime.Fake, *factory.Factory) {
	t.Helper()
	st := store.NewMemStore()
	clock := walltime.NewFake(1_000)
	rec := &events.Recorder{}
	crypto := cryptoprovider.Default{}
	f := factory.New(chainhash.Hash{0x01}, factory.Config{SrcRescueDelay: 3600, DstRescueDelay: 3600}, st, clock, crypto, rec)

	pool, err := New(Config{Store: st, Clock: clock, Crypto: crypto, Events: rec, Factory: f})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return pool, rec, clock, f
}

func sampleTemplate(crypto cryptoprovider.Crypto, secret []byte) OrderImmutablesTemplate {
	hashlock := crypto.Keccak256(secret)
	tl := timelock.Pack(timelock.Offsets{10, 120, 300, 400, 10, 100, 290}, 0)

	return OrderImmutablesTemplate{
		Hashlock:         chainhash.Hash(hashlock),
		Salt:             7,
		Nonce:            1,
		Maker:            immutables.AddressFromBytes([]byte{0x11}),
		MakerAsset:       immutables.AddressFromBytes([]byte{0x33}),
		TakerAsset:       immutables.AddressFromBytes([]byte{0x44}),
		MakingAmount:     1_000_000_000,
		TakingAmount:     900_000_000,
		SafetyDeposit:    100_000_000,
		SrcChainID:       1,
		DstChainID:       2,
		SrcSafetyDeposit: 100_000_000,
		DstSafetyDeposit: 90_000_000,
		Timelocks:        tl,
		AllowPartialFills:  false,
		AllowMultipleFills: false,
	}
}

// TestHappyPathOrderLifecycle exercises spec §8 scenario 1's pool-level
// steps: create_order then claim_and_create_escrow, end to end against
// the in-memory store and a real Factory.
func TestHappyPathOrderLifecycle(t *testing.T) {
	pool, rec, clock, f := newTestPool(t)
	crypto := cryptoprovider.Default{}
	secret := []byte("s0")
	tmpl := sampleTemplate(crypto, secret)
	orderHash := ComputeOrderHash(tmpl, crypto)

	if err := pool.CreateOrder(orderHash, tmpl, 100_000, 1_000, "pool-A"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	resolver := immutables.AddressFromBytes([]byte{0x22})
	escrowID, err := pool.ClaimAndCreateEscrow(orderHash, resolver)
	if err != nil {
		t.Fatalf("ClaimAndCreateEscrow: %v", err)
	}
	if escrowID == (chainhash.Hash{}) {
		t.Fatalf("expected non-zero escrow id")
	}

	if _, found, _ := pool.Get(orderHash); found {
		t.Fatalf("order must be removed after claim")
	}

	var sawTaken bool
	for _, e := range rec.Events {
		if ev, ok := e.(events.OrderTaken); ok {
			sawTaken = true
			if ev.SrcEscrowID != escrowID || ev.Resolver != resolver {
				t.Fatalf("unexpected OrderTaken contents: %+v", ev)
			}
		}
	}
	if !sawTaken {
		t.Fatalf("expected an OrderTaken event")
	}

	stats, err := pool.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CompletedCount != 1 || stats.ActiveCount != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Carry the same order through to settlement: mint the counterpart
	// destination escrow through the same Factory, then withdraw both
	// legs with the preimage, exercising orderpool -> factory -> escrow
	// end to end (spec §8 scenario 1).
	srcRecord, found, err := f.Escrow(escrowID)
	if err != nil || !found {
		t.Fatalf("Escrow(src): %v (found=%v)", err, found)
	}

	dstImm := srcRecord.Immutables
	dstImm.Maker = resolver
	dstImm.Taker = tmpl.Maker
	dstImm.Token = tmpl.TakerAsset
	dstImm.Amount = tmpl.TakingAmount
	dstImm.SafetyDeposit = tmpl.DstSafetyDeposit

	dstEscrowID, err := f.CreateDstEscrow(dstImm, dstImm.Amount, dstImm.SafetyDeposit)
	if err != nil {
		t.Fatalf("CreateDstEscrow: %v", err)
	}
	dstRecord, found, err := f.Escrow(dstEscrowID)
	if err != nil || !found {
		t.Fatalf("Escrow(dst): %v (found=%v)", err, found)
	}

	clock.Set(1_050) // inside both [src_withdrawal,src_cancellation) and [dst_withdrawal,dst_cancellation)
	kit := escrow.Kit{Clock: clock, Crypto: crypto}

	dstPayouts, _, err := (escrow.Dst{Kit: kit}).Withdraw(dstRecord, dstRecord.Immutables.Taker, secret)
	if err != nil {
		t.Fatalf("Dst.Withdraw: %v", err)
	}
	if len(dstPayouts) != 2 || dstPayouts[0].Recipient != dstRecord.Immutables.Maker || dstPayouts[0].Amount != tmpl.TakingAmount {
		t.Fatalf("unexpected dst payouts: %+v", dstPayouts)
	}
	if dstRecord.State != escrow.StateWithdrawn {
		t.Fatalf("expected dst escrow to be Withdrawn, got %v", dstRecord.State)
	}

	srcPayouts, _, err := (escrow.Src{Kit: kit}).Withdraw(srcRecord, srcRecord.Immutables.Taker, secret)
	if err != nil {
		t.Fatalf("Src.Withdraw: %v", err)
	}
	if len(srcPayouts) != 2 || srcPayouts[0].Recipient != srcRecord.Immutables.Taker || srcPayouts[0].Amount != tmpl.MakingAmount {
		t.Fatalf("unexpected src payouts: %+v", srcPayouts)
	}
	if srcRecord.State != escrow.StateWithdrawn {
		t.Fatalf("expected src escrow to be Withdrawn, got %v", srcRecord.State)
	}
}

// TestCreateFusionOrderVerifiesMakerSignature exercises spec §4.6's
// optional maker-signature check: a signature that doesn't verify against
// the supplied public key must reject the order before it ever reaches
// the pool.
func TestCreateFusionOrderVerifiesMakerSignature(t *testing.T) {
	pool, _, _, _ := newTestPool(t)
	crypto := cryptoprovider.Default{}
	tmpl := sampleTemplate(crypto, []byte("s0"))
	orderHash := ComputeOrderHash(tmpl, crypto)

	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	pubKey := priv.PubKey().SerializeCompressed()
	sig := ecdsa.Sign(priv, orderHash[:]).Serialize()

	if err := pool.CreateFusionOrder(orderHash, tmpl, 100_000, 1_000, "pool-A", sig, pubKey); err != nil {
		t.Fatalf("CreateFusionOrder with a valid signature: %v", err)
	}

	tmpl2 := sampleTemplate(crypto, []byte("s1"))
	orderHash2 := ComputeOrderHash(tmpl2, crypto)
	if err := pool.CreateFusionOrder(orderHash2, tmpl2, 100_000, 1_000, "pool-A", sig, pubKey); !errorsIs(err, swaperrors.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for a signature over a different order, got %v", err)
	}
}

// TestCreateFusionOrderDerivesAuctionSalt exercises the Dutch-auction
// extension blob getting a per-order derived salt, without that blob or
// the salt affecting order_hash.
func TestCreateFusionOrderDerivesAuctionSalt(t *testing.T) {
	pool, _, _, _ := newTestPool(t)
	crypto := cryptoprovider.Default{}
	tmpl := sampleTemplate(crypto, []byte("s0"))
	tmpl.DutchAuctionParams = []byte(`{"startRate":100,"endRate":10,"duration":300}`)
	orderHash := ComputeOrderHash(tmpl, crypto)

	if err := pool.CreateFusionOrder(orderHash, tmpl, 100_000, 1_000, "pool-A", nil, nil); err != nil {
		t.Fatalf("CreateFusionOrder: %v", err)
	}

	order, found, err := pool.Get(orderHash)
	if err != nil || !found {
		t.Fatalf("Get: %v (found=%v)", err, found)
	}
	if order.AuctionSalt == (chainhash.Hash{}) {
		t.Fatalf("expected a non-zero derived auction salt")
	}
}

func TestCreateOrderRejectsHashMismatch(t *testing.T) {
	pool, _, _, _ := newTestPool(t)
	crypto := cryptoprovider.Default{}
	tmpl := sampleTemplate(crypto, []byte("s0"))

	err := pool.CreateOrder(chainhash.Hash{0xff}, tmpl, 100_000, 1_000, "pool-A")
	if !errorsIs(err, swaperrors.ErrHashMismatch) {
		t.Fatalf("expected ErrHashMismatch, got %v", err)
	}
}

// TestMakerCancelsOrder is spec §8 scenario 4.
func TestMakerCancelsOrder(t *testing.T) {
	pool, rec, _, _ := newTestPool(t)
	crypto := cryptoprovider.Default{}
	tmpl := sampleTemplate(crypto, []byte("s0"))
	orderHash := ComputeOrderHash(tmpl, crypto)

	if err := pool.CreateOrder(orderHash, tmpl, 100_000, 1_000, "pool-A"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	refunded, err := pool.CancelOrder(orderHash, tmpl.Maker)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if refunded != tmpl.MakingAmount {
		t.Fatalf("expected refund of %d, got %d", tmpl.MakingAmount, refunded)
	}

	ev, ok := rec.Last().(events.OrderCancelled)
	if !ok || ev.RefundedAmount != tmpl.MakingAmount {
		t.Fatalf("unexpected final event: %+v", rec.Last())
	}
}

func TestCancelOrderRejectsNonMaker(t *testing.T) {
	pool, _, _, _ := newTestPool(t)
	crypto := cryptoprovider.Default{}
	tmpl := sampleTemplate(crypto, []byte("s0"))
	orderHash := ComputeOrderHash(tmpl, crypto)

	if err := pool.CreateOrder(orderHash, tmpl, 100_000, 1_000, "pool-A"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	stranger := immutables.AddressFromBytes([]byte{0x99})
	_, err := pool.CancelOrder(orderHash, stranger)
	if !errorsIs(err, swaperrors.ErrInvalidCaller) {
		t.Fatalf("expected ErrInvalidCaller, got %v", err)
	}
}

// TestContestedClaim is spec §8 scenario 5: two resolvers race to claim
// the same order; exactly one must succeed and the other must observe
// OrderNotFound, never a corrupted or duplicate escrow.
func TestContestedClaim(t *testing.T) {
	pool, _, _, _ := newTestPool(t)
	crypto := cryptoprovider.Default{}
	tmpl := sampleTemplate(crypto, []byte("s0"))
	orderHash := ComputeOrderHash(tmpl, crypto)

	if err := pool.CreateOrder(orderHash, tmpl, 100_000, 1_000, "pool-A"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	resolverA := immutables.AddressFromBytes([]byte{0xa1})
	resolverB := immutables.AddressFromBytes([]byte{0xb2})

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, results[0] = pool.ClaimAndCreateEscrow(orderHash, resolverA)
	}()
	go func() {
		defer wg.Done()
		_, results[1] = pool.ClaimAndCreateEscrow(orderHash, resolverB)
	}()
	wg.Wait()

	successes := 0
	var notFoundSeen bool
	for _, err := range results {
		if err == nil {
			successes++
		} else if errorsIs(err, swaperrors.ErrOrderNotFound) {
			notFoundSeen = true
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one claim to succeed, got %d", successes)
	}
	if !notFoundSeen {
		t.Fatalf("expected the losing claim to observe OrderNotFound")
	}
}

func TestExpireSweepsPastDeadlineOrder(t *testing.T) {
	pool, _, clock, _ := newTestPool(t)
	crypto := cryptoprovider.Default{}
	tmpl := sampleTemplate(crypto, []byte("s0"))
	orderHash := ComputeOrderHash(tmpl, crypto)

	if err := pool.CreateOrder(orderHash, tmpl, 1_500, 1_000, "pool-A"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if err := pool.Expire(orderHash); !errorsIs(err, swaperrors.ErrOrderNotYetExpired) {
		t.Fatalf("expected ErrOrderNotYetExpired before deadline, got %v", err)
	}

	clock.Set(1_600)
	if err := pool.Expire(orderHash); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if _, found, _ := pool.Get(orderHash); found {
		t.Fatalf("expired order must be removed")
	}
}

// TestClaimAndCreateEscrowRollsBackOnMintFailure proves the order removal
// and the escrow mint commit or fail together: a pre-existing escrow
// occupying the (order_hash, src) slot makes the mint fail with
// ErrEscrowExists, and the order must still be there afterward, Active,
// never in the "order gone, no escrow minted" state property P1 forbids.
func TestClaimAndCreateEscrowRollsBackOnMintFailure(t *testing.T) {
	pool, _, _, f := newTestPool(t)
	crypto := cryptoprovider.Default{}
	tmpl := sampleTemplate(crypto, []byte("s0"))
	orderHash := ComputeOrderHash(tmpl, crypto)

	if err := pool.CreateOrder(orderHash, tmpl, 100_000, 1_000, "pool-A"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// Occupy the (order_hash, src) slot ahead of time so the mint inside
	// ClaimAndCreateEscrow's transaction is guaranteed to hit
	// ErrEscrowExists.
	squatter := immutables.Immutables{
		OrderHash:     orderHash,
		Hashlock:      tmpl.Hashlock,
		Maker:         tmpl.Maker,
		Taker:         immutables.AddressFromBytes([]byte{0x77}),
		Token:         tmpl.MakerAsset,
		Amount:        1,
		SafetyDeposit: 1,
		Timelocks:     tmpl.Timelocks,
	}
	if _, err := f.CreateSrcEscrow(squatter, squatter.Amount, squatter.SafetyDeposit); err != nil {
		t.Fatalf("seeding squatter escrow: %v", err)
	}

	resolver := immutables.AddressFromBytes([]byte{0x22})
	_, err := pool.ClaimAndCreateEscrow(orderHash, resolver)
	if !errorsIs(err, swaperrors.ErrEscrowExists) {
		t.Fatalf("expected ErrEscrowExists, got %v", err)
	}

	order, found, err := pool.Get(orderHash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatalf("order must still exist after a failed mint, never gone with no escrow")
	}
	if order.Status != StatusActive {
		t.Fatalf("expected order to remain Active, got %v", order.Status)
	}

	stats, err := pool.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ActiveCount != 1 || stats.CompletedCount != 0 {
		t.Fatalf("expected the failed claim to leave stats untouched, got %+v", stats)
	}
}

func errorsIs(err, target error) bool {
	type isser interface{ Is(error) bool }
	if e, ok := err.(isser); ok {
		return e.Is(target)
	}
	return err == target
}
