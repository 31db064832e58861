package escrow

import (
	"github.com/lf2netr0/atomicswap-core/events"
	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/swaperrors"
	"github.com/lf2netr0/atomicswap-core/timelock"
)

// Dst implements the destination-side escrow transitions from spec §4.4.
// It shares BaseEscrow's predicates with Src but diverges on recipient
// addressing: withdrawal pays the maker (the party expecting funds on
// this side), cancellation returns funds to the taker (the party who
// funded this side), and there is no public_cancel phase.
type Dst struct {
	Kit
}

func (d Dst) now() uint64 { return d.Clock.Now() }

// Withdraw pays the principal to the maker and the safety deposit to the
// caller (== taker), gated on the [dst_withdrawal, dst_cancellation)
// window and a matching secret.
func (d Dst) Withdraw(rec *Record, caller immutables.Address, secret []byte) ([]Payout, events.Event, error) {
	return d.withdraw(rec, caller, secret, false)
}

// PublicWithdraw is Withdraw but callable by anyone once the later
// [dst_public_withdrawal, dst_cancellation) window opens, paying the
// safety deposit to whoever calls it as an execution incentive.
func (d Dst) PublicWithdraw(rec *Record, caller immutables.Address, secret []byte) ([]Payout, events.Event, error) {
	return d.withdraw(rec, caller, secret, true)
}

func (d Dst) withdraw(rec *Record, caller immutables.Address, secret []byte, public bool) ([]Payout, events.Event, error) {
	if rec.State != StateFunded {
		return nil, nil, swaperrors.ErrInvalidTime
	}

	imm := rec.Immutables
	loPhase := timelock.DstWithdrawal
	if public {
		loPhase = timelock.DstPublicWithdrawal
	}
	lo, err := imm.Timelocks.PhaseDeadline(loPhase)
	if err != nil {
		return nil, nil, err
	}
	hi, err := imm.Timelocks.PhaseDeadline(timelock.DstCancellation)
	if err != nil {
		return nil, nil, err
	}

	if !public {
		if err := assertCallerIs(caller, imm.Taker); err != nil {
			return nil, nil, err
		}
	}
	if err := assertWindow(d.now(), lo, hi); err != nil {
		return nil, nil, err
	}
	if err := assertSecretMatches(d.Crypto, secret, imm); err != nil {
		return nil, nil, err
	}

	payouts := []Payout{
		{Recipient: imm.Maker, Amount: rec.Principal},
		{Recipient: caller, Amount: rec.Safety, IsSafety: true},
	}
	rec.Principal = 0
	rec.Safety = 0
	rec.State = StateWithdrawn

	return payouts, events.Withdrawal{EscrowID: rec.ID, Secret: secret}, nil
}

// Cancel returns the principal to the taker (who funded this side) and
// the safety deposit to the caller, callable only by the maker once
// dst_cancellation has elapsed. There is no public_cancel on the
// destination side (spec §4.4, §9 open question): the dst-side funder is
// the resolver, who already has the strongest incentive to cancel, so no
// third-party incentive path is provided here.
func (d Dst) Cancel(rec *Record, caller immutables.Address) ([]Payout, events.Event, error) {
	if rec.State != StateFunded {
		return nil, nil, swaperrors.ErrInvalidTime
	}

	imm := rec.Immutables
	deadline, err := imm.Timelocks.PhaseDeadline(timelock.DstCancellation)
	if err != nil {
		return nil, nil, err
	}

	if err := assertCallerIs(caller, imm.Maker); err != nil {
		return nil, nil, err
	}
	if err := assertAfter(d.now(), deadline); err != nil {
		return nil, nil, err
	}

	payouts := []Payout{
		{Recipient: imm.Taker, Amount: rec.Principal},
		{Recipient: caller, Amount: rec.Safety, IsSafety: true},
	}
	rec.Principal = 0
	rec.Safety = 0
	rec.State = StateCancelled

	return payouts, events.EscrowCancelled{EscrowID: rec.ID}, nil
}

// RescueFunds is the same operation as Src.RescueFunds (spec §4.3/§4.4
// share one rescue_funds definition).
func (d Dst) RescueFunds(rec *Record, caller immutables.Address, token immutables.Address, amount uint64, rescueDelay uint32) ([]Payout, events.Event, error) {
	return rescueFunds(d.Kit, rec, caller, token, amount, rescueDelay)
}
