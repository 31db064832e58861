package escrow

import (
	"github.com/lf2netr0/atomicswap-core/events"
	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/swaperrors"
	"github.com/lf2netr0/atomicswap-core/timelock"
)

// Src implements the source-side escrow transitions from spec §4.3.
type Src struct {
	Kit
}

func (s Src) now() uint64 { return s.Clock.Now() }

// Withdraw pays the principal to the taker and the safety deposit to the
// caller (== taker), gated on the [src_withdrawal, src_cancellation)
// window and a matching secret.
func (s Src) Withdraw(rec *Record, caller immutables.Address, secret []byte) ([]Payout, events.Event, error) {
	return s.withdraw(rec, caller, secret, rec.Immutables.Taker, false)
}

// WithdrawTo is Withdraw but pays the principal to an arbitrary target
// instead of the taker.
func (s Src) WithdrawTo(rec *Record, caller immutables.Address, secret []byte, target immutables.Address) ([]Payout, events.Event, error) {
	return s.withdraw(rec, caller, secret, target, false)
}

// PublicWithdraw is Withdraw but callable by anyone once the later
// [src_public_withdrawal, src_cancellation) window opens, paying the
// safety deposit to whoever calls it as an execution incentive.
func (s Src) PublicWithdraw(rec *Record, caller immutables.Address, secret []byte) ([]Payout, events.Event, error) {
	return s.withdraw(rec, caller, secret, rec.Immutables.Taker, true)
}

// PublicWithdrawTo is PublicWithdraw but pays the principal to an
// arbitrary target.
func (s Src) PublicWithdrawTo(rec *Record, caller immutables.Address, secret []byte, target immutables.Address) ([]Payout, events.Event, error) {
	return s.withdraw(rec, caller, secret, target, true)
}

func (s Src) withdraw(rec *Record, caller immutables.Address, secret []byte, target immutables.Address, public bool) ([]Payout, events.Event, error) {
	if rec.State != StateFunded {
		return nil, nil, swaperrors.ErrInvalidTime
	}

	imm := rec.Immutables
	lo, err := imm.Timelocks.PhaseDeadline(timelock.SrcWithdrawal)
	if err != nil {
		return nil, nil, err
	}
	if public {
		lo, err = imm.Timelocks.PhaseDeadline(timelock.SrcPublicWithdrawal)
		if err != nil {
			return nil, nil, err
		}
	}
	hi, err := imm.Timelocks.PhaseDeadline(timelock.SrcCancellation)
	if err != nil {
		return nil, nil, err
	}

	if !public {
		if err := assertCallerIs(caller, imm.Taker); err != nil {
			return nil, nil, err
		}
	}
	if err := assertWindow(s.now(), lo, hi); err != nil {
		return nil, nil, err
	}
	if err := assertSecretMatches(s.Crypto, secret, imm); err != nil {
		return nil, nil, err
	}

	payouts := []Payout{
		{Recipient: target, Amount: rec.Principal},
		{Recipient: caller, Amount: rec.Safety, IsSafety: true},
	}
	rec.Principal = 0
	rec.Safety = 0
	rec.State = StateWithdrawn

	log.Infof("EscrowSrc(%v): withdrawn to %x, public=%v", rec.ID, target, public)

	return payouts, events.Withdrawal{EscrowID: rec.ID, Secret: secret}, nil
}

// Cancel returns the principal and safety deposit to the maker, callable
// only by the maker once src_cancellation has elapsed.
func (s Src) Cancel(rec *Record, caller immutables.Address) ([]Payout, events.Event, error) {
	return s.cancel(rec, caller, false)
}

// PublicCancel is Cancel but callable by anyone once
// src_public_cancellation has elapsed, paying the safety deposit to
// whoever calls it.
func (s Src) PublicCancel(rec *Record, caller immutables.Address) ([]Payout, events.Event, error) {
	return s.cancel(rec, caller, true)
}

func (s Src) cancel(rec *Record, caller immutables.Address, public bool) ([]Payout, events.Event, error) {
	if rec.State != StateFunded {
		return nil, nil, swaperrors.ErrInvalidTime
	}

	imm := rec.Immutables
	phase := timelock.SrcCancellation
	if public {
		phase = timelock.SrcPublicCancellation
	}
	deadline, err := imm.Timelocks.PhaseDeadline(phase)
	if err != nil {
		return nil, nil, err
	}

	if !public {
		if err := assertCallerIs(caller, imm.Maker); err != nil {
			return nil, nil, err
		}
	}
	if err := assertAfter(s.now(), deadline); err != nil {
		return nil, nil, err
	}

	payouts := []Payout{
		{Recipient: imm.Maker, Amount: rec.Principal},
		{Recipient: caller, Amount: rec.Safety, IsSafety: true},
	}
	rec.Principal = 0
	rec.Safety = 0
	rec.State = StateCancelled

	log.Infof("EscrowSrc(%v): cancelled, public=%v", rec.ID, public)

	return payouts, events.EscrowCancelled{EscrowID: rec.ID}, nil
}

// RescueFunds pays up to amount of either the principal balance, or the
// safety-deposit balance (if token equals NativeAssetSentinel), to
// caller, once rescueDelay seconds past deployment have elapsed.
// Non-terminal: it may be called multiple times against whatever balance
// remains (spec §4.3). Only the rescue deadline is checked: nothing here
// compares rescueDelay with the phase offsets, so a delay shorter than
// them lets rescue run while a withdrawal or cancellation is still open.
func (s Src) RescueFunds(rec *Record, caller immutables.Address, token immutables.Address, amount uint64, rescueDelay uint32) ([]Payout, events.Event, error) {
	return rescueFunds(s.Kit, rec, caller, token, amount, rescueDelay)
}
