package escrow

import (
	"github.com/lf2netr0/atomicswap-core/events"
	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/swaperrors"
)

// rescueFunds implements the rescue_funds operation shared verbatim by
// EscrowSrc and EscrowDst (spec §4.3/§4.4): splits up to amount of either
// the principal balance or the safety-deposit balance (if token equals
// NativeAssetSentinel) to caller, once rescueDelay seconds past
// deployment have elapsed. Unlike the other transitions this is
// non-terminal — the record's State is left unchanged so it can be called
// again against whatever balance remains.
func rescueFunds(k Kit, rec *Record, caller, token immutables.Address, amount uint64, rescueDelay uint32) ([]Payout, events.Event, error) {
	deadline := rec.Immutables.Timelocks.RescueDeadline(rescueDelay)
	if k.Clock.Now() < deadline {
		return nil, nil, swaperrors.ErrRescueTooEarly
	}

	fromSafety := token == NativeAssetSentinel

	var available *uint64
	if fromSafety {
		available = &rec.Safety
	} else {
		available = &rec.Principal
	}

	drain := amount
	if drain > *available {
		drain = *available
	}
	*available -= drain

	payout := Payout{Recipient: caller, Amount: drain, IsSafety: fromSafety}
	return []Payout{payout}, events.FundsRescued{EscrowID: rec.ID, Token: token, Amount: drain}, nil
}
