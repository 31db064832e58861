package escrow

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/lf2netr0/atomicswap-core/cryptoprovider"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	crypto := cryptoprovider.Default{}
	imm, _ := scenarioImmutables(crypto)
	rec := newSrcRecord(imm)
	rec.State = StateWithdrawn
	rec.Principal = 0
	rec.Safety = 0

	b, err := EncodeBytes(rec)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}

	got, err := DecodeBytes(b)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}

	if got.ID != rec.ID || got.Side != rec.Side || got.State != rec.State {
		t.Fatalf("round trip mismatch:\ngot:  %s\nwant: %s", spew.Sdump(got), spew.Sdump(rec))
	}
	if !got.Immutables.Equal(rec.Immutables) {
		t.Fatalf("immutables round trip mismatch:\ngot:  %s\nwant: %s", spew.Sdump(got.Immutables), spew.Sdump(rec.Immutables))
	}
}
