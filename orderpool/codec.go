package orderpool

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/timelock"
)

var endian = binary.BigEndian

// EncodeBytes writes a fixed-width (plus one length-prefixed extension
// field) binary encoding of o, suitable for storing under
// store.BucketOrders keyed by o.OrderHash, following the same convention
// the escrow package's codec uses for its own Record type.
func EncodeBytes(o *PendingOrder) ([]byte, error) {
	var buf bytes.Buffer

	if _, err := buf.Write(o.OrderHash[:]); err != nil {
		return nil, err
	}
	if _, err := buf.Write(o.Maker[:]); err != nil {
		return nil, err
	}
	for _, v := range []uint64{o.TokenBalance, o.SafetyBalance, o.Expiry, o.CreatedAt} {
		if err := binary.Write(&buf, endian, v); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, endian, uint8(o.Status)); err != nil {
		return nil, err
	}
	if err := encodeTemplate(&buf, o.Template); err != nil {
		return nil, err
	}
	if _, err := buf.Write(o.AuctionSalt[:]); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeBytes reads back a PendingOrder written by EncodeBytes.
func DecodeBytes(b []byte) (*PendingOrder, error) {
	r := bytes.NewReader(b)
	var o PendingOrder

	if _, err := io.ReadFull(r, o.OrderHash[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, o.Maker[:]); err != nil {
		return nil, err
	}
	for _, dst := range []*uint64{&o.TokenBalance, &o.SafetyBalance, &o.Expiry, &o.CreatedAt} {
		if err := binary.Read(r, endian, dst); err != nil {
			return nil, err
		}
	}
	var status uint8
	if err := binary.Read(r, endian, &status); err != nil {
		return nil, err
	}
	o.Status = Status(status)

	tmpl, err := decodeTemplate(r)
	if err != nil {
		return nil, err
	}
	o.Template = tmpl

	if _, err := io.ReadFull(r, o.AuctionSalt[:]); err != nil {
		return nil, err
	}

	return &o, nil
}

func encodeTemplate(w io.Writer, t OrderImmutablesTemplate) error {
	if _, err := w.Write(t.Hashlock[:]); err != nil {
		return err
	}
	for _, v := range []uint64{
		t.Salt, t.Nonce, t.MakingAmount, t.TakingAmount, t.SafetyDeposit,
		t.SrcChainID, t.DstChainID, t.SrcSafetyDeposit, t.DstSafetyDeposit,
	} {
		if err := binary.Write(w, endian, v); err != nil {
			return err
		}
	}
	for _, field := range [][]byte{t.Maker[:], t.MakerAsset[:], t.TakerAsset[:]} {
		if _, err := w.Write(field); err != nil {
			return err
		}
	}
	tl := t.Timelocks.Bytes32()
	if _, err := w.Write(tl[:]); err != nil {
		return err
	}
	for _, b := range []bool{t.AllowPartialFills, t.AllowMultipleFills} {
		v := uint8(0)
		if b {
			v = 1
		}
		if err := binary.Write(w, endian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, endian, uint32(len(t.DutchAuctionParams))); err != nil {
		return err
	}
	_, err := w.Write(t.DutchAuctionParams)
	return err
}

func decodeTemplate(r io.Reader) (OrderImmutablesTemplate, error) {
	var t OrderImmutablesTemplate

	if _, err := io.ReadFull(r, t.Hashlock[:]); err != nil {
		return t, err
	}
	for _, dst := range []*uint64{
		&t.Salt, &t.Nonce, &t.MakingAmount, &t.TakingAmount, &t.SafetyDeposit,
		&t.SrcChainID, &t.DstChainID, &t.SrcSafetyDeposit, &t.DstSafetyDeposit,
	} {
		if err := binary.Read(r, endian, dst); err != nil {
			return t, err
		}
	}
	for _, dst := range []*immutables.Address{&t.Maker, &t.MakerAsset, &t.TakerAsset} {
		if _, err := io.ReadFull(r, dst[:]); err != nil {
			return t, err
		}
	}
	var tlBytes [32]byte
	if _, err := io.ReadFull(r, tlBytes[:]); err != nil {
		return t, err
	}
	t.Timelocks = timelock.FromBytes32(tlBytes)

	for _, dst := range []*bool{&t.AllowPartialFills, &t.AllowMultipleFills} {
		var v uint8
		if err := binary.Read(r, endian, &v); err != nil {
			return t, err
		}
		*dst = v == 1
	}

	var extLen uint32
	if err := binary.Read(r, endian, &extLen); err != nil {
		return t, err
	}
	if extLen > 0 {
		t.DutchAuctionParams = make([]byte, extLen)
		if _, err := io.ReadFull(r, t.DutchAuctionParams); err != nil {
			return t, err
		}
	}

	return t, nil
}
