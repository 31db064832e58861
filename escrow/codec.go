package escrow

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lf2netr0/atomicswap-core/immutables"
	"github.com/lf2netr0/atomicswap-core/timelock"
)

// endian is the byte order used by every fixed-width field this package
// serializes, matching the convention contractcourt's Encode/Decode pair
// uses for its own ContractResolver persistence format.
var endian = binary.BigEndian

// Encode writes a fixed-width binary encoding of rec to w, suitable for
// storing under store.BucketEscrows keyed by rec.ID.
func Encode(w io.Writer, rec *Record) error {
	if _, err := w.Write(rec.ID[:]); err != nil {
		return err
	}
	if err := binary.Write(w, endian, uint8(rec.Side)); err != nil {
		return err
	}
	if err := encodeImmutables(w, rec.Immutables); err != nil {
		return err
	}
	if err := binary.Write(w, endian, uint8(rec.State)); err != nil {
		return err
	}
	if err := binary.Write(w, endian, rec.Principal); err != nil {
		return err
	}
	return binary.Write(w, endian, rec.Safety)
}

// Decode reads back a Record written by Encode.
func Decode(r io.Reader) (*Record, error) {
	var rec Record

	if _, err := io.ReadFull(r, rec.ID[:]); err != nil {
		return nil, err
	}

	var side uint8
	if err := binary.Read(r, endian, &side); err != nil {
		return nil, err
	}
	rec.Side = Side(side)

	imm, err := decodeImmutables(r)
	if err != nil {
		return nil, err
	}
	rec.Immutables = imm

	var state uint8
	if err := binary.Read(r, endian, &state); err != nil {
		return nil, err
	}
	rec.State = State(state)

	if err := binary.Read(r, endian, &rec.Principal); err != nil {
		return nil, err
	}
	if err := binary.Read(r, endian, &rec.Safety); err != nil {
		return nil, err
	}

	return &rec, nil
}

// EncodeBytes and DecodeBytes are convenience wrappers around Encode/Decode
// for callers (factory, orderpool) that persist through an
// store.ObjectStore's []byte-valued Tx.
func EncodeBytes(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeBytes(b []byte) (*Record, error) {
	return Decode(bytes.NewReader(b))
}

func encodeImmutables(w io.Writer, imm immutables.Immutables) error {
	for _, field := range [][]byte{
		imm.OrderHash[:], imm.Hashlock[:],
		imm.Maker[:], imm.Taker[:], imm.Token[:],
	} {
		if len(field) != 32 {
			return fmt.Errorf("escrow: codec field must be 32 bytes, got %d", len(field))
		}
		if _, err := w.Write(field); err != nil {
			return err
		}
	}
	if err := binary.Write(w, endian, imm.Amount); err != nil {
		return err
	}
	if err := binary.Write(w, endian, imm.SafetyDeposit); err != nil {
		return err
	}
	tl := imm.Timelocks.Bytes32()
	if _, err := w.Write(tl[:]); err != nil {
		return err
	}
	if err := binary.Write(w, endian, imm.Salt); err != nil {
		return err
	}
	return binary.Write(w, endian, imm.Nonce)
}

func decodeImmutables(r io.Reader) (immutables.Immutables, error) {
	var imm immutables.Immutables

	read32 := func(dst *chainhash.Hash) error {
		_, err := io.ReadFull(r, dst[:])
		return err
	}
	readAddr := func(dst *immutables.Address) error {
		_, err := io.ReadFull(r, dst[:])
		return err
	}

	if err := read32(&imm.OrderHash); err != nil {
		return imm, err
	}
	if err := read32(&imm.Hashlock); err != nil {
		return imm, err
	}
	if err := readAddr(&imm.Maker); err != nil {
		return imm, err
	}
	if err := readAddr(&imm.Taker); err != nil {
		return imm, err
	}
	if err := readAddr(&imm.Token); err != nil {
		return imm, err
	}
	if err := binary.Read(r, endian, &imm.Amount); err != nil {
		return imm, err
	}
	if err := binary.Read(r, endian, &imm.SafetyDeposit); err != nil {
		return imm, err
	}

	var tlBytes [32]byte
	if _, err := io.ReadFull(r, tlBytes[:]); err != nil {
		return imm, err
	}
	imm.Timelocks = timelock.FromBytes32(tlBytes)

	if err := binary.Read(r, endian, &imm.Salt); err != nil {
		return imm, err
	}
	if err := binary.Read(r, endian, &imm.Nonce); err != nil {
		return imm, err
	}

	return imm, nil
}
