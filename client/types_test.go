package client

import (
	"testing"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/tx"
)

func TestReceiptErr(t *testing.T) {
	ok := Receipt{Code: 0}
	if err := ok.Err(); err != nil {
		t.Fatalf("a zero code is success: %+v", err)
	}

	rejected := Receipt{Code: errors.ErrNotAllowed.ABCICode(), Log: "already confirmed"}
	if err := rejected.Err(); !errors.ErrNotAllowed.Is(err) {
		t.Fatalf("want the registered kind republished, got %+v", err)
	}

	unknown := Receipt{Code: 999, Log: "freeze policy"}
	if err := unknown.Err(); !errors.ErrCall.Is(err) {
		t.Fatalf("want a call exception for an unknown code, got %+v", err)
	}
}

func TestMultisigStateHasSigner(t *testing.T) {
	a := quorumsig.NewAddress([]byte("a"))
	b := quorumsig.NewAddress([]byte("b"))
	c := quorumsig.NewAddress([]byte("c"))

	ms := MultisigState{Signers: []quorumsig.Address{a, b}}
	if !ms.HasSigner(a) || !ms.HasSigner(b) {
		t.Fatal("listed signers must be members")
	}
	if ms.HasSigner(c) {
		t.Fatal("unlisted identity must not be a member")
	}
}

func TestAccountStateRoundTrip(t *testing.T) {
	state := AccountState{
		Address:       quorumsig.NewAddress([]byte("group")),
		AccountNumber: 4,
		Sequence:      9,
		Multisig: &MultisigState{
			Owner:      quorumsig.NewAddress([]byte("owner")),
			Threshold:  2,
			Signers:    []quorumsig.Address{quorumsig.NewAddress([]byte("s1"))},
			Counter:    3,
			PendingIDs: []int64{1, 2},
		},
	}

	raw, err := tx.MarshalJSON(state)
	if err != nil {
		t.Fatalf("marshal: %+v", err)
	}
	var back AccountState
	if err := tx.UnmarshalJSON(raw, &back); err != nil {
		t.Fatalf("unmarshal: %+v", err)
	}
	if !back.Address.Equals(state.Address) || back.Multisig == nil || back.Multisig.Counter != 3 {
		t.Fatalf("state lost in round trip: %+v", back)
	}
}
