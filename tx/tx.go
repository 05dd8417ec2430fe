package tx

import (
	"github.com/thresh-one/quorumsig/coin"
	"github.com/thresh-one/quorumsig/crypto"
	"github.com/thresh-one/quorumsig/errors"
)

// Msg is a single operation payload. Implementations are registered with
// RegisterMsg so they can travel as tagged JSON.
type Msg interface {
	// Path returns the operation name this payload is routed under.
	Path() string
	// Validate performs a local sanity check of the payload content.
	// Ledger invariants are never checked here.
	Validate() error
}

// Fee is the transaction fee attached to an intended action or to an outer
// envelope.
type Fee struct {
	Amount []coin.Coin `json:"amount"`
	Gas    int64       `json:"gas"`
}

// Equals returns true if both fees carry the identical amounts and gas.
func (f Fee) Equals(o Fee) bool {
	if f.Gas != o.Gas || len(f.Amount) != len(o.Amount) {
		return false
	}
	for i, c := range f.Amount {
		if !c.Equals(o.Amount[i]) {
			return false
		}
	}
	return true
}

// StdSignature is one member's signature over an intended action. The
// sequence recorded here is the proposal sequence: the group account counter
// value the proposal was created with, reused by every confirmation of that
// proposal. It is never the signing identity's personal sequence.
type StdSignature struct {
	Pubkey           *crypto.PublicKey `json:"pub_key"`
	Signature        *crypto.Signature `json:"signature"`
	ProposalSequence int64             `json:"proposal_sequence"`
}

// SignedTx is anything that can produce its signable representation.
type SignedTx interface {
	GetSignBytes() ([]byte, error)
}

// InternalTx is the intended action of a group account: what the group wants
// to execute once enough members confirmed. It accumulates member
// signatures on the ledger side; this SDK only ever appends its own.
//
// There is deliberately no transaction hash field here. A transport level
// hash is not part of the signable payload.
type InternalTx struct {
	Msgs       []Msg          `json:"msg"`
	Fee        Fee            `json:"fee"`
	Memo       string         `json:"memo"`
	Signatures []StdSignature `json:"signatures"`
}

var _ SignedTx = (*InternalTx)(nil)

// Validate performs a local sanity check of the payload content.
func (tx *InternalTx) Validate() error {
	if len(tx.Msgs) == 0 {
		return errors.Wrap(errors.ErrMissingArg, "no messages")
	}
	for i, msg := range tx.Msgs {
		if err := msg.Validate(); err != nil {
			return errors.Wrapf(err, "message %d", i)
		}
	}
	return nil
}

// GetSignBytes returns the canonical signable representation: the tagged
// JSON encoding with the signatures stripped. Both the proposer and every
// confirmer must sign byte-identical content, so any collected signatures
// are never part of it.
func (tx InternalTx) GetSignBytes() ([]byte, error) {
	tx.Signatures = nil
	bz, err := MarshalJSON(tx)
	if err != nil {
		return nil, errors.Wrap(err, "marshal intent")
	}
	return bz, nil
}

// WithoutSignatures returns a copy of the intended action with all collected
// signatures dropped. This is what a confirmation re-signs.
func (tx InternalTx) WithoutSignatures() InternalTx {
	tx.Signatures = nil
	return tx
}

// Equals reports whether two intended actions carry byte-identical signable
// content. Collected signatures are excluded from the comparison.
func (tx InternalTx) Equals(o InternalTx) (bool, error) {
	a, err := tx.GetSignBytes()
	if err != nil {
		return false, err
	}
	b, err := o.GetSignBytes()
	if err != nil {
		return false, err
	}
	return string(a) == string(b), nil
}
