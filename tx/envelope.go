package tx

import (
	"github.com/thresh-one/quorumsig/crypto"
	"github.com/thresh-one/quorumsig/errors"
)

// EnvelopeSignature is the submitting identity's signature over an outer
// envelope. The sequence recorded here is the submitter's own personal
// sequence, a space fully independent from any proposal sequence. Keeping
// the two apart in the type system is what lets many signers with unrelated
// transaction histories co-sign one proposal.
type EnvelopeSignature struct {
	Pubkey            *crypto.PublicKey `json:"pub_key"`
	Signature         *crypto.Signature `json:"signature"`
	SubmitterSequence int64             `json:"submitter_sequence"`
}

// Envelope is the outer submission wrapper: an ordinary ledger transaction
// from the submitting identity that carries a group account operation. It is
// a different data type than InternalTx on purpose, so the two sequence
// spaces can never be conflated.
type Envelope struct {
	Msg       Msg                `json:"msg"`
	Fee       Fee                `json:"fee"`
	Memo      string             `json:"memo"`
	Signature *EnvelopeSignature `json:"signature"`
}

var _ SignedTx = (*Envelope)(nil)

// Wrap builds an unsigned outer envelope around an operation payload. It is
// a pure function: no sequence or signature decisions are made here.
func Wrap(msg Msg, fee Fee, memo string) *Envelope {
	return &Envelope{
		Msg:  msg,
		Fee:  fee,
		Memo: memo,
	}
}

// Validate performs a local sanity check of the envelope.
func (e *Envelope) Validate() error {
	if e.Msg == nil {
		return errors.Wrap(errors.ErrMissingArg, "no message")
	}
	return e.Msg.Validate()
}

// GetSignBytes returns the canonical signable representation of the
// envelope, with the submitter signature stripped.
func (e Envelope) GetSignBytes() ([]byte, error) {
	e.Signature = nil
	bz, err := MarshalJSON(e)
	if err != nil {
		return nil, errors.Wrap(err, "marshal envelope")
	}
	return bz, nil
}

// Marshal serializes the signed envelope for broadcast.
func (e *Envelope) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(e)
}

// ParseEnvelope decodes a broadcast envelope. This is what a ledger node
// does on arrival; the SDK uses it in fixtures and for debugging.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := cdc.UnmarshalBinaryLengthPrefixed(raw, &env); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidArg, "cannot parse envelope")
	}
	return &env, nil
}
