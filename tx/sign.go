package tx

import (
	"crypto/sha512"
	"encoding/binary"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/crypto"
	"github.com/thresh-one/quorumsig/errors"
)

// signCodeV1 marks the first version of the sign bytes layout.
const signCodeV1 = "qsg1"

/*
BuildSignBytes combines all binding info with the raw payload before signing.

The layout is:

	version | len(chainID) | chainID      | accountNumber     | sequence          | payload
	4bytes  | uint8        | ascii string | int64 (bigendian) | int64 (bigendian) | serialized content

This is then prehashed with sha512 before fed into the public key
signing/verification step, so we have a constant length output regardless of
the payload size.

The account number binds the signature to one ledger account. The sequence
meaning depends on the layer: for an intended action it is the proposal
sequence, for an outer envelope it is the submitter's personal sequence.
*/
func BuildSignBytes(raw []byte, chainID string, accountNumber, seq int64) ([]byte, error) {
	if seq < 0 {
		return nil, errors.Wrap(errors.ErrInvalidArg, "negative sequence")
	}
	if accountNumber < 0 {
		return nil, errors.Wrap(errors.ErrInvalidArg, "negative account number")
	}
	if !quorumsig.IsValidChainID(chainID) {
		return nil, errors.Wrapf(errors.ErrInvalidArg, "chain id: %v", chainID)
	}

	// encode account number and sequence as 8 byte, big-endian
	acct := make([]byte, 8)
	binary.BigEndian.PutUint64(acct, uint64(accountNumber))
	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, uint64(seq))

	// concatenate everything
	output := make([]byte, 0, 4+1+len(chainID)+8+8+len(raw))
	output = append(output, []byte(signCodeV1)...)
	output = append(output, uint8(len(chainID)))
	output = append(output, []byte(chainID)...)
	output = append(output, acct...)
	output = append(output, nonce...)
	output = append(output, raw...)

	hashed := sha512.Sum512(output)
	return hashed[:], nil
}

// buildSignBytesTx calculates the sign bytes for anything signable.
func buildSignBytesTx(tx SignedTx, chainID string, accountNumber, seq int64) ([]byte, error) {
	raw, err := tx.GetSignBytes()
	if err != nil {
		return nil, err
	}
	return BuildSignBytes(raw, chainID, accountNumber, seq)
}

// SignIntent creates a member signature over an intended action. The
// accountNumber is the group account's ledger identifier, never the
// submitter's, and seq is the proposal sequence slot being signed for.
func SignIntent(signer crypto.Signer, intent *InternalTx, chainID string, accountNumber, seq int64) (*StdSignature, error) {
	if signer == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "signer")
	}
	bz, err := buildSignBytesTx(intent, chainID, accountNumber, seq)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(bz)
	if err != nil {
		return nil, errors.Wrap(err, "sign intent")
	}
	return &StdSignature{
		Pubkey:           signer.PublicKey(),
		Signature:        sig,
		ProposalSequence: seq,
	}, nil
}

// VerifyIntent checks a member signature against an intended action. The
// SDK uses this only in tests and fixtures; on the real network the ledger
// is the verifier.
func VerifyIntent(sig *StdSignature, intent *InternalTx, chainID string, accountNumber int64) (bool, error) {
	if sig == nil || sig.Pubkey == nil || sig.Signature == nil {
		return false, nil
	}
	bz, err := buildSignBytesTx(intent, chainID, accountNumber, sig.ProposalSequence)
	if err != nil {
		return false, err
	}
	return sig.Pubkey.Verify(bz, sig.Signature), nil
}

// SignEnvelope creates the submitter signature over an outer envelope. The
// accountNumber and seq belong to the submitting identity's own account;
// this is the personal sequence space, fully independent from any group
// account counter.
func SignEnvelope(signer crypto.Signer, env *Envelope, chainID string, accountNumber, seq int64) (*EnvelopeSignature, error) {
	if signer == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "signer")
	}
	bz, err := buildSignBytesTx(env, chainID, accountNumber, seq)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(bz)
	if err != nil {
		return nil, errors.Wrap(err, "sign envelope")
	}
	return &EnvelopeSignature{
		Pubkey:            signer.PublicKey(),
		Signature:         sig,
		SubmitterSequence: seq,
	}, nil
}

// VerifyEnvelope checks the submitter signature of an envelope.
func VerifyEnvelope(env *Envelope, chainID string, accountNumber int64) (bool, error) {
	sig := env.Signature
	if sig == nil || sig.Pubkey == nil || sig.Signature == nil {
		return false, nil
	}
	bz, err := buildSignBytesTx(env, chainID, accountNumber, sig.SubmitterSequence)
	if err != nil {
		return false, err
	}
	return sig.Pubkey.Verify(bz, sig.Signature), nil
}
