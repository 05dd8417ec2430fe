package multisig

import (
	"github.com/thresh-one/quorumsig/client"
	"github.com/thresh-one/quorumsig/crypto"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/tx"
)

// BuildProposal turns an intended action into the member-signed form a new
// proposal is opened with. The signature binds the proposer to
//
//   - the group's account number, never the proposer's own, and
//   - the group counter as the proposal sequence (unless overridden).
//
// Any signatures already attached to the action are dropped before signing:
// a proposal always carries exactly the proposer's signature.
func BuildProposal(signer crypto.Signer, state *client.AccountState, chainID string, action *tx.InternalTx, opts *Options) (*tx.InternalTx, error) {
	if signer == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "signer")
	}
	if state == nil || state.Multisig == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "group account state")
	}
	if action == nil {
		return nil, errors.Wrap(errors.ErrMissingArg, "intended action")
	}
	pub := signer.PublicKey()
	if pub == nil || len(pub.Ed25519) == 0 {
		return nil, errors.Wrap(errors.ErrMissingArg, "signer address")
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}

	seq := opts.sequenceOr(state.Multisig.Counter)
	acct := opts.accountNumberOr(state.AccountNumber)

	intent := action.WithoutSignatures()
	sig, err := tx.SignIntent(signer, &intent, chainID, acct, seq)
	if err != nil {
		return nil, err
	}
	intent.Signatures = []tx.StdSignature{*sig}
	return &intent, nil
}
