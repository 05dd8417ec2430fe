package multisig

import (
	"context"

	"github.com/thresh-one/quorumsig/client"
	"github.com/thresh-one/quorumsig/crypto"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/tx"
)

// BuildConfirmation produces one member's confirmation signature for the
// pending proposal identified by txID. The proposal's intended action is
// fetched from the ledger and re-signed verbatim with all previously
// collected signatures stripped, so every confirmer signs byte-identical
// content.
//
// The signature is bound to the group's account number and to txID as the
// proposal sequence. The confirmer's personal sequence plays no role here;
// it only signs the outer envelope later. A caller supplied sequence
// override is ignored on purpose: a confirmation that is not bound to its
// slot is worthless.
//
// When no proposal with txID is pending, the lookup fails with
// ErrMissingArg before any signature is produced.
func BuildConfirmation(ctx context.Context, ledger Ledger, signer crypto.Signer, state *client.AccountState, chainID string, txID int64, opts *Options) (*tx.StdSignature, error) {
	if signer == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "signer")
	}
	if state == nil || state.Multisig == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "group account state")
	}

	pending, err := ledger.PendingProposal(ctx, state.Address, txID)
	if err != nil {
		if errors.ErrNotAvailable.Is(err) {
			return nil, errors.Wrapf(errors.ErrMissingArg, "no pending proposal %d", txID)
		}
		return nil, errors.Wrap(err, "pending proposal")
	}

	acct := opts.accountNumberOr(state.AccountNumber)

	intent := pending.Tx.WithoutSignatures()
	return tx.SignIntent(signer, &intent, chainID, acct, txID)
}
