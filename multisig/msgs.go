package multisig

import (
	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/tx"
)

// Operation names of the group account requests. They are part of the
// ledger contract and must never change for a deployed network.
const (
	CreateAccountPath   = "multisig/create-account"
	UpdateAccountPath   = "multisig/update-account"
	CreateProposalPath  = "multisig/create-proposal"
	ConfirmProposalPath = "multisig/confirm-proposal"
)

func init() {
	tx.RegisterMsg(CreateAccountMsg{}, CreateAccountPath)
	tx.RegisterMsg(UpdateAccountMsg{}, UpdateAccountPath)
	tx.RegisterMsg(CreateProposalMsg{}, CreateProposalPath)
	tx.RegisterMsg(ConfirmProposalMsg{}, ConfirmProposalPath)
}

// AccountProperties describe the signing policy of a group account.
type AccountProperties struct {
	Threshold int64               `json:"threshold"`
	Signers   []quorumsig.Address `json:"signers"`
}

// CreateAccountMsg asks the ledger to open a new group account owned by the
// sender.
type CreateAccountMsg struct {
	Owner     quorumsig.Address   `json:"owner"`
	Threshold int64               `json:"threshold"`
	Signers   []quorumsig.Address `json:"signers"`
}

var _ tx.Msg = (*CreateAccountMsg)(nil)

// Path fulfills tx.Msg interface to allow routing
func (CreateAccountMsg) Path() string {
	return CreateAccountPath
}

// Validate checks only that the listed addresses are well formed. Threshold
// bounds and signer count are deliberately NOT checked here: the ledger is
// authoritative for those invariants and its policy may evolve, so we
// submit and republish its verdict instead of guessing.
func (c CreateAccountMsg) Validate() error {
	if err := c.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	for i, s := range c.Signers {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "signer %d", i)
		}
	}
	return nil
}

// UpdateAccountMsg replaces the signing policy of an existing group
// account. Only the current owner's signature makes it acceptable.
type UpdateAccountMsg struct {
	Owner        quorumsig.Address   `json:"owner"`
	GroupAddress quorumsig.Address   `json:"group_address"`
	Threshold    int64               `json:"threshold"`
	Signers      []quorumsig.Address `json:"signers"`
}

var _ tx.Msg = (*UpdateAccountMsg)(nil)

// Path fulfills tx.Msg interface to allow routing
func (UpdateAccountMsg) Path() string {
	return UpdateAccountPath
}

// Validate checks address form only; policy invariants are the ledger's.
func (u UpdateAccountMsg) Validate() error {
	if err := u.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if err := u.GroupAddress.Validate(); err != nil {
		return errors.Wrap(err, "group address")
	}
	for i, s := range u.Signers {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "signer %d", i)
		}
	}
	return nil
}

// CreateProposalMsg opens a new proposal slot on a group account. Tx is the
// member-signed intended action; its single signature is bound to the group
// counter value the proposal is created with.
type CreateProposalMsg struct {
	GroupAddress quorumsig.Address `json:"group_address"`
	Tx           tx.InternalTx     `json:"tx"`
	Sender       quorumsig.Address `json:"sender"`
}

var _ tx.Msg = (*CreateProposalMsg)(nil)

// Path fulfills tx.Msg interface to allow routing
func (CreateProposalMsg) Path() string {
	return CreateProposalPath
}

func (c CreateProposalMsg) Validate() error {
	if err := c.GroupAddress.Validate(); err != nil {
		return errors.Wrap(err, "group address")
	}
	if err := c.Sender.Validate(); err != nil {
		return errors.Wrap(err, "sender")
	}
	if err := c.Tx.Validate(); err != nil {
		return errors.Wrap(err, "tx")
	}
	if len(c.Tx.Signatures) != 1 {
		return errors.Wrap(errors.ErrInvalidArg, "proposal carries exactly one signature")
	}
	return nil
}

// ConfirmProposalMsg adds one more member signature to a pending proposal.
// It never carries more than one signature; merging with previously
// collected ones is the ledger's job.
type ConfirmProposalMsg struct {
	GroupAddress quorumsig.Address `json:"group_address"`
	TxID         int64             `json:"tx_id"`
	Sender       quorumsig.Address `json:"sender"`
	Signature    tx.StdSignature   `json:"signature"`
}

var _ tx.Msg = (*ConfirmProposalMsg)(nil)

// Path fulfills tx.Msg interface to allow routing
func (ConfirmProposalMsg) Path() string {
	return ConfirmProposalPath
}

func (c ConfirmProposalMsg) Validate() error {
	if err := c.GroupAddress.Validate(); err != nil {
		return errors.Wrap(err, "group address")
	}
	if err := c.Sender.Validate(); err != nil {
		return errors.Wrap(err, "sender")
	}
	if c.TxID < 0 {
		return errors.Wrap(errors.ErrInvalidArg, "negative tx id")
	}
	if c.Signature.Signature == nil || c.Signature.Pubkey == nil {
		return errors.Wrap(errors.ErrMissingArg, "signature")
	}
	return nil
}
