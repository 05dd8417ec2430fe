package client

import (
	cmn "github.com/tendermint/tendermint/libs/common"
	tmtypes "github.com/tendermint/tendermint/types"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/coin"
	"github.com/thresh-one/quorumsig/crypto"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/tx"
)

// TransactionID is the hash used to identify the transaction
type TransactionID = cmn.HexBytes

// Header is a tendermint block header
type Header = tmtypes.Header

// Receipt is the result of a transaction that made it into a block. A zero
// code means the ledger executed it successfully; any other code carries the
// ledger's typed rejection.
type Receipt struct {
	ID     TransactionID
	Height int64
	Code   uint32
	Log    string
}

// Err returns the ledger rejection as a typed error, or nil on success.
func (r *Receipt) Err() error {
	return errors.ABCIError(r.Code, r.Log)
}

// AccountState is the ledger snapshot of a single account. For a group
// account the Multisig section is present and the account has no public
// key of its own.
type AccountState struct {
	Address       quorumsig.Address `json:"address"`
	PublicKey     *crypto.PublicKey `json:"public_key,omitempty"`
	AccountNumber int64             `json:"account_number"`
	Sequence      int64             `json:"sequence"`
	Coins         []coin.Coin       `json:"coins"`
	Multisig      *MultisigState    `json:"multisig,omitempty"`
}

// MultisigState is the group account section of an account snapshot. The
// counter and the pending proposal set are mutated exclusively by the
// ledger; this SDK only reads them.
type MultisigState struct {
	Owner      quorumsig.Address   `json:"owner"`
	Threshold  int64               `json:"threshold"`
	Signers    []quorumsig.Address `json:"signers"`
	Counter    int64               `json:"counter"`
	PendingIDs []int64             `json:"pending_ids"`
}

// HasSigner returns true if the given identity belongs to the signer set.
func (m *MultisigState) HasSigner(addr quorumsig.Address) bool {
	for _, s := range m.Signers {
		if s.Equals(addr) {
			return true
		}
	}
	return false
}

// PendingTx is a proposal awaiting threshold confirmations. TxID equals the
// group counter value at proposal acceptance time and stays stable for the
// proposal's lifetime. Collected member signatures travel inside
// Tx.Signatures.
type PendingTx struct {
	TxID int64         `json:"tx_id"`
	Tx   tx.InternalTx `json:"tx"`
}

// pendingQuery is the wire form of a pending proposal lookup.
type pendingQuery struct {
	Address quorumsig.Address `json:"address"`
	TxID    int64             `json:"tx_id"`
}

// Status is the current status of the node we connect to.
// Latest block height is a useful info
type Status struct {
	Height     int64
	CatchingUp bool
}

type resultOrError struct {
	result *Receipt
	err    error
}
