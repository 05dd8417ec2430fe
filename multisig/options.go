package multisig

import (
	"github.com/thresh-one/quorumsig/tx"
)

// Options carry the caller overrides a submission accepts. The zero value
// means "let the coordinator decide everything": sequences come from the
// group counter or the proposal slot, the fee from the ledger's estimator.
type Options struct {
	// Sequence overrides the proposal sequence of a new proposal. It is
	// ignored by confirmations, which are always bound to the proposal
	// slot they confirm.
	Sequence *int64
	// AccountNumber overrides the group account number bound into the
	// member signature. Useful only for testing against misbehaving
	// ledgers.
	AccountNumber *int64
	// Fee overrides the estimated fee of the outer envelope.
	Fee *tx.Fee
	// Memo is attached to the outer envelope.
	Memo string
	// SendOnly returns right after broadcast acceptance instead of
	// waiting for block inclusion.
	SendOnly bool
	// Confirmations is the inclusion depth to wait for. Values below one
	// mean one.
	Confirmations int
	// NoRefresh skips the group snapshot refresh after a successful
	// submission.
	NoRefresh bool
}

func (o *Options) confirmations() int {
	if o == nil || o.Confirmations < 1 {
		return 1
	}
	return o.Confirmations
}

func (o *Options) memo() string {
	if o == nil {
		return ""
	}
	return o.Memo
}

func (o *Options) sendOnly() bool {
	return o != nil && o.SendOnly
}

func (o *Options) noRefresh() bool {
	return o != nil && o.NoRefresh
}

func (o *Options) sequenceOr(def int64) int64 {
	if o != nil && o.Sequence != nil {
		return *o.Sequence
	}
	return def
}

func (o *Options) accountNumberOr(def int64) int64 {
	if o != nil && o.AccountNumber != nil {
		return *o.AccountNumber
	}
	return def
}
