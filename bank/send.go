package bank

import (
	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/coin"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/tx"
)

// SendPath is the operation name of a funds transfer.
const SendPath = "bank/send"

func init() {
	tx.RegisterMsg(SendMsg{}, SendPath)
}

// SendMsg moves funds from one account to another. Used as the intended
// action of a group account it expresses the convenience transfer: sending
// is then subject to the usual propose and confirm flow and adds no new
// protocol behavior.
type SendMsg struct {
	Source      quorumsig.Address `json:"source"`
	Destination quorumsig.Address `json:"destination"`
	Amount      coin.Coin         `json:"amount"`
	Memo        string            `json:"memo,omitempty"`
}

var _ tx.Msg = (*SendMsg)(nil)

// Path fulfills tx.Msg interface to allow routing
func (SendMsg) Path() string {
	return SendPath
}

// Validate makes sure that this is sensible. Note that the balance check is
// the ledger's decision, not ours.
func (s SendMsg) Validate() error {
	if err := s.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := s.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if err := s.Amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if !s.Amount.IsPositive() {
		return errors.Wrap(errors.ErrInvalidArg, "non-positive amount")
	}
	return nil
}
