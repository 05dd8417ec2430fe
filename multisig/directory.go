package multisig

import (
	"context"
	"encoding/binary"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/client"
	"github.com/thresh-one/quorumsig/errors"
)

// GroupAddress derives the address a group account receives when the given
// identity creates it while holding the given personal sequence. The
// derivation is pure, so members can compute the address of a group that
// does not exist yet.
func GroupAddress(creator quorumsig.Address, seq int64) quorumsig.Address {
	data := make([]byte, 0, len(creator)+8)
	data = append(data, creator...)
	data = appendSequence(data, seq)
	return quorumsig.NewCondition("multisig", "seq", data).Address()
}

func appendSequence(data []byte, seq int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(seq))
	return append(data, b[:]...)
}

// Directory resolves group account snapshots from the ledger.
type Directory struct {
	ledger Ledger
}

// NewDirectory returns a Directory reading through the given ledger.
func NewDirectory(ledger Ledger) *Directory {
	return &Directory{ledger: ledger}
}

// FetchState loads the group account state at addr. It fails with
// ErrNotAvailable when no account exists there and with ErrUnexpected when
// the ledger answers with an account that is not a group account or that
// reports a different address than asked for.
func (d *Directory) FetchState(ctx context.Context, addr quorumsig.Address) (*client.AccountState, error) {
	state, err := d.ledger.AccountState(ctx, addr)
	if err != nil {
		return nil, errors.Wrap(err, "group account")
	}
	if !state.Address.Equals(addr) {
		return nil, errors.Wrapf(errors.ErrUnexpected,
			"queried %s but ledger answered for %s", addr, state.Address)
	}
	if state.Multisig == nil {
		return nil, errors.Wrapf(errors.ErrUnexpected, "%s is not a group account", addr)
	}
	return state, nil
}
