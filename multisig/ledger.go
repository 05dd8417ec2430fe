package multisig

import (
	"context"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/client"
	"github.com/thresh-one/quorumsig/tx"
)

// Ledger is the remote node surface the coordination protocol consumes.
// Every authoritative decision (balance sufficiency, signer membership,
// threshold satisfaction, final execution) happens behind this interface;
// the SDK only constructs requests and interprets results.
//
// client.Client satisfies it against a real node. Tests use an in-memory
// implementation.
type Ledger interface {
	ChainID(ctx context.Context) (string, error)
	AccountState(ctx context.Context, addr quorumsig.Address) (*client.AccountState, error)
	NextSequence(ctx context.Context, addr quorumsig.Address) (int64, error)
	PendingProposal(ctx context.Context, addr quorumsig.Address, txID int64) (*client.PendingTx, error)
	EstimateFee(ctx context.Context, msg tx.Msg) (tx.Fee, error)
	SubmitTx(ctx context.Context, env *tx.Envelope) (client.TransactionID, error)
	WaitForTx(ctx context.Context, id client.TransactionID, confirmations int) (*client.Receipt, error)
}

var _ Ledger = (*client.Client)(nil)
