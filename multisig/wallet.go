package multisig

import (
	"context"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/bank"
	"github.com/thresh-one/quorumsig/client"
	"github.com/thresh-one/quorumsig/coin"
	"github.com/thresh-one/quorumsig/crypto"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/tx"
)

// Backend bundles what a wallet talks through: the ledger connection and,
// when the holder can sign, a signer. A signer-less backend yields a
// read-only wallet that can query but rejects every submission with
// ErrNotInitialized.
type Backend struct {
	Ledger Ledger
	Signer crypto.Signer
}

// SignerBackend returns a backend that can both query and sign.
func SignerBackend(signer crypto.Signer, ledger Ledger) Backend {
	return Backend{Ledger: ledger, Signer: signer}
}

// ProviderBackend returns a query-only backend.
func ProviderBackend(ledger Ledger) Backend {
	return Backend{Ledger: ledger}
}

// Wallet coordinates one member's view of a single group account. It keeps
// a snapshot of the group state, caches the member's personal sequence and
// produces the propose, confirm and policy change submissions.
//
// A wallet never verifies policy: whether the member belongs to the signer
// set, whether the threshold is met and whether the intended action can
// execute are all the ledger's decisions, surfaced through receipts.
//
// Not safe for concurrent use, except for the embedded sequence cache.
type Wallet struct {
	group  quorumsig.Address
	ledger Ledger
	signer crypto.Signer
	seqs   *SequenceCache
	dir    *Directory
	state  *client.AccountState
}

// NewWallet returns a wallet for the group account at the given address.
// No network call is made; attach a snapshot with Refresh or use
// LoadWallet.
func NewWallet(group quorumsig.Address, be Backend) (*Wallet, error) {
	if len(group) == 0 {
		return nil, errors.Wrap(errors.ErrMissingArg, "group address")
	}
	if err := group.Validate(); err != nil {
		return nil, err
	}
	if be.Ledger == nil {
		return nil, errors.Wrap(errors.ErrInvalidArg, "backend without ledger")
	}
	return &Wallet{
		group:  group,
		ledger: be.Ledger,
		signer: be.Signer,
		seqs:   NewSequenceCache(),
		dir:    NewDirectory(be.Ledger),
	}, nil
}

// LoadWallet returns a wallet with a fresh group snapshot attached. It
// fails with ErrNotAvailable when no account exists at the address and with
// ErrUnexpected when the account there is not a group account.
func LoadWallet(ctx context.Context, group quorumsig.Address, be Backend) (*Wallet, error) {
	w, err := NewWallet(group, be)
	if err != nil {
		return nil, err
	}
	if _, err := w.Refresh(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// Address returns the group account address.
func (w *Wallet) Address() quorumsig.Address {
	return w.group
}

// State returns the cached group snapshot, nil when none was fetched yet.
func (w *Wallet) State() *client.AccountState {
	return w.state
}

// AccountNumber returns the group's ledger account number from the cached
// snapshot.
func (w *Wallet) AccountNumber() (int64, error) {
	if w.state == nil {
		return 0, errors.Wrap(errors.ErrNotInitialized, "group account state")
	}
	return w.state.AccountNumber, nil
}

// Refresh replaces the cached snapshot with the ledger's current one.
func (w *Wallet) Refresh(ctx context.Context) (*client.AccountState, error) {
	state, err := w.dir.FetchState(ctx, w.group)
	if err != nil {
		return nil, err
	}
	w.state = state
	return state, nil
}

// Balance returns the group account funds from a fresh snapshot.
func (w *Wallet) Balance(ctx context.Context) ([]coin.Coin, error) {
	state, err := w.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return state.Coins, nil
}

// PendingProposal returns the pending proposal with the given id, or
// ErrNotAvailable when no such proposal is open.
func (w *Wallet) PendingProposal(ctx context.Context, txID int64) (*client.PendingTx, error) {
	return w.ledger.PendingProposal(ctx, w.group, txID)
}

// SubmitResult is the outcome of a submission. Receipt is nil when the
// caller asked for send-only mode. On a ledger rejection the result is
// returned together with the republished typed error, so the caller can
// both test the error kind and inspect the raw receipt.
type SubmitResult struct {
	ID      client.TransactionID
	Receipt *client.Receipt
}

// Propose opens a new proposal for the given intended action. The action is
// signed with the group counter from the cached snapshot (see
// BuildProposal), wrapped into an envelope signed with the member's own
// personal sequence and submitted.
func (w *Wallet) Propose(ctx context.Context, action *tx.InternalTx, opts *Options) (*SubmitResult, error) {
	if w.signer == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "read only wallet")
	}
	if w.state == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "group account state")
	}
	chainID, err := w.ledger.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	signed, err := BuildProposal(w.signer, w.state, chainID, action, opts)
	if err != nil {
		return nil, err
	}
	msg := CreateProposalMsg{
		GroupAddress: w.group,
		Tx:           *signed,
		Sender:       w.signer.PublicKey().Address(),
	}
	return w.submit(ctx, msg, "create proposal", opts)
}

// Confirm adds this member's signature to the pending proposal with the
// given id. The confirmation is signed with the proposal's own id as
// sequence (see BuildConfirmation); a missing proposal fails before any
// submission happens.
func (w *Wallet) Confirm(ctx context.Context, txID int64, opts *Options) (*SubmitResult, error) {
	if w.signer == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "read only wallet")
	}
	if w.state == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "group account state")
	}
	chainID, err := w.ledger.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	sig, err := BuildConfirmation(ctx, w.ledger, w.signer, w.state, chainID, txID, opts)
	if err != nil {
		return nil, err
	}
	msg := ConfirmProposalMsg{
		GroupAddress: w.group,
		TxID:         txID,
		Sender:       w.signer.PublicKey().Address(),
		Signature:    *sig,
	}
	return w.submit(ctx, msg, "confirm proposal", opts)
}

// Transfer proposes moving funds out of the group account. This is plain
// sugar around Propose with a bank send as the intended action.
func (w *Wallet) Transfer(ctx context.Context, dest quorumsig.Address, amount coin.Coin, opts *Options) (*SubmitResult, error) {
	send := bank.SendMsg{
		Source:      w.group,
		Destination: dest,
		Amount:      amount,
		Memo:        opts.memo(),
	}
	if err := send.Validate(); err != nil {
		return nil, err
	}
	fee, err := w.actionFee(ctx, send, opts)
	if err != nil {
		return nil, err
	}
	action := &tx.InternalTx{
		Msgs: []tx.Msg{send},
		Fee:  fee,
		Memo: opts.memo(),
	}
	return w.Propose(ctx, action, opts)
}

// Update submits a policy change for the group account, signed by the
// wallet holder. The ledger accepts it only from the current owner.
func (w *Wallet) Update(ctx context.Context, props AccountProperties, opts *Options) (*SubmitResult, error) {
	if w.signer == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "read only wallet")
	}
	msg := UpdateAccountMsg{
		Owner:        w.signer.PublicKey().Address(),
		GroupAddress: w.group,
		Threshold:    props.Threshold,
		Signers:      props.Signers,
	}
	return w.submit(ctx, msg, "update account", opts)
}

// CreateResult is the outcome of opening a new group account. Wallet is
// ready to use and carries a fresh snapshot; it is nil in send-only mode,
// where only the derived address is reported.
type CreateResult struct {
	ID           client.TransactionID
	Receipt      *client.Receipt
	GroupAddress quorumsig.Address
	Wallet       *Wallet
}

// CreateWallet opens a new group account owned by the given signer and
// returns a wallet bound to it. The group address is derived from the
// owner's identity and the personal sequence right after the creation
// submission, so it is known without querying the new account.
//
// Policy bounds are not checked locally: a threshold larger than the signer
// set or an empty signer set travels to the ledger and comes back as its
// typed rejection.
func CreateWallet(ctx context.Context, ledger Ledger, owner crypto.Signer, props AccountProperties, opts *Options) (*CreateResult, error) {
	if owner == nil {
		return nil, errors.Wrap(errors.ErrNotInitialized, "signer")
	}
	ownerAddr := owner.PublicKey().Address()
	msg := CreateAccountMsg{
		Owner:     ownerAddr,
		Threshold: props.Threshold,
		Signers:   props.Signers,
	}

	seqs := NewSequenceCache()
	id, usedSeq, err := submitMsg(ctx, ledger, seqs, owner, msg, opts)
	if err != nil {
		return nil, err
	}
	group := GroupAddress(ownerAddr, usedSeq+1)
	res := &CreateResult{ID: id, GroupAddress: group}
	if opts.sendOnly() {
		return res, nil
	}

	receipt, err := ledger.WaitForTx(ctx, id, opts.confirmations())
	if err != nil {
		return nil, err
	}
	res.Receipt = receipt
	if rerr := receipt.Err(); rerr != nil {
		return res, errors.Wrapf(rerr, "create account tx %s at height %d", id, receipt.Height)
	}

	w, err := NewWallet(group, SignerBackend(owner, ledger))
	if err != nil {
		return res, err
	}
	w.seqs = seqs
	if !opts.noRefresh() {
		if _, err := w.Refresh(ctx); err != nil {
			return res, err
		}
	}
	res.Wallet = w
	return res, nil
}

// submit wraps an operation into an envelope, signs it with the member's
// personal sequence, broadcasts and optionally waits for inclusion. The
// personal sequence cache is invalidated on every failure past signing.
func (w *Wallet) submit(ctx context.Context, msg tx.Msg, op string, opts *Options) (*SubmitResult, error) {
	id, _, err := submitMsg(ctx, w.ledger, w.seqs, w.signer, msg, opts)
	if err != nil {
		return nil, err
	}
	res := &SubmitResult{ID: id}
	if opts.sendOnly() {
		return res, nil
	}

	receipt, err := w.ledger.WaitForTx(ctx, id, opts.confirmations())
	if err != nil {
		return nil, err
	}
	res.Receipt = receipt
	if rerr := receipt.Err(); rerr != nil {
		return res, errors.Wrapf(rerr, "%s tx %s at height %d", op, id, receipt.Height)
	}

	if !opts.noRefresh() {
		if _, err := w.Refresh(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

// submitMsg is the shared envelope pipeline: resolve the submitter's
// account, consume a personal sequence, sign, broadcast. It reports the
// sequence it signed with. Broadcast rejection invalidates the cached
// sequence before returning.
func submitMsg(ctx context.Context, ledger Ledger, seqs *SequenceCache, signer crypto.Signer, msg tx.Msg, opts *Options) (client.TransactionID, int64, error) {
	if err := msg.Validate(); err != nil {
		return nil, 0, err
	}
	chainID, err := ledger.ChainID(ctx)
	if err != nil {
		return nil, 0, err
	}
	addr := signer.PublicKey().Address()

	acct, err := submitterAccountNumber(ctx, ledger, addr)
	if err != nil {
		return nil, 0, err
	}
	seq, err := seqs.Next(ctx, ledger, addr)
	if err != nil {
		return nil, 0, err
	}

	fee := tx.Fee{}
	if opts != nil && opts.Fee != nil {
		fee = *opts.Fee
	} else {
		fee, err = ledger.EstimateFee(ctx, msg)
		if err != nil {
			seqs.Invalidate(addr)
			return nil, 0, err
		}
	}

	env := tx.Wrap(msg, fee, opts.memo())
	sig, err := tx.SignEnvelope(signer, env, chainID, acct, seq)
	if err != nil {
		seqs.Invalidate(addr)
		return nil, 0, err
	}
	env.Signature = sig

	id, err := ledger.SubmitTx(ctx, env)
	if err != nil {
		seqs.Invalidate(addr)
		return nil, 0, err
	}
	return id, seq, nil
}

// submitterAccountNumber resolves the account number to bind into an
// envelope signature. An identity without an on-chain account yet signs
// with account number zero.
func submitterAccountNumber(ctx context.Context, ledger Ledger, addr quorumsig.Address) (int64, error) {
	state, err := ledger.AccountState(ctx, addr)
	switch {
	case err == nil:
		return state.AccountNumber, nil
	case errors.ErrNotAvailable.Is(err):
		return 0, nil
	default:
		return 0, errors.Wrap(err, "submitter account")
	}
}

// actionFee resolves the fee of an intended action: the caller override if
// set, the ledger estimate otherwise.
func (w *Wallet) actionFee(ctx context.Context, msg tx.Msg, opts *Options) (tx.Fee, error) {
	if opts != nil && opts.Fee != nil {
		return *opts.Fee, nil
	}
	return w.ledger.EstimateFee(ctx, msg)
}
