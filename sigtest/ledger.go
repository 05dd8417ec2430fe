package sigtest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"sync"

	"github.com/google/btree"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/bank"
	"github.com/thresh-one/quorumsig/client"
	"github.com/thresh-one/quorumsig/coin"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/multisig"
	"github.com/thresh-one/quorumsig/tx"
)

type account struct {
	state   client.AccountState
	pending map[int64]*tx.InternalTx
}

// acctItem orders accounts by address inside the btree.
type acctItem struct {
	key  string
	acct *account
}

func (a acctItem) Less(than btree.Item) bool {
	return a.key < than.(acctItem).key
}

// Ledger is an in-memory node. It accepts envelopes the way a real node
// does: envelope signature and personal sequence checks on arrival, policy
// and execution during delivery, with delivery failures recorded as receipt
// codes rather than returned from SubmitTx.
type Ledger struct {
	mu         sync.Mutex
	chainID    string
	accounts   *btree.BTree
	receipts   map[string]*client.Receipt
	height     int64
	nextAcct   int64
	fee        tx.Fee
	failSubmit error
	seqQueries int
}

var _ multisig.Ledger = (*Ledger)(nil)

// NewLedger returns an empty ledger for the given chain id.
func NewLedger(chainID string) *Ledger {
	return &Ledger{
		chainID:  chainID,
		accounts: btree.New(2),
		receipts: make(map[string]*client.Receipt),
		nextAcct: 1,
	}
}

// FundAccount credits the given address, creating the account if needed.
func (l *Ledger) FundAccount(addr quorumsig.Address, coins ...coin.Coin) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.lookup(addr)
	if a == nil {
		a = l.createAccount(addr)
	}
	for _, c := range coins {
		updated, err := addCoins(a.state.Coins, c)
		if err != nil {
			panic(err)
		}
		a.state.Coins = updated
	}
}

// SetFee fixes the fee reported by EstimateFee.
func (l *Ledger) SetFee(fee tx.Fee) {
	l.mu.Lock()
	l.fee = fee
	l.mu.Unlock()
}

// FailNextSubmit makes the next SubmitTx call fail with the given error
// without touching any state, simulating a broadcast level rejection.
func (l *Ledger) FailNextSubmit(err error) {
	l.mu.Lock()
	l.failSubmit = err
	l.mu.Unlock()
}

// BumpSequence advances an account's personal sequence out of band, as a
// submission from another process would.
func (l *Ledger) BumpSequence(addr quorumsig.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.lookup(addr)
	if a == nil {
		a = l.createAccount(addr)
	}
	a.state.Sequence++
}

// SequenceQueries reports how often NextSequence was asked, so tests can
// observe cache behavior.
func (l *Ledger) SequenceQueries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seqQueries
}

// ChainID implements multisig.Ledger.
func (l *Ledger) ChainID(ctx context.Context) (string, error) {
	return l.chainID, nil
}

// AccountState implements multisig.Ledger.
func (l *Ledger) AccountState(ctx context.Context, addr quorumsig.Address) (*client.AccountState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.lookup(addr)
	if a == nil {
		return nil, errors.Wrapf(errors.ErrNotAvailable, "no account at %s", addr)
	}
	state := copyState(&a.state)
	return state, nil
}

// NextSequence implements multisig.Ledger.
func (l *Ledger) NextSequence(ctx context.Context, addr quorumsig.Address) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seqQueries++
	a := l.lookup(addr)
	if a == nil {
		return 0, nil
	}
	return a.state.Sequence, nil
}

// PendingProposal implements multisig.Ledger.
func (l *Ledger) PendingProposal(ctx context.Context, addr quorumsig.Address, txID int64) (*client.PendingTx, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.lookup(addr)
	if a == nil {
		return nil, errors.Wrapf(errors.ErrNotAvailable, "no account at %s", addr)
	}
	pend, ok := a.pending[txID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotAvailable, "no pending proposal %d", txID)
	}
	cp := *pend
	cp.Signatures = append([]tx.StdSignature(nil), pend.Signatures...)
	return &client.PendingTx{TxID: txID, Tx: cp}, nil
}

// EstimateFee implements multisig.Ledger.
func (l *Ledger) EstimateFee(ctx context.Context, msg tx.Msg) (tx.Fee, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fee, nil
}

// SubmitTx implements multisig.Ledger. An envelope failing the arrival
// checks (malformed content, wrong personal sequence, bad signature) is
// rejected here with an error. An accepted envelope always yields an id and
// a receipt; delivery failures live in the receipt.
func (l *Ledger) SubmitTx(ctx context.Context, env *tx.Envelope) (client.TransactionID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failSubmit != nil {
		err := l.failSubmit
		l.failSubmit = nil
		return nil, err
	}

	if err := env.Validate(); err != nil {
		return nil, err
	}
	sig := env.Signature
	if sig == nil || sig.Pubkey == nil || sig.Signature == nil {
		return nil, errors.Wrap(errors.ErrMissingArg, "unsigned envelope")
	}
	sender := sig.Pubkey.Address()

	var acctNum, seq int64
	sub := l.lookup(sender)
	if sub != nil {
		acctNum = sub.state.AccountNumber
		seq = sub.state.Sequence
	}
	if sig.SubmitterSequence != seq {
		return nil, errors.Wrapf(errors.ErrInvalidArg,
			"sequence mismatch: got %d, want %d", sig.SubmitterSequence, seq)
	}
	ok, err := tx.VerifyEnvelope(env, l.chainID, acctNum)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(errors.ErrInvalidArg, "invalid envelope signature")
	}

	if sub == nil {
		sub = l.createAccount(sender)
	}
	sub.state.Sequence++

	raw, err := env.Marshal()
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(raw)
	id := client.TransactionID(hash[:])

	l.height++
	var code uint32
	var log string
	if derr := l.deliver(env, sender); derr != nil {
		code, log = errors.ABCIInfo(derr, false)
	}
	l.receipts[id.String()] = &client.Receipt{
		ID:     id,
		Height: l.height,
		Code:   code,
		Log:    log,
	}
	return id, nil
}

// WaitForTx implements multisig.Ledger. Execution is synchronous here, so
// the receipt is available right away; extra confirmations just advance the
// height.
func (l *Ledger) WaitForTx(ctx context.Context, id client.TransactionID, confirmations int) (*client.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.receipts[id.String()]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotAvailable, "unknown tx %s", id)
	}
	if confirmations > 1 {
		l.height += int64(confirmations) - 1
	}
	cp := *r
	return &cp, nil
}

func (l *Ledger) deliver(env *tx.Envelope, sender quorumsig.Address) error {
	switch msg := env.Msg.(type) {
	case multisig.CreateAccountMsg:
		return l.deliverCreate(msg, sender)
	case multisig.UpdateAccountMsg:
		return l.deliverUpdate(msg, sender)
	case multisig.CreateProposalMsg:
		return l.deliverPropose(msg, sender)
	case multisig.ConfirmProposalMsg:
		return l.deliverConfirm(msg, sender)
	case bank.SendMsg:
		if !msg.Source.Equals(sender) {
			return errors.Wrap(errors.ErrNotAllowed, "can only spend own funds")
		}
		return l.moveCoins(msg)
	default:
		return errors.Wrapf(errors.ErrInvalidArg, "unknown operation %q", env.Msg.Path())
	}
}

// checkPolicy enforces the group signing policy invariants. A violation is
// the ledger's verdict, reported as an unexpected result so clients
// republish it unchanged.
func checkPolicy(threshold int64, signers []quorumsig.Address) error {
	if len(signers) == 0 {
		return errors.Wrap(errors.ErrUnexpected, "empty signer set")
	}
	if threshold < 1 {
		return errors.Wrapf(errors.ErrUnexpected, "threshold %d below one", threshold)
	}
	if threshold > int64(len(signers)) {
		return errors.Wrapf(errors.ErrUnexpected,
			"threshold %d above signer count %d", threshold, len(signers))
	}
	seen := make(map[string]struct{}, len(signers))
	for _, s := range signers {
		key := s.String()
		if _, ok := seen[key]; ok {
			return errors.Wrapf(errors.ErrUnexpected, "duplicate signer %s", s)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (l *Ledger) deliverCreate(msg multisig.CreateAccountMsg, sender quorumsig.Address) error {
	if !msg.Owner.Equals(sender) {
		return errors.Wrap(errors.ErrNotAllowed, "only the owner may open the account")
	}
	if err := checkPolicy(msg.Threshold, msg.Signers); err != nil {
		return err
	}
	owner := l.lookup(sender)
	group := multisig.GroupAddress(sender, owner.state.Sequence)
	if l.lookup(group) != nil {
		return errors.Wrapf(errors.ErrUnexpected, "account exists at %s", group)
	}
	a := l.createAccount(group)
	a.state.Multisig = &client.MultisigState{
		Owner:     sender,
		Threshold: msg.Threshold,
		Signers:   append([]quorumsig.Address(nil), msg.Signers...),
	}
	return nil
}

func (l *Ledger) deliverUpdate(msg multisig.UpdateAccountMsg, sender quorumsig.Address) error {
	g := l.lookup(msg.GroupAddress)
	if g == nil || g.state.Multisig == nil {
		return errors.Wrapf(errors.ErrUnexpected, "no group account at %s", msg.GroupAddress)
	}
	ms := g.state.Multisig
	if !ms.Owner.Equals(sender) {
		return errors.Wrap(errors.ErrNotAllowed, "only the owner may change the policy")
	}
	if err := checkPolicy(msg.Threshold, msg.Signers); err != nil {
		return err
	}
	ms.Threshold = msg.Threshold
	ms.Signers = append([]quorumsig.Address(nil), msg.Signers...)
	return nil
}

func (l *Ledger) deliverPropose(msg multisig.CreateProposalMsg, sender quorumsig.Address) error {
	g := l.lookup(msg.GroupAddress)
	if g == nil || g.state.Multisig == nil {
		return errors.Wrapf(errors.ErrUnexpected, "no group account at %s", msg.GroupAddress)
	}
	ms := g.state.Multisig
	if !ms.HasSigner(sender) {
		return errors.Wrap(errors.ErrNotAllowed, "sender not in signer set")
	}
	if len(msg.Tx.Signatures) != 1 {
		return errors.Wrap(errors.ErrInvalidArg, "proposal carries exactly one signature")
	}
	sig := msg.Tx.Signatures[0]
	if !sig.Pubkey.Address().Equals(sender) {
		return errors.Wrap(errors.ErrNotAllowed, "proposal signed by someone else")
	}
	if sig.ProposalSequence != ms.Counter {
		return errors.Wrapf(errors.ErrUnexpected,
			"proposal sequence: got %d, want %d", sig.ProposalSequence, ms.Counter)
	}
	intent := msg.Tx.WithoutSignatures()
	ok, err := tx.VerifyIntent(&sig, &intent, l.chainID, g.state.AccountNumber)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrap(errors.ErrInvalidArg, "invalid proposal signature")
	}

	txID := ms.Counter
	ms.Counter++
	stored := msg.Tx
	stored.Signatures = append([]tx.StdSignature(nil), msg.Tx.Signatures...)
	g.pending[txID] = &stored
	ms.PendingIDs = append(ms.PendingIDs, txID)
	return l.maybeExecute(g, txID)
}

func (l *Ledger) deliverConfirm(msg multisig.ConfirmProposalMsg, sender quorumsig.Address) error {
	g := l.lookup(msg.GroupAddress)
	if g == nil || g.state.Multisig == nil {
		return errors.Wrapf(errors.ErrUnexpected, "no group account at %s", msg.GroupAddress)
	}
	ms := g.state.Multisig
	if !ms.HasSigner(sender) {
		return errors.Wrap(errors.ErrNotAllowed, "sender not in signer set")
	}
	pend, ok := g.pending[msg.TxID]
	if !ok {
		return errors.Wrapf(errors.ErrUnexpected, "unknown proposal %d", msg.TxID)
	}
	sig := msg.Signature
	if sig.Pubkey == nil || !sig.Pubkey.Address().Equals(sender) {
		return errors.Wrap(errors.ErrNotAllowed, "confirmation signed by someone else")
	}
	if sig.ProposalSequence != msg.TxID {
		return errors.Wrapf(errors.ErrInvalidArg,
			"confirmation not bound to proposal %d", msg.TxID)
	}
	for _, have := range pend.Signatures {
		if bytes.Equal(have.Pubkey.Ed25519, sig.Pubkey.Ed25519) {
			return errors.Wrap(errors.ErrNotAllowed, "already confirmed")
		}
	}
	intent := pend.WithoutSignatures()
	verified, err := tx.VerifyIntent(&sig, &intent, l.chainID, g.state.AccountNumber)
	if err != nil {
		return err
	}
	if !verified {
		return errors.Wrap(errors.ErrInvalidArg, "invalid confirmation signature")
	}
	pend.Signatures = append(pend.Signatures, sig)
	return l.maybeExecute(g, msg.TxID)
}

// maybeExecute runs the intended action once the threshold is reached. The
// proposal slot is closed either way; an execution failure surfaces through
// the receipt of the submission that tipped the threshold.
func (l *Ledger) maybeExecute(g *account, txID int64) error {
	ms := g.state.Multisig
	pend := g.pending[txID]
	if int64(len(pend.Signatures)) < ms.Threshold {
		return nil
	}
	delete(g.pending, txID)
	for i, id := range ms.PendingIDs {
		if id == txID {
			ms.PendingIDs = append(ms.PendingIDs[:i], ms.PendingIDs[i+1:]...)
			break
		}
	}
	for _, m := range pend.Msgs {
		send, ok := m.(bank.SendMsg)
		if !ok {
			return errors.Wrapf(errors.ErrInvalidArg, "cannot execute %q", m.Path())
		}
		if !send.Source.Equals(g.state.Address) {
			return errors.Wrap(errors.ErrNotAllowed, "group may only spend its own funds")
		}
		if err := l.moveCoins(send); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) moveCoins(msg bank.SendMsg) error {
	src := l.lookup(msg.Source)
	if src == nil {
		return errors.Wrapf(errors.ErrUnexpected, "no account at %s", msg.Source)
	}
	left, err := subCoins(src.state.Coins, msg.Amount)
	if err != nil {
		return err
	}
	dst := l.lookup(msg.Destination)
	if dst == nil {
		dst = l.createAccount(msg.Destination)
	}
	got, err := addCoins(dst.state.Coins, msg.Amount)
	if err != nil {
		return err
	}
	src.state.Coins = left
	dst.state.Coins = got
	return nil
}

func (l *Ledger) lookup(addr quorumsig.Address) *account {
	it := l.accounts.Get(acctItem{key: addr.String()})
	if it == nil {
		return nil
	}
	return it.(acctItem).acct
}

func (l *Ledger) createAccount(addr quorumsig.Address) *account {
	a := &account{
		state: client.AccountState{
			Address:       addr,
			AccountNumber: l.nextAcct,
		},
		pending: make(map[int64]*tx.InternalTx),
	}
	l.nextAcct++
	l.accounts.ReplaceOrInsert(acctItem{key: addr.String(), acct: a})
	return a
}

func copyState(s *client.AccountState) *client.AccountState {
	cp := *s
	cp.Coins = append([]coin.Coin(nil), s.Coins...)
	if s.Multisig != nil {
		ms := *s.Multisig
		ms.Signers = append([]quorumsig.Address(nil), s.Multisig.Signers...)
		ms.PendingIDs = append([]int64(nil), s.Multisig.PendingIDs...)
		cp.Multisig = &ms
	}
	return &cp
}

func subCoins(coins []coin.Coin, c coin.Coin) ([]coin.Coin, error) {
	for i, have := range coins {
		if !have.SameType(c) {
			continue
		}
		if !have.IsGTE(c) {
			return nil, errors.Wrap(errors.ErrInvalidArg, "insufficient funds")
		}
		left, err := have.Subtract(c)
		if err != nil {
			return nil, err
		}
		out := append([]coin.Coin(nil), coins...)
		out[i] = left
		return out, nil
	}
	return nil, errors.Wrap(errors.ErrInvalidArg, "insufficient funds")
}

func addCoins(coins []coin.Coin, c coin.Coin) ([]coin.Coin, error) {
	for i, have := range coins {
		if !have.SameType(c) {
			continue
		}
		sum, err := have.Add(c)
		if err != nil {
			return nil, err
		}
		out := append([]coin.Coin(nil), coins...)
		out[i] = sum
		return out, nil
	}
	return append(append([]coin.Coin(nil), coins...), c), nil
}
