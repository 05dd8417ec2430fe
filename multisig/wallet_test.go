package multisig_test

import (
	"context"
	"testing"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/coin"
	"github.com/thresh-one/quorumsig/crypto"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/multisig"
	"github.com/thresh-one/quorumsig/sigtest"
)

func createGroup(t *testing.T, ledger *sigtest.Ledger, owner crypto.Signer, threshold int64, signers ...quorumsig.Address) quorumsig.Address {
	t.Helper()
	res, err := multisig.CreateWallet(context.Background(), ledger, owner, multisig.AccountProperties{
		Threshold: threshold,
		Signers:   signers,
	}, nil)
	if err != nil {
		t.Fatalf("create group account: %+v", err)
	}
	return res.GroupAddress
}

func createGroupWallet(t *testing.T, ledger *sigtest.Ledger, owner, member crypto.Signer, threshold int64, signers ...quorumsig.Address) *multisig.Wallet {
	t.Helper()
	group := createGroup(t, ledger, owner, threshold, signers...)
	w, err := multisig.LoadWallet(context.Background(), group, multisig.SignerBackend(member, ledger))
	if err != nil {
		t.Fatalf("load wallet: %+v", err)
	}
	return w
}

func i64(v int64) *int64 {
	return &v
}

func TestCreateWalletDerivesAddress(t *testing.T) {
	ctx := context.Background()
	ledger := sigtest.NewLedger(testChainID)
	owner := sigtest.NewKey()
	s1 := sigtest.NewKey()

	res, err := multisig.CreateWallet(ctx, ledger, owner, multisig.AccountProperties{
		Threshold: 1,
		Signers:   []quorumsig.Address{s1.PublicKey().Address()},
	}, nil)
	if err != nil {
		t.Fatalf("create: %+v", err)
	}
	if res.Receipt == nil || res.Receipt.Code != 0 {
		t.Fatalf("want a success receipt, got %+v", res.Receipt)
	}

	// a fresh owner submits with sequence 0, so the group address is
	// derived from the post increment value 1 and is computable offline
	want := multisig.GroupAddress(owner.PublicKey().Address(), 1)
	if !res.GroupAddress.Equals(want) {
		t.Fatalf("want %s, got %s", want, res.GroupAddress)
	}

	w := res.Wallet
	if w == nil || w.State() == nil {
		t.Fatal("want a wallet with an attached snapshot")
	}
	ms := w.State().Multisig
	if ms == nil || ms.Threshold != 1 || len(ms.Signers) != 1 {
		t.Fatalf("unexpected group policy: %+v", ms)
	}
	if !ms.Owner.Equals(owner.PublicKey().Address()) {
		t.Fatalf("want owner %s, got %s", owner.PublicKey().Address(), ms.Owner)
	}
}

// TestCreateWalletPolicyRejected submits policies the ledger must refuse.
// The client performs no local bounds check; the rejection travels back as
// the ledger's unexpected result and no usable wallet is produced.
func TestCreateWalletPolicyRejected(t *testing.T) {
	s1 := sigtest.NewKey().PublicKey().Address()
	s2 := sigtest.NewKey().PublicKey().Address()

	cases := map[string]multisig.AccountProperties{
		"threshold above signer count": {Threshold: 3, Signers: []quorumsig.Address{s1, s2}},
		"empty signer set":             {Threshold: 1},
		"zero threshold":               {Threshold: 0, Signers: []quorumsig.Address{s1}},
	}

	for testName, props := range cases {
		t.Run(testName, func(t *testing.T) {
			ledger := sigtest.NewLedger(testChainID)
			res, err := multisig.CreateWallet(context.Background(), ledger, sigtest.NewKey(), props, nil)
			if !errors.ErrUnexpected.Is(err) {
				t.Fatalf("want unexpected result, got %+v", err)
			}
			if res == nil || res.Receipt == nil {
				t.Fatal("the rejection receipt must be available for diagnosis")
			}
			if res.Wallet != nil {
				t.Fatal("a rejected creation must not produce a wallet")
			}
		})
	}
}

// TestProposeAndConfirmTransfer is the full happy path: a 2-of-3 group,
// one member proposes a transfer, a second member confirms, the ledger
// executes.
func TestProposeAndConfirmTransfer(t *testing.T) {
	ctx := context.Background()
	ledger := sigtest.NewLedger(testChainID)
	owner := sigtest.NewKey()
	s1, s2, s3 := sigtest.NewKey(), sigtest.NewKey(), sigtest.NewKey()

	w1 := createGroupWallet(t, ledger, owner, s1, 2,
		s1.PublicKey().Address(), s2.PublicKey().Address(), s3.PublicKey().Address())
	ledger.FundAccount(w1.Address(), coin.NewCoin(10, 0, "QRM"))

	dest := sigtest.NewKey().PublicKey().Address()
	res, err := w1.Transfer(ctx, dest, coin.NewCoin(2, 0, "QRM"), nil)
	if err != nil {
		t.Fatalf("propose transfer: %+v", err)
	}
	if res.Receipt == nil || res.Receipt.Code != 0 {
		t.Fatalf("want a success receipt, got %+v", res.Receipt)
	}

	// one signature is below the threshold: funds must not have moved yet
	if _, err := ledger.AccountState(ctx, dest); !errors.ErrNotAvailable.Is(err) {
		t.Fatalf("transfer must not execute below threshold: %+v", err)
	}
	state := w1.State()
	if state.Multisig.Counter != 1 || len(state.Multisig.PendingIDs) != 1 {
		t.Fatalf("want one pending proposal, got %+v", state.Multisig)
	}
	pend, err := w1.PendingProposal(ctx, 0)
	if err != nil {
		t.Fatalf("pending: %+v", err)
	}
	if n := len(pend.Tx.Signatures); n != 1 {
		t.Fatalf("want one collected signature, got %d", n)
	}

	w2, err := multisig.LoadWallet(ctx, w1.Address(), multisig.SignerBackend(s2, ledger))
	if err != nil {
		t.Fatalf("load second wallet: %+v", err)
	}
	cres, err := w2.Confirm(ctx, 0, nil)
	if err != nil {
		t.Fatalf("confirm: %+v", err)
	}
	if cres.Receipt == nil || cres.Receipt.Code != 0 {
		t.Fatalf("want a success receipt, got %+v", cres.Receipt)
	}

	got, err := ledger.AccountState(ctx, dest)
	if err != nil {
		t.Fatalf("destination after execution: %+v", err)
	}
	if len(got.Coins) != 1 || !got.Coins[0].Equals(coin.NewCoin(2, 0, "QRM")) {
		t.Fatalf("want 2 QRM at destination, got %v", got.Coins)
	}
	if n := len(w2.State().Multisig.PendingIDs); n != 0 {
		t.Fatalf("executed proposal must leave the pending set, got %d entries", n)
	}

	balance, err := w1.Balance(ctx)
	if err != nil {
		t.Fatalf("group balance: %+v", err)
	}
	if len(balance) != 1 || !balance[0].Equals(coin.NewCoin(8, 0, "QRM")) {
		t.Fatalf("want 8 QRM left, got %v", balance)
	}
}

// TestProposeStaleSequence uses a sequence override far ahead of the live
// group counter. The ledger rejects it and the rejection is republished,
// never turned into a local failure.
func TestProposeStaleSequence(t *testing.T) {
	ctx := context.Background()
	ledger := sigtest.NewLedger(testChainID)
	owner := sigtest.NewKey()
	s1 := sigtest.NewKey()

	w1 := createGroupWallet(t, ledger, owner, s1, 1, s1.PublicKey().Address())
	ledger.FundAccount(w1.Address(), coin.NewCoin(10, 0, "QRM"))

	dest := sigtest.NewKey().PublicKey().Address()
	res, err := w1.Transfer(ctx, dest, coin.NewCoin(1, 0, "QRM"), &multisig.Options{Sequence: i64(5)})
	if !errors.ErrUnexpected.Is(err) && !errors.ErrNotAllowed.Is(err) {
		t.Fatalf("want the ledger rejection republished, got %+v", err)
	}
	if res == nil || res.Receipt == nil {
		t.Fatal("the rejection receipt must be available")
	}
}

// TestDuplicateConfirmation confirms the same proposal twice with the same
// identity. The second confirmation must be rejected, not absorbed.
func TestDuplicateConfirmation(t *testing.T) {
	ctx := context.Background()
	ledger := sigtest.NewLedger(testChainID)
	owner := sigtest.NewKey()
	s1, s2, s3 := sigtest.NewKey(), sigtest.NewKey(), sigtest.NewKey()

	w1 := createGroupWallet(t, ledger, owner, s1, 3,
		s1.PublicKey().Address(), s2.PublicKey().Address(), s3.PublicKey().Address())
	ledger.FundAccount(w1.Address(), coin.NewCoin(10, 0, "QRM"))

	if _, err := w1.Transfer(ctx, sigtest.NewKey().PublicKey().Address(), coin.NewCoin(1, 0, "QRM"), nil); err != nil {
		t.Fatalf("propose: %+v", err)
	}

	w2, err := multisig.LoadWallet(ctx, w1.Address(), multisig.SignerBackend(s2, ledger))
	if err != nil {
		t.Fatalf("load wallet: %+v", err)
	}
	if _, err := w2.Confirm(ctx, 0, nil); err != nil {
		t.Fatalf("first confirmation: %+v", err)
	}
	if _, err := w2.Confirm(ctx, 0, nil); !errors.ErrNotAllowed.Is(err) {
		t.Fatalf("want not allowed on duplicate confirmation, got %+v", err)
	}
}

func TestOutsiderCannotConfirm(t *testing.T) {
	ctx := context.Background()
	ledger := sigtest.NewLedger(testChainID)
	owner := sigtest.NewKey()
	s1, s2 := sigtest.NewKey(), sigtest.NewKey()
	outsider := sigtest.NewKey()

	w1 := createGroupWallet(t, ledger, owner, s1, 2,
		s1.PublicKey().Address(), s2.PublicKey().Address())
	ledger.FundAccount(w1.Address(), coin.NewCoin(10, 0, "QRM"))

	if _, err := w1.Transfer(ctx, sigtest.NewKey().PublicKey().Address(), coin.NewCoin(1, 0, "QRM"), nil); err != nil {
		t.Fatalf("propose: %+v", err)
	}

	wo, err := multisig.LoadWallet(ctx, w1.Address(), multisig.SignerBackend(outsider, ledger))
	if err != nil {
		t.Fatalf("load wallet: %+v", err)
	}
	if _, err := wo.Confirm(ctx, 0, nil); !errors.ErrNotAllowed.Is(err) {
		t.Fatalf("want not allowed for an outsider, got %+v", err)
	}
}

// TestConfirmNeverProposed must fail the local lookup before any
// confirmation signature or submission is produced.
func TestConfirmNeverProposed(t *testing.T) {
	ctx := context.Background()
	ledger := sigtest.NewLedger(testChainID)
	owner := sigtest.NewKey()
	s1 := sigtest.NewKey()

	w1 := createGroupWallet(t, ledger, owner, s1, 1, s1.PublicKey().Address())
	ledger.FundAccount(w1.Address(), coin.NewCoin(10, 0, "QRM"))

	if _, err := w1.Confirm(ctx, 42, nil); !errors.ErrMissingArg.Is(err) {
		t.Fatalf("want missing argument, got %+v", err)
	}

	// the aborted confirmation must not have consumed a sequence: the next
	// submission still signs with the expected value and succeeds
	if _, err := w1.Transfer(ctx, sigtest.NewKey().PublicKey().Address(), coin.NewCoin(1, 0, "QRM"), nil); err != nil {
		t.Fatalf("transfer after aborted confirmation: %+v", err)
	}
}

// TestSequenceInvalidationOnFailure covers the invalidate-on-failure
// policy: after any failed submission the next call must re-fetch the
// personal sequence instead of trusting the cache.
func TestSequenceInvalidationOnFailure(t *testing.T) {
	ctx := context.Background()
	dest := sigtest.NewKey().PublicKey().Address()

	t.Run("stale cache after out of band submission", func(t *testing.T) {
		ledger := sigtest.NewLedger(testChainID)
		owner := sigtest.NewKey()
		s1 := sigtest.NewKey()
		w1 := createGroupWallet(t, ledger, owner, s1, 1, s1.PublicKey().Address())
		ledger.FundAccount(w1.Address(), coin.NewCoin(10, 0, "QRM"))

		if _, err := w1.Transfer(ctx, dest, coin.NewCoin(1, 0, "QRM"), nil); err != nil {
			t.Fatalf("warmup transfer: %+v", err)
		}

		// another process submits for the same identity
		ledger.BumpSequence(s1.PublicKey().Address())

		queries := ledger.SequenceQueries()
		if _, err := w1.Transfer(ctx, dest, coin.NewCoin(1, 0, "QRM"), nil); !errors.ErrInvalidArg.Is(err) {
			t.Fatalf("want the broadcast rejection, got %+v", err)
		}
		if ledger.SequenceQueries() != queries {
			t.Fatal("the failed attempt must not have queried, it used the cache")
		}

		if _, err := w1.Transfer(ctx, dest, coin.NewCoin(1, 0, "QRM"), nil); err != nil {
			t.Fatalf("retry after invalidation: %+v", err)
		}
		if ledger.SequenceQueries() != queries+1 {
			t.Fatal("the retry must have re-fetched the sequence")
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		ledger := sigtest.NewLedger(testChainID)
		owner := sigtest.NewKey()
		s1 := sigtest.NewKey()
		w1 := createGroupWallet(t, ledger, owner, s1, 1, s1.PublicKey().Address())
		ledger.FundAccount(w1.Address(), coin.NewCoin(10, 0, "QRM"))

		ledger.FailNextSubmit(errors.ErrNetwork.New("connection reset"))
		if _, err := w1.Transfer(ctx, dest, coin.NewCoin(1, 0, "QRM"), nil); !errors.ErrNetwork.Is(err) {
			t.Fatalf("want the transport failure, got %+v", err)
		}

		if _, err := w1.Transfer(ctx, dest, coin.NewCoin(1, 0, "QRM"), nil); err != nil {
			t.Fatalf("retry after transport failure: %+v", err)
		}
	})
}

func TestSendOnlySubmission(t *testing.T) {
	ctx := context.Background()
	ledger := sigtest.NewLedger(testChainID)
	owner := sigtest.NewKey()
	s1 := sigtest.NewKey()

	w1 := createGroupWallet(t, ledger, owner, s1, 1, s1.PublicKey().Address())
	ledger.FundAccount(w1.Address(), coin.NewCoin(10, 0, "QRM"))

	dest := sigtest.NewKey().PublicKey().Address()
	res, err := w1.Transfer(ctx, dest, coin.NewCoin(1, 0, "QRM"), &multisig.Options{SendOnly: true})
	if err != nil {
		t.Fatalf("send only transfer: %+v", err)
	}
	if res.Receipt != nil {
		t.Fatal("send only mode must not wait for a receipt")
	}
	if len(res.ID) == 0 {
		t.Fatal("the transaction id must still be reported")
	}

	receipt, err := ledger.WaitForTx(ctx, res.ID, 1)
	if err != nil {
		t.Fatalf("wait: %+v", err)
	}
	if receipt.Code != 0 {
		t.Fatalf("want success, got %+v", receipt)
	}
}

func TestUpdatePolicy(t *testing.T) {
	ctx := context.Background()
	ledger := sigtest.NewLedger(testChainID)
	owner := sigtest.NewKey()
	s1, s2 := sigtest.NewKey(), sigtest.NewKey()

	group := createGroup(t, ledger, owner, 2,
		s1.PublicKey().Address(), s2.PublicKey().Address())

	wo, err := multisig.LoadWallet(ctx, group, multisig.SignerBackend(owner, ledger))
	if err != nil {
		t.Fatalf("load owner wallet: %+v", err)
	}
	res, err := wo.Update(ctx, multisig.AccountProperties{
		Threshold: 1,
		Signers:   []quorumsig.Address{s1.PublicKey().Address()},
	}, nil)
	if err != nil {
		t.Fatalf("update: %+v", err)
	}
	if res.Receipt.Code != 0 {
		t.Fatalf("want success, got %+v", res.Receipt)
	}
	ms := wo.State().Multisig
	if ms.Threshold != 1 || len(ms.Signers) != 1 {
		t.Fatalf("policy not applied: %+v", ms)
	}

	// a mere member is not the owner
	wm, err := multisig.LoadWallet(ctx, group, multisig.SignerBackend(s1, ledger))
	if err != nil {
		t.Fatalf("load member wallet: %+v", err)
	}
	if _, err := wm.Update(ctx, multisig.AccountProperties{
		Threshold: 1,
		Signers:   []quorumsig.Address{s1.PublicKey().Address()},
	}, nil); !errors.ErrNotAllowed.Is(err) {
		t.Fatalf("want not allowed, got %+v", err)
	}
}

func TestReadOnlyWallet(t *testing.T) {
	ctx := context.Background()
	ledger := sigtest.NewLedger(testChainID)
	owner := sigtest.NewKey()
	s1 := sigtest.NewKey()

	group := createGroup(t, ledger, owner, 1, s1.PublicKey().Address())
	ledger.FundAccount(group, coin.NewCoin(3, 0, "QRM"))

	w, err := multisig.LoadWallet(ctx, group, multisig.ProviderBackend(ledger))
	if err != nil {
		t.Fatalf("load read only wallet: %+v", err)
	}

	balance, err := w.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %+v", err)
	}
	if len(balance) != 1 || !balance[0].Equals(coin.NewCoin(3, 0, "QRM")) {
		t.Fatalf("want 3 QRM, got %v", balance)
	}

	if _, err := w.Confirm(ctx, 0, nil); !errors.ErrNotInitialized.Is(err) {
		t.Fatalf("want not initialized on a read only wallet, got %+v", err)
	}
	if _, err := w.Transfer(ctx, sigtest.NewKey().PublicKey().Address(), coin.NewCoin(1, 0, "QRM"), nil); !errors.ErrNotInitialized.Is(err) {
		t.Fatalf("want not initialized on a read only wallet, got %+v", err)
	}
}

func TestNewWalletValidation(t *testing.T) {
	ledger := sigtest.NewLedger(testChainID)

	if _, err := multisig.NewWallet(nil, multisig.ProviderBackend(ledger)); !errors.ErrMissingArg.Is(err) {
		t.Fatalf("want missing argument, got %+v", err)
	}
	group := quorumsig.NewAddress([]byte("group"))
	if _, err := multisig.NewWallet(group, multisig.Backend{}); !errors.ErrInvalidArg.Is(err) {
		t.Fatalf("want invalid argument, got %+v", err)
	}
}
