package multisig_test

import (
	"context"
	"fmt"
	"testing"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/client"
	"github.com/thresh-one/quorumsig/coin"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/multisig"
	"github.com/thresh-one/quorumsig/sigtest"
)

func TestGroupAddressIsPure(t *testing.T) {
	creator := quorumsig.NewAddress([]byte("creator"))

	a := multisig.GroupAddress(creator, 7)
	b := multisig.GroupAddress(creator, 7)
	if !a.Equals(b) {
		t.Fatalf("same input must derive the same address: %s != %s", a, b)
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("derived address must be valid: %+v", err)
	}
	if a.Equals(multisig.GroupAddress(creator, 8)) {
		t.Fatal("different sequence must derive a different address")
	}
	other := quorumsig.NewAddress([]byte("someone else"))
	if a.Equals(multisig.GroupAddress(other, 7)) {
		t.Fatal("different creator must derive a different address")
	}
}

func TestGroupAddressCollisionFree(t *testing.T) {
	seen := make(map[string]string, 10000)
	for i := 0; i < 100; i++ {
		creator := quorumsig.NewAddress([]byte(fmt.Sprintf("creator-%d", i)))
		for seq := int64(0); seq < 100; seq++ {
			addr := multisig.GroupAddress(creator, seq).String()
			pair := fmt.Sprintf("%d/%d", i, seq)
			if prev, ok := seen[addr]; ok {
				t.Fatalf("collision between %s and %s", prev, pair)
			}
			seen[addr] = pair
		}
	}
}

// misroutedLedger answers every account query with the same snapshot, no
// matter which address was asked for.
type misroutedLedger struct {
	*sigtest.Ledger
	answer *client.AccountState
}

func (m *misroutedLedger) AccountState(ctx context.Context, addr quorumsig.Address) (*client.AccountState, error) {
	return m.answer, nil
}

func TestDirectoryFetchStateMisroutedAnswer(t *testing.T) {
	ledger := &misroutedLedger{
		Ledger: sigtest.NewLedger("quorum-test-1"),
		answer: &client.AccountState{
			Address: quorumsig.NewAddress([]byte("somebody else")),
			Multisig: &client.MultisigState{
				Threshold: 1,
				Signers:   []quorumsig.Address{quorumsig.NewAddress([]byte("member"))},
			},
		},
	}
	dir := multisig.NewDirectory(ledger)

	asked := quorumsig.NewAddress([]byte("the group"))
	if _, err := dir.FetchState(context.Background(), asked); !errors.ErrUnexpected.Is(err) {
		t.Fatalf("want unexpected result for a misrouted answer, got %+v", err)
	}
}

func TestDirectoryFetchState(t *testing.T) {
	ctx := context.Background()
	ledger := sigtest.NewLedger("quorum-test-1")
	dir := multisig.NewDirectory(ledger)

	personal := sigtest.NewKey().PublicKey().Address()
	ledger.FundAccount(personal, coin.NewCoin(5, 0, "QRM"))

	if _, err := dir.FetchState(ctx, quorumsig.NewAddress([]byte("nobody"))); !errors.ErrNotAvailable.Is(err) {
		t.Fatalf("want not available for a missing account, got %+v", err)
	}
	if _, err := dir.FetchState(ctx, personal); !errors.ErrUnexpected.Is(err) {
		t.Fatalf("want unexpected result for a personal account, got %+v", err)
	}

	owner := sigtest.NewKey()
	group := createGroup(t, ledger, owner, 1, owner.PublicKey().Address())
	state, err := dir.FetchState(ctx, group)
	if err != nil {
		t.Fatalf("fetch group state: %+v", err)
	}
	if state.Multisig == nil {
		t.Fatal("group snapshot is missing the multisig section")
	}
	if !state.Address.Equals(group) {
		t.Fatalf("want %s, got %s", group, state.Address)
	}
}
