package client

import (
	"context"
	"fmt"

	cmn "github.com/tendermint/tendermint/libs/common"
	tmquery "github.com/tendermint/tendermint/libs/pubsub/query"
	rpcclient "github.com/tendermint/tendermint/rpc/client"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/tx"
)

// Query paths understood by the ledger application.
const (
	PathAccounts        = "/accounts"
	PathPendingProposal = "/multisig/pending"
	PathFee             = "/fee"
)

// Client is a tendermint client wrapped to provide simple access to the
// ledger state the coordination protocol needs.
//
// Basic accessors are declared here. The inclusion-wait helpers build on
// them in inclusion.go.
type Client struct {
	conn rpcclient.Client

	// chainID is resolved lazily from the genesis document and then
	// never changes for the lifetime of the connection.
	chainID string
}

// NewClient wraps a Client around an existing tendermint client connection.
func NewClient(conn rpcclient.Client) *Client {
	return &Client{conn: conn}
}

// NewHTTPClient is a shorthand for a client talking to a remote node.
func NewHTTPClient(remote string) *Client {
	return NewClient(rpcclient.NewHTTP(remote, "/websocket"))
}

// Status returns current height and other (subjective) status info from this node
func (c *Client) Status(ctx context.Context) (*Status, error) {
	status, err := c.conn.Status()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "status: %s", err.Error())
	}
	return &Status{
		Height:     status.SyncInfo.LatestBlockHeight,
		CatchingUp: status.SyncInfo.CatchingUp,
	}, nil
}

// ChainID returns the chain id of the connected network.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	if c.chainID != "" {
		return c.chainID, nil
	}
	gen, err := c.conn.Genesis()
	if err != nil {
		return "", errors.Wrapf(errors.ErrNetwork, "genesis: %s", err.Error())
	}
	c.chainID = gen.Genesis.ChainID
	return c.chainID, nil
}

// SubmitTx will submit the envelope to the mempool and then return with
// success or error. Use WaitForTx to get the inclusion result.
func (c *Client) SubmitTx(ctx context.Context, env *tx.Envelope) (TransactionID, error) {
	bz, err := env.Marshal()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidArg, "marshaling: %s", err.Error())
	}
	res, err := c.conn.BroadcastTxSync(bz)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "submit tx: %s", err.Error())
	}

	// a checktx rejection means it didn't make it into the mempool and
	// will never make it into a block
	if res.Code != 0 {
		return nil, errors.ABCIError(res.Code, res.Log)
	}
	return TransactionID(res.Hash), nil
}

// AccountState returns the ledger snapshot of the given account. It fails
// with ErrNotAvailable when the ledger has no such account.
func (c *Client) AccountState(ctx context.Context, addr quorumsig.Address) (*AccountState, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	value, err := c.abciQuery(ctx, PathAccounts, addr)
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, errors.Wrapf(errors.ErrNotAvailable, "account %s", addr)
	}
	var state AccountState
	if err := tx.UnmarshalJSON(value, &state); err != nil {
		return nil, errors.Wrapf(errors.ErrUnexpected, "malformed account state: %s", err.Error())
	}
	return &state, nil
}

// NextSequence returns the next usable personal sequence for the given
// identity. An account that does not exist yet starts counting at zero.
func (c *Client) NextSequence(ctx context.Context, addr quorumsig.Address) (int64, error) {
	state, err := c.AccountState(ctx, addr)
	switch {
	case err == nil:
		return state.Sequence, nil
	case errors.ErrNotAvailable.Is(err):
		return 0, nil
	default:
		return 0, err
	}
}

// PendingProposal returns one pending proposal of a group account, or
// ErrNotAvailable if the ledger holds no proposal under that id.
func (c *Client) PendingProposal(ctx context.Context, addr quorumsig.Address, txID int64) (*PendingTx, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	data, err := tx.MarshalJSON(pendingQuery{Address: addr, TxID: txID})
	if err != nil {
		return nil, errors.Wrap(err, "marshal query")
	}
	value, err := c.abciQuery(ctx, PathPendingProposal, data)
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, errors.Wrapf(errors.ErrNotAvailable, "pending tx %d", txID)
	}
	var pending PendingTx
	if err := tx.UnmarshalJSON(value, &pending); err != nil {
		return nil, errors.Wrapf(errors.ErrUnexpected, "malformed pending tx: %s", err.Error())
	}
	return &pending, nil
}

// EstimateFee asks the ledger for the fee it expects for the given
// operation. Fee policy is entirely ledger side; this SDK never computes
// fees locally.
func (c *Client) EstimateFee(ctx context.Context, msg tx.Msg) (tx.Fee, error) {
	value, err := c.abciQuery(ctx, PathFee, []byte(msg.Path()))
	if err != nil {
		return tx.Fee{}, err
	}
	var fee tx.Fee
	if len(value) == 0 {
		return fee, nil
	}
	if err := tx.UnmarshalJSON(value, &fee); err != nil {
		return tx.Fee{}, errors.Wrapf(errors.ErrUnexpected, "malformed fee: %s", err.Error())
	}
	return fee, nil
}

// GetTxByID will return 0 or 1 results (nil or result value)
func (c *Client) GetTxByID(ctx context.Context, id TransactionID) (*Receipt, error) {
	res, err := c.conn.Tx(id, false)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "get tx: %s", err.Error())
	}
	return &Receipt{
		ID:     TransactionID(res.Hash),
		Height: res.Height,
		Code:   res.TxResult.Code,
		Log:    res.TxResult.Log,
	}, nil
}

// abciQuery performs one state query and maps the response codes into the
// typed errors of this SDK.
func (c *Client) abciQuery(ctx context.Context, path string, data []byte) ([]byte, error) {
	res, err := c.conn.ABCIQueryWithOptions(path, data, rpcclient.ABCIQueryOptions{})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "query %s: %s", path, err.Error())
	}
	if res.Response.IsErr() {
		return nil, errors.ABCIError(res.Response.Code, res.Response.Log)
	}
	return res.Response.Value, nil
}

// SubscribeTx subscribes to the commit result of a single transaction,
// writing it to the results channel when it arrives. The subscription lasts
// until the context is cancelled.
func (c *Client) SubscribeTx(ctx context.Context, id TransactionID, results chan<- Receipt) error {
	q := fmt.Sprintf("%s='%s' AND %s='%X'", tmtypes.EventTypeKey, tmtypes.EventTx, tmtypes.TxHashKey, id)
	data, err := c.subscribe(ctx, q)
	if err != nil {
		return err
	}

	// start a go routine to parse the incoming data and feed to the results channel
	go func(in <-chan ctypes.ResultEvent) {
	EventLoop:
		for {
			select {
			case <-ctx.Done():
				break EventLoop
			case msg := <-in:
				val, ok := msg.Data.(tmtypes.EventDataTx)
				if !ok {
					continue
				}
				results <- Receipt{
					ID:     TransactionID(val.Tx.Hash()),
					Height: val.Height,
					Code:   val.Result.Code,
					Log:    val.Result.Log,
				}
			}
		}
		close(results)
	}(data)

	return nil
}

// SubscribeHeaders will fill the channel with all new headers
// Stops when the context is cancelled
func (c *Client) SubscribeHeaders(ctx context.Context, results chan<- Header) error {
	data, err := c.subscribe(ctx, queryForEvent(tmtypes.EventNewBlockHeader))
	if err != nil {
		return err
	}

	go func(in <-chan ctypes.ResultEvent) {
	EventLoop:
		for {
			select {
			case <-ctx.Done():
				break EventLoop
			case msg := <-in:
				val, ok := msg.Data.(tmtypes.EventDataNewBlockHeader)
				if !ok {
					continue
				}
				results <- val.Header
			}
		}
		close(results)
	}(data)

	return nil
}

// subscribe wraps conn.Subscribe and uses ctx.Done() to trigger unsubscription
func (c *Client) subscribe(ctx context.Context, query string) (<-chan ctypes.ResultEvent, error) {
	q, err := tmquery.New(query)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidArg, "query '%s': %s", query, err.Error())
	}

	subscriber := cmn.RandStr(16)
	out, err := c.conn.Subscribe(ctx, subscriber, q.String())
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "subscribe to '%s': %s", query, err.Error())
	}
	// listen for context canceled to unsubscribe
	// put all variables in local scope to prevent long-lived references
	go func(stop <-chan struct{}, sub string, q *tmquery.Query) {
		<-stop
		_ = c.conn.Unsubscribe(context.Background(), sub, q.String())
	}(ctx.Done(), subscriber, q)

	return out, nil
}

func queryForEvent(eventType string) string {
	return fmt.Sprintf("%s='%s'", tmtypes.EventTypeKey, eventType)
}
