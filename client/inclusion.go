package client

import (
	"context"
	"time"

	"github.com/thresh-one/quorumsig/errors"
	"github.com/thresh-one/quorumsig/tx"
)

// SubscribeTxByID will block until there is a result, then return it
// You must cancel the context to avoid blocking forever in some cases
func (c *Client) SubscribeTxByID(ctx context.Context, id TransactionID) (*Receipt, error) {
	txs := make(chan Receipt, 1)
	if err := c.SubscribeTx(ctx, id, txs); err != nil {
		return nil, err
	}

	// wait on first value... channel may be closed if subscription cancelled first
	res, ok := <-txs
	if !ok {
		return nil, errors.Wrap(errors.ErrTimeout, "unsubscribed before result")
	}
	return &res, nil
}

// WatchTx will block until this transaction makes it into a block
// It will return immediately if the id was included in a block prior to the query, to avoid timing issues
// You can use context.Context to pass in a timeout
func (c *Client) WatchTx(ctx context.Context, id TransactionID) (*Receipt, error) {
	subctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// start a subscription
	sub := make(chan resultOrError, 1)
	go func() {
		res, err := c.SubscribeTxByID(subctx, id)
		sub <- resultOrError{
			result: res,
			err:    err,
		}
	}()

	// try to search and if successful, abort the subscription
	search, _ := c.GetTxByID(ctx, id)
	if search != nil {
		return search, nil
	}

	// now we just wait until the subscription returns fruit
	result := <-sub
	return result.result, result.err
}

// WaitForTx blocks until the transaction is included in a block and, when a
// confirmation depth greater than one is requested, until that many blocks
// are stacked on top of the inclusion height. There is no protocol level
// timeout here; bound the wait through the context.
func (c *Client) WaitForTx(ctx context.Context, id TransactionID, confirmations int) (*Receipt, error) {
	res, err := c.WatchTx(ctx, id)
	if err != nil {
		return nil, err
	}
	if confirmations > 1 {
		if _, err := c.WaitForHeight(ctx, res.Height+int64(confirmations)-1); err != nil {
			return nil, err
		}
	}
	// a short delay so all queries on the result block work as expected
	c.waitForTxIndex()
	return res, nil
}

// CommitTx submits the envelope and blocks until it is included in a block.
func (c *Client) CommitTx(ctx context.Context, env *tx.Envelope) (*Receipt, error) {
	id, err := c.SubmitTx(ctx, env)
	if err != nil {
		return nil, err
	}
	return c.WaitForTx(ctx, id, 1)
}

// WaitForNextBlock will return the next block header to arrive (as subscription)
func (c *Client) WaitForNextBlock(ctx context.Context) (*Header, error) {
	// ensure we close subscription at function return
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	headers := make(chan Header, 1)
	if err := c.SubscribeHeaders(cctx, headers); err != nil {
		return nil, err
	}

	// get the next incoming header
	h, ok := <-headers
	if !ok {
		return nil, errors.Wrap(errors.ErrNetwork, "subscription closed without returning any headers")
	}

	c.waitForTxIndex()
	return &h, nil
}

// WaitForHeight subscribes to headers and returns as soon as a header arrives
// equal to or greater than the given height. If the requested height is in the past,
// it will still wait for the next block to arrive
func (c *Client) WaitForHeight(ctx context.Context, height int64) (*Header, error) {
	// ensure we close subscription at function return
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	headers := make(chan Header, 2)
	if err := c.SubscribeHeaders(cctx, headers); err != nil {
		return nil, err
	}

	// read headers until we find desired height
	for h := range headers {
		if h.Height >= height {
			c.waitForTxIndex()
			return &h, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNetwork, "subscription closed before height %d", height)
}

// waitForTxIndex waits until all tx in the last block are properly indexed
// for the queries. If you got a block header event, you need to wait a
// little bit until you can search it.
func (c *Client) waitForTxIndex() {
	time.Sleep(100 * time.Millisecond)
}
