package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/thresh-one/quorumsig/client"
	"github.com/thresh-one/quorumsig/multisig"
)

func cmdProposeTransfer(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Propose a transfer out of a group account. The key holder must belong to
the group's signer set. Prints the proposal id on success.
`)
		fl.PrintDefaults()
	}
	var (
		nodeFl    = fl.String("tm", defaultNode(), "Tendermint node address. Use QUORUMSIG_NODE to set it.")
		keyPathFl = fl.String("key", defaultKeyPath(), "Path to the private key file.")
		groupFl   = fl.String("group", "", "Address of the group account.")
		dstFl     = fl.String("dst", "", "Destination address.")
		amountFl  = fl.String("amount", "", `Amount to transfer, for example "5 QRM".`)
		memoFl    = fl.String("memo", "", "Memo attached to the transfer.")
	)
	fl.Parse(args)

	key, err := loadKey(*keyPathFl)
	if err != nil {
		return err
	}
	group, err := parseAddress(*groupFl)
	if err != nil {
		return fmt.Errorf("group: %s", err)
	}
	dst, err := parseAddress(*dstFl)
	if err != nil {
		return fmt.Errorf("dst: %s", err)
	}
	amount, err := parseCoin(*amountFl)
	if err != nil {
		return err
	}

	conn := client.NewHTTPClient(*nodeFl)
	w, err := multisig.LoadWallet(context.Background(), group, multisig.SignerBackend(key, conn))
	if err != nil {
		return err
	}

	// The proposal id equals the group counter the proposal was signed
	// with, so it is known before submission.
	txID := w.State().Multisig.Counter
	res, err := w.Transfer(context.Background(), dst, amount, &multisig.Options{Memo: *memoFl})
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "proposal id: %d\ntx: %s\n", txID, res.ID)
	return nil
}

func cmdConfirm(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Confirm a pending proposal of a group account. The key holder must belong
to the group's signer set. Once enough members confirmed, the ledger
executes the proposal.
`)
		fl.PrintDefaults()
	}
	var (
		nodeFl    = fl.String("tm", defaultNode(), "Tendermint node address. Use QUORUMSIG_NODE to set it.")
		keyPathFl = fl.String("key", defaultKeyPath(), "Path to the private key file.")
		groupFl   = fl.String("group", "", "Address of the group account.")
		idFl      = fl.Int64("id", 0, "Id of the pending proposal to confirm.")
	)
	fl.Parse(args)

	key, err := loadKey(*keyPathFl)
	if err != nil {
		return err
	}
	group, err := parseAddress(*groupFl)
	if err != nil {
		return fmt.Errorf("group: %s", err)
	}

	conn := client.NewHTTPClient(*nodeFl)
	w, err := multisig.LoadWallet(context.Background(), group, multisig.SignerBackend(key, conn))
	if err != nil {
		return err
	}
	res, err := w.Confirm(context.Background(), *idFl, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, res.ID)
	return err
}

func cmdPending(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print a pending proposal of a group account as JSON, including the
signatures collected so far.
`)
		fl.PrintDefaults()
	}
	var (
		nodeFl  = fl.String("tm", defaultNode(), "Tendermint node address. Use QUORUMSIG_NODE to set it.")
		groupFl = fl.String("group", "", "Address of the group account.")
		idFl    = fl.Int64("id", 0, "Id of the pending proposal.")
	)
	fl.Parse(args)

	group, err := parseAddress(*groupFl)
	if err != nil {
		return fmt.Errorf("group: %s", err)
	}
	conn := client.NewHTTPClient(*nodeFl)
	pend, err := conn.PendingProposal(context.Background(), group, *idFl)
	if err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(pend, "", "\t")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, string(pretty))
	return err
}
