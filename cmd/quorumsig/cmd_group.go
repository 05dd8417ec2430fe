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

func cmdGroupAddress(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Derive the address of a group account from its creator and the creator's
personal sequence at creation time. The derivation is pure and needs no
network access.
`)
		fl.PrintDefaults()
	}
	var (
		creatorFl = fl.String("creator", "", "Address of the creating identity.")
		seqFl     = fl.Int64("seq", 1, "Creator's personal sequence right after the creation transaction.")
	)
	fl.Parse(args)

	creator, err := parseAddress(*creatorFl)
	if err != nil {
		return fmt.Errorf("creator: %s", err)
	}
	_, err = fmt.Fprintln(output, multisig.GroupAddress(creator, *seqFl))
	return err
}

func cmdCreateGroup(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Open a new group account owned by the key holder. Prints the new group
address on success.

Threshold bounds are not checked locally. The ledger is authoritative and
its rejection is reported as is.
`)
		fl.PrintDefaults()
	}
	var (
		nodeFl      = fl.String("tm", defaultNode(), "Tendermint node address. Use QUORUMSIG_NODE to set it.")
		keyPathFl   = fl.String("key", defaultKeyPath(), "Path to the private key file.")
		thresholdFl = fl.Int64("threshold", 1, "Number of confirmations required to execute a proposal.")
		signersFl   = fl.String("signers", "", "Comma separated list of signer addresses.")
	)
	fl.Parse(args)

	key, err := loadKey(*keyPathFl)
	if err != nil {
		return err
	}
	signers, err := parseAddressList(*signersFl)
	if err != nil {
		return err
	}

	conn := client.NewHTTPClient(*nodeFl)
	res, err := multisig.CreateWallet(context.Background(), conn, key, multisig.AccountProperties{
		Threshold: *thresholdFl,
		Signers:   signers,
	}, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, res.GroupAddress)
	return err
}

func cmdUpdateGroup(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Replace the signing policy of a group account. Only accepted by the ledger
when signed by the current owner.
`)
		fl.PrintDefaults()
	}
	var (
		nodeFl      = fl.String("tm", defaultNode(), "Tendermint node address. Use QUORUMSIG_NODE to set it.")
		keyPathFl   = fl.String("key", defaultKeyPath(), "Path to the private key file.")
		groupFl     = fl.String("group", "", "Address of the group account.")
		thresholdFl = fl.Int64("threshold", 1, "Number of confirmations required to execute a proposal.")
		signersFl   = fl.String("signers", "", "Comma separated list of signer addresses.")
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
	signers, err := parseAddressList(*signersFl)
	if err != nil {
		return err
	}

	conn := client.NewHTTPClient(*nodeFl)
	w, err := multisig.LoadWallet(context.Background(), group, multisig.SignerBackend(key, conn))
	if err != nil {
		return err
	}
	res, err := w.Update(context.Background(), multisig.AccountProperties{
		Threshold: *thresholdFl,
		Signers:   signers,
	}, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, res.ID)
	return err
}

func cmdShowGroup(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print the current state of a group account as JSON.
`)
		fl.PrintDefaults()
	}
	var (
		nodeFl  = fl.String("tm", defaultNode(), "Tendermint node address. Use QUORUMSIG_NODE to set it.")
		groupFl = fl.String("group", "", "Address of the group account.")
	)
	fl.Parse(args)

	group, err := parseAddress(*groupFl)
	if err != nil {
		return fmt.Errorf("group: %s", err)
	}
	conn := client.NewHTTPClient(*nodeFl)
	state, err := multisig.NewDirectory(conn).FetchState(context.Background(), group)
	if err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(state, "", "\t")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, string(pretty))
	return err
}
