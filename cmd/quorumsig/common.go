package main

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	quorumsig "github.com/thresh-one/quorumsig"
	"github.com/thresh-one/quorumsig/coin"
	"github.com/thresh-one/quorumsig/crypto"
	"golang.org/x/crypto/ed25519"
)

// env returns the value of the environment variable or the fallback if the
// variable is not set.
func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

func defaultKeyPath() string {
	return env("QUORUMSIG_PRIV_KEY", os.Getenv("HOME")+"/.quorumsig.priv.key")
}

func defaultNode() string {
	return env("QUORUMSIG_NODE", "http://localhost:26657")
}

// loadKey reads a raw ed25519 private key from the given file.
func loadKey(path string) (*crypto.PrivateKey, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read private key file: %s", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: %d", len(raw))
	}
	return &crypto.PrivateKey{Ed25519: raw}, nil
}

// parseAddress accepts both the hex and the bech32 form of an address.
func parseAddress(raw string) (quorumsig.Address, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty address")
	}
	if b, err := hex.DecodeString(raw); err == nil {
		addr := quorumsig.Address(b)
		if err := addr.Validate(); err != nil {
			return nil, err
		}
		return addr, nil
	}
	addr, err := quorumsig.ParseBech32Address(raw)
	if err != nil {
		return nil, fmt.Errorf("cannot decode address %q: %s", raw, err)
	}
	return addr, nil
}

// parseAddressList splits a comma separated list of addresses.
func parseAddressList(raw string) ([]quorumsig.Address, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	addrs := make([]quorumsig.Address, 0, len(parts))
	for _, p := range parts {
		addr, err := parseAddress(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("address %q: %s", p, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// parseCoin reads an amount in "123 TICKER" notation.
func parseCoin(raw string) (coin.Coin, error) {
	var (
		whole  int64
		ticker string
	)
	if _, err := fmt.Sscanf(raw, "%d %s", &whole, &ticker); err != nil {
		return coin.Coin{}, fmt.Errorf("cannot parse amount %q: %s", raw, err)
	}
	c := coin.NewCoin(whole, 0, ticker)
	if err := c.Validate(); err != nil {
		return coin.Coin{}, err
	}
	return c, nil
}
