package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"golang.org/x/term"
)

// passwordEnv is an environment variable holding the wallet password. If
// unset, the password is requested from the terminal.
const passwordEnv = "VAULT_WALLET_PASSWORD"

var errNoTerminal = errors.New("password is not provided and stdin is not a terminal")

type passwordFunc func(prompt string) (string, error)

func readPassword(prompt string) (string, error) {
	if pass, ok := os.LookupEnv(passwordEnv); ok {
		return pass, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}

	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return strings.TrimRight(string(pass), "\r\n"), nil
}

// openAccount opens the wallet and returns decrypted account with the given
// address. Empty address means default wallet account.
func openAccount(walletPath, addr string, getPassword passwordFunc) (*wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(walletPath)
	if err != nil {
		return nil, fmt.Errorf("open wallet %s: %w", walletPath, err)
	}
	defer w.Close()

	var h util.Uint160
	if addr == "" {
		h = w.GetChangeAddress()
		if h.Equals(util.Uint160{}) {
			return nil, errors.New("wallet has no default account")
		}
	} else {
		h, err = address.StringToUint160(addr)
		if err != nil {
			return nil, fmt.Errorf("decode account address %s: %w", addr, err)
		}
	}

	acc := w.GetAccount(h)
	if acc == nil {
		return nil, fmt.Errorf("account %s is missing in the wallet", address.Uint160ToString(h))
	}

	pass, err := getPassword(fmt.Sprintf("Password for %s > ", address.Uint160ToString(h)))
	if err != nil {
		return nil, err
	}

	err = acc.Decrypt(pass, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account %s: %w", address.Uint160ToString(h), err)
	}

	return acc, nil
}

// parseHash decodes contract or account hash given either as Neo address or
// as little-endian hex string with optional 0x prefix.
func parseHash(s string) (util.Uint160, error) {
	if h, err := address.StringToUint160(s); err == nil {
		return h, nil
	}

	h, err := util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return h, fmt.Errorf("%q is neither an address nor a hash", s)
	}

	return h, nil
}
