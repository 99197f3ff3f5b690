/*
Package vaultid derives vault identities the same way Vault contract does.

Vault identity depends only on the Vault contract address and the mint, so
clients can locate a vault (and build deposit transactions) without reading
the contract storage.
*/
package vaultid

import (
	"errors"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/vaultlabs/vault-contract/contracts/vault/vaultconst"
)

// ErrNoIdentity is returned by Derive when every nonce produces an unusable
// identity.
var ErrNoIdentity = errors.New(vaultconst.ErrInvalidAccountLinkage + ": " + vaultconst.ReasonNoIdentity)

// Identity is a derived vault address together with its nonce.
type Identity struct {
	Address util.Uint160
	Nonce   uint8
}

// Derive returns identity of the mint vault kept by the Vault contract
// deployed at program. Nonces are tried from vaultconst.MaxNonce down to
// zero, the first identity that does not match the program address wins.
func Derive(program, mint util.Uint160) (Identity, error) {
	for nonce := vaultconst.MaxNonce; nonce >= 0; nonce-- {
		addr := Address(program, mint, uint8(nonce))
		if !addr.Equals(program) {
			return Identity{Address: addr, Nonce: uint8(nonce)}, nil
		}
	}

	return Identity{}, ErrNoIdentity
}

// Address computes vault address for the exact nonce. It is RIPEMD160 of
// SHA256 of the namespace tag, program and mint addresses and VM-encoded
// nonce.
func Address(program, mint util.Uint160, nonce uint8) util.Uint160 {
	n := bigint.ToBytes(big.NewInt(int64(nonce)))

	seed := make([]byte, 0, len(vaultconst.Namespace)+2*util.Uint160Size+len(n))
	seed = append(seed, vaultconst.Namespace...)
	seed = append(seed, program.BytesBE()...)
	seed = append(seed, mint.BytesBE()...)
	seed = append(seed, n...)

	return hash.Hash160(seed)
}

// Verify checks that id is the identity of the mint vault.
func Verify(program, mint util.Uint160, id Identity) bool {
	expected, err := Derive(program, mint)
	return err == nil && expected == id
}
