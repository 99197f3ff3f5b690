// Package vaultconst contains constants shared by the Vault contract and
// its off-chain clients.
package vaultconst

const (
	// Namespace is a tag mixed into every vault identity derivation so
	// identities can't collide with other derivation schemes.
	Namespace = "vault"

	// MaxNonce is the first nonce tried by the identity derivation, the
	// search goes down to zero.
	MaxNonce = 255

	// VaultPrefix is a storage prefix of vault records keyed by identity.
	VaultPrefix = 'v'
	// PendingDepositKey is a storage key of the in-flight deposit marker.
	PendingDepositKey = 'p'
)

// Exception message prefixes. Every failing vault method panics with a
// message starting with one of these codes.
const (
	ErrAlreadyExists         = "vault already exists"
	ErrInvalidAccountLinkage = "invalid account linkage"
	ErrUnauthorized          = "unauthorized"
	ErrInsufficientFunds     = "insufficient funds"
	ErrInvalidAmount         = "invalid amount"
)

// Messages appended to codes to point at the exact check that failed.
const (
	ReasonVaultNotFound   = "vault not found"
	ReasonInvalidMint     = "invalid mint hash"
	ReasonUnknownMint     = "mint contract is not deployed"
	ReasonDirectTransfer  = "tokens are accepted via deposit only"
	ReasonPaymentMissing  = "vault was not notified about the payment"
	ReasonTransferRefused = "token transfer refused"
	ReasonNoIdentity      = "no usable identity"
)
