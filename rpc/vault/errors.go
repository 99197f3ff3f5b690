package vault

import (
	"errors"
	"strings"

	"github.com/vaultlabs/vault-contract/contracts/vault/vaultconst"
)

// Errors returned by the contract methods. Use errors.Is to match them
// against errors returned by ContractReader and Contract.
var (
	ErrAlreadyExists         = errors.New(vaultconst.ErrAlreadyExists)
	ErrInvalidAccountLinkage = errors.New(vaultconst.ErrInvalidAccountLinkage)
	ErrUnauthorized          = errors.New(vaultconst.ErrUnauthorized)
	ErrInsufficientFunds     = errors.New(vaultconst.ErrInsufficientFunds)
	ErrInvalidAmount         = errors.New(vaultconst.ErrInvalidAmount)
)

var faultCodes = []error{
	ErrAlreadyExists,
	ErrInvalidAccountLinkage,
	ErrInsufficientFunds,
	ErrInvalidAmount,
	ErrUnauthorized,
}

type faultError struct {
	code  error
	cause error
}

func (e *faultError) Error() string { return e.cause.Error() }

func (e *faultError) Unwrap() []error { return []error{e.code, e.cause} }

func codeOf(exception string) error {
	for _, code := range faultCodes {
		if strings.Contains(exception, code.Error()) {
			return code
		}
	}
	return nil
}

// ParseFault maps VM exception message thrown by the contract to one of the
// package errors. It returns nil if exception carries no known code.
func ParseFault(exception string) error {
	code := codeOf(exception)
	if code == nil {
		return nil
	}
	return &faultError{code: code, cause: errors.New(exception)}
}

// FromError returns err which additionally matches a package error if its
// message carries a contract fault code. Nil and unrelated errors are
// returned as is.
func FromError(err error) error {
	if err == nil {
		return nil
	}

	code := codeOf(err.Error())
	if code == nil {
		return err
	}
	return &faultError{code: code, cause: err}
}
