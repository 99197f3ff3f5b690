package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
)

// Creator writes a vault dump. Output files:
//
//	'<label>-<block>-state.json': states of the Vault contract and its mints
//	'<label>-<block>-storage.csv': storage items of the same contracts
//
// Storage CSV records are 'role,mint,key,value'. Role is either 'vault' or
// 'mint', mint is an LE hex hash of the mint contract (empty for the vault)
// and binary key-value are base64-encoded.
//
// Use IterateDumps to read existing dumps.
type Creator struct {
	st dumpState

	fState, fStorage *os.File

	csv *csv.Writer
}

// NewCreator creates files of the dump with the given ID in dir. Resulting
// Creator should be closed when finished working with it.
//
// NewCreator fails if dump with provided ID already exists.
func NewCreator(dir string, id ID) (*Creator, error) {
	var (
		res Creator
		err error
	)

	const flags = os.O_CREATE | os.O_EXCL | os.O_WRONLY

	res.fState, err = os.OpenFile(id.statePath(dir), flags, 0600)
	if err != nil {
		return nil, fmt.Errorf("create state file: %w", err)
	}

	res.fStorage, err = os.OpenFile(id.storagePath(dir), flags, 0600)
	if err != nil {
		_ = res.fState.Close()
		return nil, fmt.Errorf("create storage file: %w", err)
	}

	res.csv = csv.NewWriter(res.fStorage)

	return &res, nil
}

// SetVault sets state of the dumped Vault contract and returns writer of its
// storage.
func (x *Creator) SetVault(st state.Contract) *StorageWriter {
	x.st.Vault = &st
	return &StorageWriter{role: roleVault, csv: x.csv}
}

// AddMint adds state of the mint contract some vault holds funds in and
// returns writer of its storage.
func (x *Creator) AddMint(st state.Contract) *StorageWriter {
	x.st.Mints = append(x.st.Mints, st)
	return &StorageWriter{role: roleMint, mint: st.Hash.StringLE(), csv: x.csv}
}

// Flush writes accumulated states and storage items to the file system. The
// Vault contract must be set.
func (x *Creator) Flush() error {
	if x.st.Vault == nil {
		return errors.New("missing Vault contract state")
	}

	jEnc := json.NewEncoder(x.fState)
	jEnc.SetIndent("", " ")

	err := jEnc.Encode(x.st)
	if err != nil {
		return fmt.Errorf("encode contract states to JSON: %w", err)
	}

	x.csv.Flush()

	err = x.csv.Error()
	if err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	return nil
}

// Close closes dump files.
func (x *Creator) Close() error {
	return errors.Join(x.fStorage.Close(), x.fState.Close())
}

// StorageWriter writes storage items of a single dumped contract.
type StorageWriter struct {
	role, mint string
	csv        *csv.Writer
}

// Write saves given binary key-value as a storage item of the contract.
func (x *StorageWriter) Write(key, value []byte) error {
	err := x.csv.Write([]string{
		x.role,
		x.mint,
		_encoding.EncodeToString(key),
		_encoding.EncodeToString(value),
	})
	if err != nil {
		return fmt.Errorf("write storage item as CSV data: %w", err)
	}

	return nil
}
