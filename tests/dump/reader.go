package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// IterateDumps reads all dumps located in dir and passes them into f. Missing
// dir is treated as an empty one.
func IterateDumps(dir string, f func(ID, *Reader)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read dump dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		var id ID
		if id.decodeFileName(e.Name()) != nil {
			continue // storage file or foreign one
		}

		r, err := readDump(dir, id)
		if err != nil {
			return fmt.Errorf("read dump '%s': %w", id, err)
		}

		f(id, r)
	}

	return nil
}

type kv struct{ k, v []byte }

// Reader provides access to the dumped Vault contract and its mints.
type Reader struct {
	st dumpState

	vaultItems []kv
	mintItems  map[util.Uint160][]kv
}

func readDump(dir string, id ID) (*Reader, error) {
	fState, err := os.Open(id.statePath(dir))
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	defer fState.Close()

	fStorage, err := os.Open(id.storagePath(dir))
	if err != nil {
		return nil, fmt.Errorf("open storage file: %w", err)
	}
	defer fStorage.Close()

	var r Reader

	err = json.NewDecoder(fState).Decode(&r.st)
	if err != nil {
		return nil, fmt.Errorf("decode contract states from JSON: %w", err)
	}

	if r.st.Vault == nil {
		return nil, errors.New("missing Vault contract state")
	}

	err = r.readStorage(fStorage)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

func (x *Reader) readStorage(rd io.Reader) error {
	_csv := csv.NewReader(rd)
	_csv.FieldsPerRecord = storageColumns

	x.mintItems = make(map[util.Uint160][]kv)

	for {
		rec, err := _csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		var item kv

		item.k, err = _encoding.DecodeString(rec[2])
		if err != nil {
			return fmt.Errorf("decode storage item key: %w", err)
		}

		item.v, err = _encoding.DecodeString(rec[3])
		if err != nil {
			return fmt.Errorf("decode storage item value: %w", err)
		}

		switch rec[0] {
		case roleVault:
			x.vaultItems = append(x.vaultItems, item)
		case roleMint:
			mint, err := util.Uint160DecodeStringLE(rec[1])
			if err != nil {
				return fmt.Errorf("decode mint hash: %w", err)
			}

			if _, ok := x.Mint(mint); !ok {
				return fmt.Errorf("storage of unknown mint %s", rec[1])
			}

			x.mintItems[mint] = append(x.mintItems[mint], item)
		default:
			return fmt.Errorf("unknown contract role '%s'", rec[0])
		}
	}
}

// Vault returns state of the dumped Vault contract.
func (x *Reader) Vault() state.Contract {
	return *x.st.Vault
}

// Mints returns states of all dumped mint contracts.
func (x *Reader) Mints() []state.Contract {
	return x.st.Mints
}

// Mint returns state of the dumped mint contract. Native and foreign mints are
// not dumped.
func (x *Reader) Mint(h util.Uint160) (state.Contract, bool) {
	for i := range x.st.Mints {
		if x.st.Mints[i].Hash.Equals(h) {
			return x.st.Mints[i], true
		}
	}
	return state.Contract{}, false
}

// IterateVaultStorage passes all storage items of the Vault contract into f.
func (x *Reader) IterateVaultStorage(f func(key, value []byte)) {
	for i := range x.vaultItems {
		f(x.vaultItems[i].k, x.vaultItems[i].v)
	}
}

// IterateMintStorage passes all storage items of the given mint into f.
func (x *Reader) IterateMintStorage(mint util.Uint160, f func(key, value []byte)) {
	for _, item := range x.mintItems[mint] {
		f(item.k, item.v)
	}
}
