package dump

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
)

// ID is a unique identifier of the vault dump.
type ID struct {
	// Network the dump was pulled from (e.g. testnet, mainnet).
	Label string
	// Blockchain height the storages correspond to.
	Block uint32
}

// String returns hyphen-separated ID fields.
func (x ID) String() string {
	return x.Label + sep + strconv.FormatUint(uint64(x.Block), 10)
}

// decodeFileName decodes ID from the name of the dump state file.
func (x *ID) decodeFileName(name string) error {
	s, ok := strings.CutSuffix(name, sep+stateFileSuffix)
	if !ok {
		return fmt.Errorf("missing '%s' suffix", stateFileSuffix)
	}

	i := strings.LastIndex(s, sep)
	if i <= 0 {
		return fmt.Errorf("expected '<label>%s<block>' prefix", sep)
	}

	n, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return fmt.Errorf("decode block number from '%s': %w", s[i+1:], err)
	}

	x.Label = s[:i]
	x.Block = uint32(n)

	return nil
}

func (x ID) statePath(dir string) string {
	return filepath.Join(dir, x.String()+sep+stateFileSuffix)
}

func (x ID) storagePath(dir string) string {
	return filepath.Join(dir, x.String()+sep+storageFileSuffix)
}

const (
	sep               = "-"
	stateFileSuffix   = "state.json"
	storageFileSuffix = "storage.csv"
)

// Roles of the dumped contracts. Role is the first column of the storage CSV.
const (
	roleVault = "vault"
	roleMint  = "mint"
)

// number of columns in the storage CSV: role, mint, key, value.
const storageColumns = 4

var _encoding = base64.StdEncoding

// dumpState is a JSON-encoded content of the state file.
type dumpState struct {
	Vault *state.Contract  `json:"vault"`
	Mints []state.Contract `json:"mints"`
}
