package dump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func contractState(id int32, h util.Uint160, name string) state.Contract {
	return state.Contract{ContractBase: state.ContractBase{
		ID:       id,
		Hash:     h,
		Manifest: *manifest.NewManifest(name),
	}}
}

func TestDumpRoundTrip(t *testing.T) {
	dir := t.TempDir()
	id := ID{Label: "private-net", Block: 42}

	var (
		mint       = util.Uint160{1, 2, 3}
		otherMint  = util.Uint160{7, 8, 9}
		vaultState = contractState(2, util.Uint160{4, 5, 6}, "Vault")
	)

	c, err := NewCreator(dir, id)
	require.NoError(t, err)

	w := c.SetVault(vaultState)
	require.NoError(t, w.Write([]byte("v1"), []byte("record")))
	require.NoError(t, w.Write([]byte("v2"), []byte{}))

	w = c.AddMint(contractState(1, mint, "Token"))
	require.NoError(t, w.Write([]byte("b1"), []byte{100}))

	c.AddMint(contractState(3, otherMint, "Other"))

	require.NoError(t, c.Flush())
	require.NoError(t, c.Close())

	_, err = NewCreator(dir, id)
	require.Error(t, err, "dump must not be overwritten")

	var found int
	err = IterateDumps(dir, func(readID ID, r *Reader) {
		found++
		require.Equal(t, id, readID)

		require.Equal(t, vaultState.Hash, r.Vault().Hash)
		require.Len(t, r.Mints(), 2)

		st, ok := r.Mint(mint)
		require.True(t, ok)
		require.Equal(t, "Token", st.Manifest.Name)

		_, ok = r.Mint(util.Uint160{})
		require.False(t, ok)

		vaultItems := make(map[string]string)
		r.IterateVaultStorage(func(key, value []byte) {
			vaultItems[string(key)] = string(value)
		})
		require.Equal(t, map[string]string{"v1": "record", "v2": ""}, vaultItems)

		var mintItems [][2]string
		r.IterateMintStorage(mint, func(key, value []byte) {
			mintItems = append(mintItems, [2]string{string(key), string(value)})
		})
		require.Equal(t, [][2]string{{"b1", string([]byte{100})}}, mintItems)

		r.IterateMintStorage(otherMint, func([]byte, []byte) {
			t.Fatal("no storage items expected")
		})
	})
	require.NoError(t, err)
	require.Equal(t, 1, found)
}

func TestFlushWithoutVault(t *testing.T) {
	c, err := NewCreator(t.TempDir(), ID{Label: "test", Block: 1})
	require.NoError(t, err)
	defer c.Close()

	c.AddMint(contractState(1, util.Uint160{1}, "Token"))
	require.Error(t, c.Flush())
}

func TestReadCorruptedStorage(t *testing.T) {
	dir := t.TempDir()
	id := ID{Label: "test", Block: 1}

	c, err := NewCreator(dir, id)
	require.NoError(t, err)
	c.SetVault(contractState(1, util.Uint160{1}, "Vault"))
	require.NoError(t, c.Flush())
	require.NoError(t, c.Close())

	for _, line := range []string{
		"vault,,AQ==\n",             // missing value
		"alien,,AQ==,AQ==\n",        // unknown role
		"mint,0102,AQ==,AQ==\n",     // invalid mint hash
		"vault,,not base64!,AQ==\n", // invalid key
		"mint," + util.Uint160{9}.StringLE() + ",AQ==,AQ==\n", // unknown mint
	} {
		require.NoError(t, os.WriteFile(id.storagePath(dir), []byte(line), 0600))

		err = IterateDumps(dir, func(ID, *Reader) {
			t.Fatalf("corrupted dump must not be read: %q", line)
		})
		require.Error(t, err, line)
	}
}

func TestIterateDumpsSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), nil, 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "x-1-state.json"), 0700))

	err := IterateDumps(dir, func(ID, *Reader) {
		t.Fatal("no dumps expected")
	})
	require.NoError(t, err)
}

func TestIterateMissingDir(t *testing.T) {
	err := IterateDumps(filepath.Join(t.TempDir(), "none"), func(ID, *Reader) {
		t.Fatal("no dumps expected")
	})
	require.NoError(t, err)
}

func TestIDFileName(t *testing.T) {
	id := ID{Label: "private-net", Block: 100500}
	require.Equal(t, "private-net-100500", id.String())

	var decoded ID
	require.NoError(t, decoded.decodeFileName(filepath.Base(id.statePath("dir"))))
	require.Equal(t, id, decoded)

	require.Error(t, decoded.decodeFileName(filepath.Base(id.storagePath("dir"))))
	require.Error(t, decoded.decodeFileName("mainnet-state.json"))
	require.Error(t, decoded.decodeFileName("mainnet-block-state.json"))
}
