package contracts

import (
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/stretchr/testify/require"
)

func TestCompileVault(t *testing.T) {
	c, err := Compile("./" + VaultDir)
	require.NoError(t, err)
	require.Equal(t, "Vault", c.Manifest.Name)

	for _, method := range []string{"createVault", "deposit", "onNEP17Payment", "get", "deriveVault", "balance", "listVaults", "version", "update"} {
		require.NotNil(t, c.Manifest.ABI.GetMethod(method, -1), method)
	}

	require.True(t, c.Manifest.ABI.GetMethod("get", -1).Safe)
	require.False(t, c.Manifest.ABI.GetMethod("deposit", -1).Safe)
	require.NotNil(t, c.Manifest.ABI.GetEvent("VaultCreated"))
	require.NotNil(t, c.Manifest.ABI.GetEvent("Deposit"))
}

func TestCompileMissingConfig(t *testing.T) {
	_, err := Compile("./" + VaultDir + "/vaultconst")
	require.Error(t, err)
}

func TestGetMissingFiles(t *testing.T) {
	_fs := fstest.MapFS{}

	// Missing NEF
	_, err := Read(_fs, VaultDir)
	require.Error(t, err)

	// Missing manifest.
	_fs[VaultDir+"/"+nefName] = &fstest.MapFile{}
	_, err = Read(_fs, VaultDir)
	require.Error(t, err)
}

func TestReadInvalidFormat(t *testing.T) {
	var (
		_fs          = fstest.MapFS{}
		nefPath      = VaultDir + "/" + nefName
		manifestPath = VaultDir + "/" + manifestName
	)

	_, validNEF := anyValidNEF(t)
	_, validManifest := anyValidManifest(t, "zero")

	_fs[nefPath] = &fstest.MapFile{Data: validNEF}
	_fs[manifestPath] = &fstest.MapFile{Data: validManifest}

	c, err := Read(_fs, VaultDir)
	require.NoError(t, err)
	require.Len(t, c, 1)
	require.Equal(t, "zero", c[0].Manifest.Name)

	_fs[nefPath] = &fstest.MapFile{Data: []byte("not a NEF")}
	_fs[manifestPath] = &fstest.MapFile{Data: validManifest}

	_, err = Read(_fs, VaultDir)
	require.ErrorIs(t, err, errInvalidNEF)

	_fs[nefPath] = &fstest.MapFile{Data: validNEF}
	_fs[manifestPath] = &fstest.MapFile{Data: []byte("not a manifest")}

	_, err = Read(_fs, VaultDir)
	require.ErrorIs(t, err, errInvalidManifest)
}

func anyValidNEF(tb testing.TB) (nef.File, []byte) {
	script := make([]byte, 32)

	_nef, err := nef.NewFile(script)
	require.NoError(tb, err)

	bNEF, err := _nef.Bytes()
	require.NoError(tb, err)

	return *_nef, bNEF
}

func anyValidManifest(tb testing.TB, name string) (manifest.Manifest, []byte) {
	_manifest := manifest.NewManifest(name)

	jManifest, err := json.Marshal(_manifest)
	require.NoError(tb, err)

	return *_manifest, jManifest
}
