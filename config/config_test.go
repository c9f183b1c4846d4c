package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNodeDefaults(t *testing.T) {
	cfg, err := LoadNode("", "")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"stdout"}, cfg.Log.Out)
	assert.Equal(t, 128, cfg.StateDB.Keep)
	assert.Equal(t, 250, cfg.Block.MaxChunks)
	assert.True(t, cfg.Block.CheckTimeRange)
	assert.Equal(t, 4000000, cfg.Gas.TxGasLimit)
	assert.Equal(t, 10*time.Second, cfg.L1.PollInterval.Duration)
	assert.Equal(t, ethCommon.Address{}, cfg.L1.RollupAddress)
	assert.Equal(t, "", cfg.Debug.APIAddress)
}

func TestLoadNodeFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[StateDB]
Path = "/tmp/zkrollup"

[Block]
MaxChunks = 100
FeeAccountID = 3

[L1]
RollupAddress = "0x00000000000000000000000000000000000000aa"
PollInterval = "2s"
Confirmations = 4
`), 0600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath,
		[]byte("ZKROLLUP_DEBUG_APIADDRESS=localhost:12345\n"), 0600))
	t.Setenv("ZKROLLUP_BLOCK_MAXCHUNKS", "50")
	// variables already in the environment are not overridden by the file
	t.Setenv("ZKROLLUP_DEBUG_APIADDRESS", "localhost:4010")

	cfg, err := LoadNode(path, envPath)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/zkrollup", cfg.StateDB.Path)
	assert.Equal(t, 50, cfg.Block.MaxChunks)
	assert.Equal(t, 3, cfg.Block.FeeAccountID)
	assert.Equal(t, 4, cfg.L1.Confirmations)
	assert.Equal(t, 2*time.Second, cfg.L1.PollInterval.Duration)
	assert.Equal(t, ethCommon.HexToAddress("0xaa"), cfg.L1.RollupAddress)
	assert.Equal(t, "localhost:4010", cfg.Debug.APIAddress)
}

func TestLoadNodeErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadNode(filepath.Join(dir, "missing.toml"), "")
	assert.Error(t, err)

	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[L1]
PollInterval = "10 parsecs"
`), 0600))
	_, err = LoadNode(path, "")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
[Block]
FeeAccountID = 16777216
`), 0600))
	_, err = LoadNode(path, "")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
[StateDB]
Path = ""
`), 0600))
	_, err = LoadNode(path, "")
	assert.Error(t, err)
}
