package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"tokamak-zkrollup/common"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator"
	"github.com/joho/godotenv"
)

// Duration is a wrapper type that parses time duration from text.
type Duration struct {
	time.Duration `validate:"required"`
}

// UnmarshalText unmarshalls time duration from text.
func (d *Duration) UnmarshalText(data []byte) error {
	duration, err := time.ParseDuration(string(data))
	if err != nil {
		return common.Wrap(err)
	}
	d.Duration = duration
	return nil
}

// DefaultValues of the Node configuration, overwritten by the file and then
// by the environment
const DefaultValues = `
[Log]
Level = "info"
Out = ["stdout"]

[StateDB]
Path = "/var/lib/zkrollup/statedb"
Keep = 128

[Block]
MaxChunks = 250
FeeAccountID = 0
CheckTimeRange = true

[Gas]
TxGasLimit = 4000000

[L1]
NodeURL = "http://localhost:8545"
RollupAddress = "0x0000000000000000000000000000000000000000"
Confirmations = 10
PollInterval = "10s"
StartBlock = 0
StartSerialID = 0

[Debug]
APIAddress = ""
`

// Node is the configuration of the zkrollup node
type Node struct {
	Log struct {
		// Level is the log level: debug, info, warn, error
		Level string   `env:"ZKROLLUP_LOG_LEVEL" validate:"required"`
		Out   []string `env:"ZKROLLUP_LOG_OUT" validate:"required"`
	}
	StateDB struct {
		// Path where the StateDB current state and checkpoints are stored
		Path string `env:"ZKROLLUP_STATEDB_PATH" validate:"required"`
		// Keep is the number of checkpoints to keep
		Keep int `env:"ZKROLLUP_STATEDB_KEEP"`
	}
	Block struct {
		// MaxChunks is the maximum number of pubdata chunks of a block
		MaxChunks int `env:"ZKROLLUP_BLOCK_MAXCHUNKS" validate:"required"`
		// FeeAccountID is the account credited with the collected fees
		FeeAccountID   int  `env:"ZKROLLUP_BLOCK_FEEACCOUNTID"`
		CheckTimeRange bool `env:"ZKROLLUP_BLOCK_CHECKTIMERANGE"`
	}
	Gas struct {
		// TxGasLimit is the L1 gas limit of the commit and verify txs
		TxGasLimit int `env:"ZKROLLUP_GAS_TXGASLIMIT" validate:"required"`
	}
	L1 struct {
		// NodeURL is the url of the L1 ethereum node.  When empty the
		// node runs without priority operations
		NodeURL       string `env:"ZKROLLUP_L1_NODEURL"`
		RollupAddress ethCommon.Address
		// Confirmations is the number of blocks a log waits before its
		// priority operation is applied
		Confirmations int      `env:"ZKROLLUP_L1_CONFIRMATIONS"`
		PollInterval  Duration `validate:"required"`
		StartBlock    int      `env:"ZKROLLUP_L1_STARTBLOCK"`
		StartSerialID int      `env:"ZKROLLUP_L1_STARTSERIALID"`
	}
	Debug struct {
		// APIAddress is the address where the debug API listens.  Empty
		// disables it
		APIAddress string `env:"ZKROLLUP_DEBUG_APIADDRESS"`
	}
}

func loadDefault(defaultValues string, cfg interface{}) error {
	if _, err := toml.Decode(defaultValues, cfg); err != nil {
		return err
	}
	return nil
}

func loadFile(path string, cfg interface{}) error {
	bs, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	cfgToml := string(bs)
	if _, err := toml.Decode(cfgToml, cfg); err != nil {
		return err
	}
	return nil
}

func loadEnv(cfg interface{}) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}
	return nil
}

// LoadConfig is the function that loads the configuration
func LoadConfig(filePath string, defaultValues string, cfg interface{}) error {
	//Get default configuration
	if err := loadDefault(defaultValues, cfg); err != nil {
		return fmt.Errorf("error loading default configuration: %w", err)
	}
	// Get file configuration
	var errLoadFile error
	if filePath != "" {
		errLoadFile = loadFile(filePath, cfg)
	}
	// Overwrite file configuration with the env configuration
	errLoadEnv := loadEnv(cfg)
	if errLoadFile != nil {
		return fmt.Errorf("error loading configuration file: %w", errLoadFile)
	}
	if errLoadEnv != nil {
		return fmt.Errorf("error loading environment variables: %w", errLoadEnv)
	}
	return nil
}

// LoadNode loads the Node configuration from the defaults, the toml file at
// path and the environment.  If envFile is not empty its variables are added
// to the environment first, without overriding the ones already set.
func LoadNode(path, envFile string) (*Node, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, common.Wrap(fmt.Errorf("error loading env file %s: %w", envFile, err))
		}
	}
	var cfg Node
	if err := LoadConfig(path, DefaultValues, &cfg); err != nil {
		return nil, common.Wrap(err)
	}
	// env only descends into pointers, so each section is parsed on its own
	for _, section := range []interface{}{&cfg.Log, &cfg.StateDB, &cfg.Block, &cfg.Gas,
		&cfg.L1, &cfg.Debug} {
		if err := loadEnv(section); err != nil {
			return nil, common.Wrap(fmt.Errorf("error loading environment variables: %w", err))
		}
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, common.Wrap(fmt.Errorf("error validating configuration file: %w", err))
	}
	if cfg.Block.FeeAccountID < 0 || cfg.Block.FeeAccountID > int(common.MaxAccountID) {
		return nil, common.Wrap(fmt.Errorf("%w: fee account %d",
			common.ErrAccountIDOutOfRange, cfg.Block.FeeAccountID))
	}
	if cfg.Gas.TxGasLimit < 0 || cfg.L1.Confirmations < 0 || cfg.L1.StartBlock < 0 ||
		cfg.L1.StartSerialID < 0 {
		return nil, common.Wrap(fmt.Errorf("negative value in configuration"))
	}
	return &cfg, nil
}
