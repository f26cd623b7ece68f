// Package genesis maintains access to the genesis settings for the chain.
package genesis

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/ardanlabs/gjchain/foundation/blockchain/block"
)

// These are the values used for the genesis block when no genesis file
// overrides them.
const (
	DefaultDate         = "01/04/2025"
	DefaultMiner        = "gjGenesis"
	DefaultDifficulty   = 4
	DefaultMiningReward = 10
)

// GenesisPreviousHash is the previous hash recorded in the genesis block.
const GenesisPreviousHash = "0"

// Genesis represents the genesis file.
type Genesis struct {
	Date         string           `json:"date"`          // Timestamp recorded in the genesis block.
	Miner        string           `json:"miner"`         // Miner recorded in the genesis block.
	Difficulty   uint16           `json:"difficulty"`    // How difficult it needs to be to solve the work problem.
	MiningReward int64            `json:"mining_reward"` // Reward for mining a block.
	Balances     map[string]int64 `json:"balances"`      // Balances credited when the chain is created.
}

// Default returns the genesis settings used when no file exists.
func Default() Genesis {
	return Genesis{
		Date:         DefaultDate,
		Miner:        DefaultMiner,
		Difficulty:   DefaultDifficulty,
		MiningReward: DefaultMiningReward,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. A missing file produces the
// default genesis and any field left out of the file keeps its default.
func Load(path string) (Genesis, error) {
	gen := Default()

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return gen, nil
		}
		return Genesis{}, err
	}

	if err := json.Unmarshal(content, &gen); err != nil {
		return Genesis{}, err
	}

	if gen.Difficulty > block.MaxDifficulty {
		return Genesis{}, errors.New("difficulty is larger than the hash length")
	}

	return gen, nil
}

// Block constructs the deterministic first block of the chain.
func (g Genesis) Block() block.Block {
	return block.New(0, g.Date, []block.Tx{}, GenesisPreviousHash, g.Miner)
}
