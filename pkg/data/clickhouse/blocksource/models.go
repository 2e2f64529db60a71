package blocksource

import "time"

// Block is one row of the raw blocks table.
type Block struct {
	BlockNumber uint64    `ch:"block_number" json:"blockNumber"`
	Hash        string    `ch:"hash" json:"hash"`
	ParentHash  string    `ch:"parent_hash" json:"parentHash"`
	BlockTime   time.Time `ch:"block_time" json:"blockTime"`
	Miner       string    `ch:"miner" json:"miner"`
	Size        uint64    `ch:"size" json:"size"`
	GasLimit    uint64    `ch:"gas_limit" json:"gasLimit"`
	GasUsed     uint64    `ch:"gas_used" json:"gasUsed"`
}

// LogicalIndex returns the block number.
func (b Block) LogicalIndex() int64 {
	return int64(b.BlockNumber)
}
