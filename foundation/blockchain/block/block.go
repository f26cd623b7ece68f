// Package block provides the block and transaction types for the chain along
// with the hashing and proof of work support.
package block

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampFormat is the layout used to timestamp newly mined blocks.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// MaxDifficulty is the number of hex characters in a block hash.
const MaxDifficulty = sha256.Size * 2

// =============================================================================

// Tx represents a transfer of value between two wallets.
type Tx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// NewTx constructs a new transaction.
func NewTx(from string, to string, amount int64) Tx {
	return Tx{
		From:   from,
		To:     to,
		Amount: amount,
	}
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s:%d", tx.From, tx.To, tx.Amount)
}

// =============================================================================

// Block represents a group of transactions batched together. Once a block
// has been mined, none of these fields can change.
type Block struct {
	Index        uint64 `json:"index"`        // Position of the block in the chain.
	Timestamp    string `json:"timestamp"`    // Time the block was created.
	Data         []Tx   `json:"data"`         // Transactions in the order they were mined.
	PreviousHash string `json:"previousHash"` // Hash of the previous block in the chain.
	Miner        string `json:"miner"`        // Address of the wallet receiving the reward.
	Nonce        uint64 `json:"nonce"`        // Value identified to solve the hash solution.
	Hash         string `json:"hash"`         // Digest of all the fields above.
}

// New constructs a block with a zero nonce and computes its hash.
func New(index uint64, timestamp string, data []Tx, previousHash string, miner string) Block {
	if data == nil {
		data = []Tx{}
	}

	b := Block{
		Index:        index,
		Timestamp:    timestamp,
		Data:         data,
		PreviousHash: previousHash,
		Miner:        miner,
		Nonce:        0,
	}
	b.Hash = b.CalculateHash()

	return b
}

// Now returns the current time formatted as a block timestamp.
func Now() string {
	return time.Now().UTC().Format(TimestampFormat)
}

// CalculateHash returns the digest of the block fields. Every node must
// produce the same bytes for the same block or remote validation breaks, so
// the layout here is the decimal index, the timestamp, the compact JSON of the
// transactions, the previous hash, the miner and the decimal nonce.
func (b Block) CalculateHash() string {
	data := b.Data
	if data == nil {
		data = []Tx{}
	}

	var txs bytes.Buffer
	enc := json.NewEncoder(&txs)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(b.Index, 10))
	sb.WriteString(b.Timestamp)
	sb.Write(bytes.TrimSuffix(txs.Bytes(), []byte("\n")))
	sb.WriteString(b.PreviousHash)
	sb.WriteString(b.Miner)
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// IsSelfConsistent reports whether the stored hash matches a fresh
// calculation over the block fields.
func (b Block) IsSelfConsistent() bool {
	return b.Hash == b.CalculateHash()
}

// Mine performs the proof of work. Starting from the current nonce, the nonce
// is incremented by one until the hash has difficulty leading zeros. The only
// way to stop a search early is to cancel the context. Pointer semantics are
// being used since a nonce is being discovered.
func (b *Block) Mine(ctx context.Context, difficulty uint16) error {
	for !IsHashSolved(difficulty, b.Hash) {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.Nonce++
		b.Hash = b.CalculateHash()
	}

	return nil
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of 0's.
func IsHashSolved(difficulty uint16, hash string) bool {
	if int(difficulty) > MaxDifficulty {
		return false
	}

	if len(hash) < int(difficulty) {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}
