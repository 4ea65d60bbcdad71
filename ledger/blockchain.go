package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// GenesisKind is the kind of the first block of every chain.
const GenesisKind = "genesis"

// Blockchain is an append-only, hash-chained log of the commands a rule
// engine accepted. It is safe for concurrent use.
type Blockchain struct {
	mu     sync.RWMutex
	blocks []Block
	now    func() time.Time
}

// NewBlockchain creates a chain holding only the genesis block. The genesis
// payload, when not nil, is the JSON encoding of meta.
func NewBlockchain(meta any) (*Blockchain, error) {
	bc := &Blockchain{now: time.Now}

	var payload json.RawMessage
	if meta != nil {
		b, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("encode genesis: %w", err)
		}
		payload = b
	}
	genesis := Block{
		Index:     0,
		Timestamp: bc.now().UnixNano(),
		PrevHash:  "0",
		Kind:      GenesisKind,
		Actor:     -1,
		Payload:   payload,
	}
	genesis.Hash = calculateHash(genesis)
	bc.blocks = append(bc.blocks, genesis)
	return bc, nil
}

// Append encodes cmd and links it after the latest block.
func (bc *Blockchain) Append(kind string, actor int, decisionID string, cmd any) (Block, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return Block{}, fmt.Errorf("encode %s: %w", kind, err)
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	if len(bc.blocks) == 0 {
		return Block{}, fmt.Errorf("blockchain is empty")
	}
	latest := bc.blocks[len(bc.blocks)-1]
	block := Block{
		Index:      latest.Index + 1,
		Timestamp:  bc.now().UnixNano(),
		PrevHash:   latest.Hash,
		Kind:       kind,
		Actor:      actor,
		DecisionID: decisionID,
		Payload:    payload,
	}
	block.Hash = calculateHash(block)

	if err := validateBlock(block, latest); err != nil {
		return Block{}, fmt.Errorf("invalid block: %w", err)
	}
	bc.blocks = append(bc.blocks, block)
	return block, nil
}

// GetLatest returns the most recently added block.
func (bc *Blockchain) GetLatest() (Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return Block{}, fmt.Errorf("blockchain is empty")
	}
	return bc.blocks[len(bc.blocks)-1], nil
}

// GetByIndex returns a copy of the block at index.
func (bc *Blockchain) GetByIndex(index int) (Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if index < 0 || index >= len(bc.blocks) {
		return Block{}, fmt.Errorf("index %d out of range", index)
	}
	return bc.blocks[index], nil
}

// Len returns the number of blocks, genesis included.
func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.blocks)
}

// Since returns copies of every block with an index greater than index.
func (bc *Blockchain) Since(index int) []Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	start := index + 1
	if start < 0 {
		start = 0
	}
	if start >= len(bc.blocks) {
		return nil
	}
	return append([]Block(nil), bc.blocks[start:]...)
}

// Verify checks the genesis block and every link of the chain.
func (bc *Blockchain) Verify() error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return fmt.Errorf("empty blockchain")
	}
	genesis := bc.blocks[0]
	if genesis.PrevHash != "0" || genesis.Kind != GenesisKind {
		return fmt.Errorf("invalid genesis block")
	}
	if genesis.Hash != calculateHash(genesis) {
		return fmt.Errorf("invalid genesis hash")
	}
	for i := 1; i < len(bc.blocks); i++ {
		if err := validateBlock(bc.blocks[i], bc.blocks[i-1]); err != nil {
			return fmt.Errorf("block %d invalid: %w", i, err)
		}
	}
	return nil
}

func validateBlock(current, previous Block) error {
	if current.Index != previous.Index+1 {
		return fmt.Errorf("invalid index: expected %d, got %d", previous.Index+1, current.Index)
	}
	if current.PrevHash != previous.Hash {
		return fmt.Errorf("invalid prev hash: expected %s, got %s", previous.Hash, current.PrevHash)
	}
	if expected := calculateHash(current); current.Hash != expected {
		return fmt.Errorf("invalid hash: expected %s, got %s", expected, current.Hash)
	}
	return nil
}

func calculateHash(block Block) string {
	data := fmt.Sprintf("%d|%d|%s|%s|%d|%s|%s",
		block.Index,
		block.Timestamp,
		block.PrevHash,
		block.Kind,
		block.Actor,
		block.DecisionID,
		string(block.Payload),
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
