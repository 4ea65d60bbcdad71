package ledger

import "encoding/json"

// Block is one committed command in the log.
type Block struct {
	Index      int             `json:"index"`
	Timestamp  int64           `json:"timestamp"`
	PrevHash   string          `json:"prev_hash"`
	Hash       string          `json:"hash"`
	Kind       string          `json:"kind"`
	Actor      int             `json:"actor"`
	DecisionID string          `json:"decision_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the block payload into v.
func (b Block) Decode(v any) error {
	return json.Unmarshal(b.Payload, v)
}
