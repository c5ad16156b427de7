// Package block assembles candidate blocks: mempool transactions followed by a signed reward
package block

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carlosrabelo/powminer/internal/protocol"
)

// RewardAmount is the fixed amount carried by the reward transaction
const RewardAmount = "0.00000000"

// Transaction is the canonical 8-field record appended to a block
type Transaction struct {
	Timestamp string
	Sender    string
	Recipient string
	Amount    string
	Signature string
	PublicKey string
	Operation string
	Openfield string
}

// Fields returns the wire order
func (t Transaction) Fields() []string {
	return []string{t.Timestamp, t.Sender, t.Recipient, t.Amount, t.Signature, t.PublicKey, t.Operation, t.Openfield}
}

// MarshalJSON encodes the transaction as an 8-element array
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Fields())
}

// UnmarshalJSON decodes an 8-element array
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var f []string
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if len(f) != 8 {
		return fmt.Errorf("transaction has %d fields, want 8", len(f))
	}
	*t = Transaction{f[0], f[1], f[2], f[3], f[4], f[5], f[6], f[7]}
	return nil
}

// FromMempool converts a node mempool entry, formatting the amount to 8 decimals
func FromMempool(e protocol.MempoolEntry) Transaction {
	return Transaction{
		Timestamp: e.Timestamp,
		Sender:    protocol.Truncate(e.Sender, protocol.AddressLen),
		Recipient: protocol.Truncate(e.Recipient, protocol.AddressLen),
		Amount:    FormatAmount(e.Amount),
		Signature: e.Signature,
		PublicKey: e.PublicKey,
		Operation: e.Operation,
		Openfield: e.Openfield,
	}
}

// NewReward builds the unsigned reward transaction paying address to itself
func NewReward(at time.Time, address, nonce string) Transaction {
	addr := protocol.Truncate(address, protocol.AddressLen)
	return Transaction{
		Timestamp: FormatTimestamp(at),
		Sender:    addr,
		Recipient: addr,
		Amount:    RewardAmount,
		Operation: "0",
		Openfield: nonce,
	}
}

// FormatTimestamp renders seconds since the epoch with 2 decimals
func FormatTimestamp(at time.Time) string {
	return strconv.FormatFloat(float64(at.UnixNano())/1e9, 'f', 2, 64)
}

// FormatAmount renders an amount with 8 decimals
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}

// SigningPayload is the tuple text the reward signature covers. Nodes rebuild the same text to verify.
func (t Transaction) SigningPayload() string {
	parts := []string{t.Timestamp, t.Sender, t.Recipient, t.Amount, t.Operation, t.Openfield}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = quote(p)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// quote renders s as a single-quoted literal, switching to double quotes when s holds only single quotes
func quote(s string) string {
	q := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, "\"") {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == q:
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// Block is a sequence of transaction lists. Assembled blocks always hold exactly one list.
type Block [][]Transaction

// NewBlock wraps txs as a single-list block
func NewBlock(txs []Transaction) Block {
	return Block{txs}
}

// Transactions flattens the block
func (b Block) Transactions() []Transaction {
	var out []Transaction
	for _, list := range b {
		out = append(out, list...)
	}
	return out
}
