package protocol

import (
	"math"
	"strconv"
	"strings"

	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
)

// AddressLen is the length of a ledger address
const AddressLen = 56

// blocklast rows carry the block hash at this index
const blockHashIndex = 7

// MempoolEntry is one pending transaction as delivered by mpget
type MempoolEntry struct {
	Timestamp string
	Sender    string
	Recipient string
	Amount    float64
	Signature string
	PublicKey string
	Operation string
	Openfield string
}

// ParseBlockLast extracts the block hash from a blocklast reply
func ParseBlockLast(reply any) (string, error) {
	row, ok := reply.([]any)
	if !ok {
		return "", apperrors.Protocol("blocklast: expected array, got %T", reply)
	}
	if len(row) <= blockHashIndex {
		return "", apperrors.Protocol("blocklast: expected at least %d fields, got %d", blockHashIndex+1, len(row))
	}
	hash, ok := row[blockHashIndex].(string)
	if !ok || hash == "" {
		return "", apperrors.Protocol("blocklast: block hash is %T", row[blockHashIndex])
	}
	return hash, nil
}

// ParseDiffGet extracts the integer network difficulty from a diffget reply
func ParseDiffGet(reply any) (int, error) {
	row, ok := reply.([]any)
	if !ok {
		return 0, apperrors.Protocol("diffget: expected array, got %T", reply)
	}
	if len(row) < 2 {
		return 0, apperrors.Protocol("diffget: expected at least 2 fields, got %d", len(row))
	}
	d, ok := ParseNumber(row[1])
	if !ok || d < 0 {
		return 0, apperrors.Protocol("diffget: invalid difficulty %v", row[1])
	}
	return int(d), nil
}

// ParsePercentage decodes the pool's share qualification percentage
func ParsePercentage(reply any) (int, error) {
	p, ok := ParseNumber(reply)
	if !ok {
		return 0, apperrors.Protocol("diffp: invalid percentage %v", reply)
	}
	return int(p), nil
}

// ParseMempool decodes an mpget reply. The "[]" sentinel and an empty array both mean no entries.
func ParseMempool(reply any) ([]MempoolEntry, error) {
	switch v := reply.(type) {
	case string:
		if strings.TrimSpace(v) == "[]" {
			return nil, nil
		}
		return nil, apperrors.Protocol("mpget: unexpected string reply %q", v)
	case []any:
		entries := make([]MempoolEntry, 0, len(v))
		for i, raw := range v {
			row, ok := raw.([]any)
			if !ok || len(row) < 8 {
				return nil, apperrors.Protocol("mpget: entry %d is not an 8-field row", i)
			}
			amount, ok := ParseNumber(row[3])
			if !ok {
				return nil, apperrors.Protocol("mpget: entry %d has invalid amount %v", i, row[3])
			}
			entries = append(entries, MempoolEntry{
				Timestamp: Text(row[0]),
				Sender:    Truncate(Text(row[1]), AddressLen),
				Recipient: Truncate(Text(row[2]), AddressLen),
				Amount:    amount,
				Signature: Text(row[4]),
				PublicKey: Text(row[5]),
				Operation: Text(row[6]),
				Openfield: Text(row[7]),
			})
		}
		return entries, nil
	case nil:
		return nil, nil
	default:
		return nil, apperrors.Protocol("mpget: expected array, got %T", reply)
	}
}

// ParseNumber accepts a JSON number or a numeric string
func ParseNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Text renders a decoded JSON scalar the way the node prints it
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// Truncate cuts s to at most n bytes
func Truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
