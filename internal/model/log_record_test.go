package model

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestLogRecordJSONRoundTrip(t *testing.T) {
	original := LogRecord{
		ChainID:     56,
		BlockNumber: 36000000,
		BlockHash:   "0xabc123",
		TxHash:      "0xdef456",
		TxIndex:     7,
		LogIndex:    12,
		Address:     "0x1111111111111111111111111111111111111111",
		Topics:      []string{"0xaaa", "0xbbb"},
		Data:        "0xdeadbeef",
		Removed:     false,
		Timestamp:   1700000000,
		IngestedAt:  "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded LogRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestNewLogRecord(t *testing.T) {
	log := types.Log{
		Address:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Topics:      []common.Hash{common.HexToHash("0xaa"), common.HexToHash("0xbb")},
		Data:        []byte{0xde, 0xad},
		BlockNumber: 7,
		TxHash:      common.HexToHash("0x01"),
		TxIndex:     2,
		Index:       3,
	}
	ingested := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := NewLogRecord(31337, log, 1700000000, ingested)
	if rec.ChainID != 31337 || rec.BlockNumber != 7 || rec.LogIndex != 3 || rec.TxIndex != 2 {
		t.Fatalf("position mismatch: %+v", rec)
	}
	if rec.Data != "0xdead" {
		t.Fatalf("data mismatch: %s", rec.Data)
	}
	if len(rec.Topics) != 2 || rec.Topics[0] != common.HexToHash("0xaa").Hex() {
		t.Fatalf("topics mismatch: %v", rec.Topics)
	}
	if rec.IngestedAt != "2024-01-01T00:00:00Z" {
		t.Fatalf("ingested at mismatch: %s", rec.IngestedAt)
	}
}
