package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/RevelationOfTuring/v3-periphery/internal/model"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan %s: %v", path, err)
	}
	return lines
}

func TestJsonlStorageAppends(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out", "logs.jsonl")
	receiptPath := filepath.Join(dir, "out", "receipts.jsonl")
	var sink Storage = NewJsonlStorage(logPath, receiptPath)

	first := []model.LogRecord{{ChainID: 1, BlockNumber: 10, LogIndex: 0}}
	second := []model.LogRecord{{ChainID: 1, BlockNumber: 11, LogIndex: 0}, {ChainID: 1, BlockNumber: 11, LogIndex: 1}}
	if err := sink.PutLogBatch(first); err != nil {
		t.Fatalf("put first batch: %v", err)
	}
	if err := sink.PutLogBatch(second); err != nil {
		t.Fatalf("put second batch: %v", err)
	}

	lines := readLines(t, logPath)
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d", len(lines))
	}
	var last model.LogRecord
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("unmarshal last line: %v", err)
	}
	if last.BlockNumber != 11 || last.LogIndex != 1 {
		t.Fatalf("unexpected last record: %+v", last)
	}

	receipts := []model.MintReceipt{{Step: 0, Action: "add_liquidity", Status: model.ReceiptSuccess, Liquidity: "200501"}}
	if err := sink.PutMintReceiptBatch(receipts); err != nil {
		t.Fatalf("put receipts: %v", err)
	}
	lines = readLines(t, receiptPath)
	if len(lines) != 1 {
		t.Fatalf("expected 1 receipt line, got %d", len(lines))
	}
	var got model.MintReceipt
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("unmarshal receipt: %v", err)
	}
	if got.Action != "add_liquidity" || got.Liquidity != "200501" || got.Status != model.ReceiptSuccess {
		t.Fatalf("unexpected receipt: %+v", got)
	}
}

func TestJsonlStorageSkipsEmpty(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs.jsonl")
	sink := NewJsonlStorage(logPath, "")

	if err := sink.PutLogBatch(nil); err != nil {
		t.Fatalf("put empty batch: %v", err)
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Fatalf("expected no file for empty batch, stat err=%v", err)
	}
	if err := sink.PutMintReceiptBatch([]model.MintReceipt{{Action: "approve"}}); err != nil {
		t.Fatalf("put receipts without path: %v", err)
	}
}
