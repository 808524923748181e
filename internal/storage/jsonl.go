package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RevelationOfTuring/v3-periphery/internal/model"
)

// JsonlStorage writes log records and receipts to two JSONL files.
type JsonlStorage struct {
	logPath     string
	receiptPath string
	mu          sync.Mutex
}

// NewJsonlStorage returns a sink writing logs to logPath and receipts to
// receiptPath. An empty path discards that stream.
func NewJsonlStorage(logPath, receiptPath string) *JsonlStorage {
	return &JsonlStorage{logPath: logPath, receiptPath: receiptPath}
}

// PutLogBatch appends a batch of log records as JSON lines.
func (s *JsonlStorage) PutLogBatch(logs []model.LogRecord) error {
	return appendLines(&s.mu, s.logPath, logs)
}

// PutMintReceiptBatch appends a batch of receipts as JSON lines.
func (s *JsonlStorage) PutMintReceiptBatch(receipts []model.MintReceipt) error {
	return appendLines(&s.mu, s.receiptPath, receipts)
}

func appendLines[T any](mu *sync.Mutex, path string, records []T) error {
	if len(records) == 0 || path == "" {
		return nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
