package storage

import "github.com/RevelationOfTuring/v3-periphery/internal/model"

// Storage defines a sink for simulation output.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
	PutMintReceiptBatch(receipts []model.MintReceipt) error
}
