package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/RevelationOfTuring/v3-periphery/internal/model"
)

func TestEventCodecMintRoundTrip(t *testing.T) {
	codec, err := NewEventCodec()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	sender := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	log, err := codec.MintLog(pool, sender, owner, -100, 100, uint256.NewInt(5000), uint256.NewInt(25), uint256.NewInt(26))
	if err != nil {
		t.Fatalf("mint log: %v", err)
	}
	if log.Topics[2] != topicFromInt24(-100) || log.Topics[3] != topicFromInt24(100) {
		t.Fatalf("tick topics mismatch: %v", log.Topics)
	}

	record := logRecord(log)
	name, ok := codec.EventName(record.Topics[0])
	if !ok || name != EventMint {
		t.Fatalf("event name mismatch: %s", name)
	}

	mint, err := codec.DecodeMint(record)
	if err != nil {
		t.Fatalf("decode mint: %v", err)
	}
	want := model.MintEventData{
		Sender:    sender.Hex(),
		Owner:     owner.Hex(),
		TickLower: -100,
		TickUpper: 100,
		Amount:    "5000",
		Amount0:   "25",
		Amount1:   "26",
	}
	if mint != want {
		t.Fatalf("mint mismatch: %+v", mint)
	}
}

func TestEventCodecInitializeRoundTrip(t *testing.T) {
	codec, err := NewEventCodec()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	price := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	log, err := codec.InitializeLog(common.HexToAddress("0x01"), price, -887272)
	if err != nil {
		t.Fatalf("initialize log: %v", err)
	}

	decoded, err := codec.DecodeInitialize(logRecord(log))
	if err != nil {
		t.Fatalf("decode initialize: %v", err)
	}
	if decoded.SqrtPriceX96 != "79228162514264337593543950336" || decoded.Tick != -887272 {
		t.Fatalf("initialize mismatch: %+v", decoded)
	}
}

func TestEventCodecPoolCreatedRoundTrip(t *testing.T) {
	codec, err := NewEventCodec()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	factory := common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	token0 := common.HexToAddress("0x0000000000000000000000000000000000000001")
	token1 := common.HexToAddress("0x0000000000000000000000000000000000000002")
	pool := common.HexToAddress("0x3333333333333333333333333333333333333333")

	log, err := codec.PoolCreatedLog(factory, token0, token1, 3000, 60, pool)
	if err != nil {
		t.Fatalf("pool created log: %v", err)
	}

	record := logRecord(log)
	name, ok := codec.EventName(record.Topics[0])
	if !ok || name != EventPoolCreated {
		t.Fatalf("event name mismatch: %s", name)
	}

	decoded, err := codec.DecodePoolCreated(record)
	if err != nil {
		t.Fatalf("decode pool created: %v", err)
	}
	if decoded.Address != pool.Hex() || decoded.Token0 != token0.Hex() || decoded.Token1 != token1.Hex() {
		t.Fatalf("addresses mismatch: %+v", decoded)
	}
	if decoded.Fee != 3000 || decoded.TickSpacing != 60 || decoded.FirstSeenBlock != 12345 {
		t.Fatalf("pool fields mismatch: %+v", decoded)
	}
}

func TestEventCodecRejectsWrongTopicCount(t *testing.T) {
	codec, err := NewEventCodec()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	log, err := codec.MintLog(common.HexToAddress("0x01"), common.Address{}, common.Address{}, 0, 1, uint256.NewInt(1), uint256.NewInt(1), uint256.NewInt(1))
	if err != nil {
		t.Fatalf("mint log: %v", err)
	}
	record := logRecord(log)
	record.Topics = record.Topics[:2]
	if _, err := codec.DecodeMint(record); err == nil {
		t.Fatalf("expected error for truncated topics")
	}
	if _, ok := codec.EventName(""); ok {
		t.Fatalf("empty topic should not resolve")
	}
}

func logRecord(log *types.Log) model.LogRecord {
	log.BlockNumber = 12345
	return model.NewLogRecord(56, *log, 1700000000, testTime)
}

func topicFromInt24(value int32) common.Hash {
	bigVal := big.NewInt(int64(value))
	if value < 0 {
		bigVal = new(big.Int).Add(bigVal, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(bigVal)
}
