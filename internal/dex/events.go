package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/RevelationOfTuring/v3-periphery/internal/model"
)

// Event names handled by EventCodec.
const (
	EventInitialize       = "Initialize"
	EventMint             = "Mint"
	EventPoolCreated      = "PoolCreated"
	EventFeeAmountEnabled = "FeeAmountEnabled"
)

// EventCodec builds and decodes pool and factory logs.
type EventCodec struct {
	poolABI     abi.ABI
	factoryABI  abi.ABI
	topicToName map[string]string
}

// NewEventCodec parses the pool and factory ABIs.
func NewEventCodec() (*EventCodec, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}

	topicToName := map[string]string{
		strings.ToLower(poolABI.Events[EventInitialize].ID.Hex()):          EventInitialize,
		strings.ToLower(poolABI.Events[EventMint].ID.Hex()):                EventMint,
		strings.ToLower(factoryABI.Events[EventPoolCreated].ID.Hex()):      EventPoolCreated,
		strings.ToLower(factoryABI.Events[EventFeeAmountEnabled].ID.Hex()): EventFeeAmountEnabled,
	}

	return &EventCodec{
		poolABI:     poolABI,
		factoryABI:  factoryABI,
		topicToName: topicToName,
	}, nil
}

// EventName maps a topic0 to a known event name.
func (c *EventCodec) EventName(topic0 string) (string, bool) {
	if topic0 == "" {
		return "", false
	}
	name, ok := c.topicToName[strings.ToLower(topic0)]
	return name, ok
}

// InitializeLog builds the pool's Initialize log.
func (c *EventCodec) InitializeLog(pool common.Address, sqrtPriceX96 *uint256.Int, tick int32) (*types.Log, error) {
	event := c.poolABI.Events[EventInitialize]
	data, err := event.Inputs.NonIndexed().Pack(sqrtPriceX96.ToBig(), big.NewInt(int64(tick)))
	if err != nil {
		return nil, fmt.Errorf("pack initialize: %w", err)
	}
	return &types.Log{Address: pool, Topics: []common.Hash{event.ID}, Data: data}, nil
}

// MintLog builds the pool's Mint log.
func (c *EventCodec) MintLog(pool, sender, owner common.Address, tickLower, tickUpper int32, amount, amount0, amount1 *uint256.Int) (*types.Log, error) {
	event := c.poolABI.Events[EventMint]
	data, err := event.Inputs.NonIndexed().Pack(sender, amount.ToBig(), amount0.ToBig(), amount1.ToBig())
	if err != nil {
		return nil, fmt.Errorf("pack mint: %w", err)
	}
	topics, err := abi.MakeTopics([]interface{}{owner}, []interface{}{tickLower}, []interface{}{tickUpper})
	if err != nil {
		return nil, fmt.Errorf("mint topics: %w", err)
	}
	return &types.Log{Address: pool, Topics: withTopic0(event.ID, topics), Data: data}, nil
}

// PoolCreatedLog builds the factory's PoolCreated log.
func (c *EventCodec) PoolCreatedLog(factory, token0, token1 common.Address, fee uint32, tickSpacing int32, pool common.Address) (*types.Log, error) {
	event := c.factoryABI.Events[EventPoolCreated]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(int64(tickSpacing)), pool)
	if err != nil {
		return nil, fmt.Errorf("pack pool created: %w", err)
	}
	topics, err := abi.MakeTopics([]interface{}{token0}, []interface{}{token1}, []interface{}{new(big.Int).SetUint64(uint64(fee))})
	if err != nil {
		return nil, fmt.Errorf("pool created topics: %w", err)
	}
	return &types.Log{Address: factory, Topics: withTopic0(event.ID, topics), Data: data}, nil
}

// FeeAmountEnabledLog builds the factory's FeeAmountEnabled log.
func (c *EventCodec) FeeAmountEnabledLog(factory common.Address, fee uint32, tickSpacing int32) (*types.Log, error) {
	event := c.factoryABI.Events[EventFeeAmountEnabled]
	topics, err := abi.MakeTopics([]interface{}{new(big.Int).SetUint64(uint64(fee))}, []interface{}{tickSpacing})
	if err != nil {
		return nil, fmt.Errorf("fee amount topics: %w", err)
	}
	return &types.Log{Address: factory, Topics: withTopic0(event.ID, topics)}, nil
}

// DecodeInitialize decodes an Initialize log record.
func (c *EventCodec) DecodeInitialize(log model.LogRecord) (model.InitializeEventData, error) {
	event := c.poolABI.Events[EventInitialize]
	if _, err := parseIndexedTopics(event, log.Topics); err != nil {
		return model.InitializeEventData{}, err
	}
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.InitializeEventData{}, err
	}
	if len(values) != 2 {
		return model.InitializeEventData{}, fmt.Errorf("unexpected initialize values: %d", len(values))
	}

	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.InitializeEventData{}, err
	}

	return model.InitializeEventData{SqrtPriceX96: sqrtPrice.String(), Tick: tick}, nil
}

// DecodeMint decodes a Mint log record.
func (c *EventCodec) DecodeMint(log model.LogRecord) (model.MintEventData, error) {
	event := c.poolABI.Events[EventMint]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.MintEventData{}, err
	}

	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.MintEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.MintEventData{}, err
	}
	if len(values) != 4 {
		return model.MintEventData{}, fmt.Errorf("unexpected mint values: %d", len(values))
	}

	sender, err := asAddress(values[0])
	if err != nil {
		return model.MintEventData{}, err
	}
	amounts := make([]*big.Int, 3)
	for i := range amounts {
		if amounts[i], err = asBigInt(values[i+1]); err != nil {
			return model.MintEventData{}, err
		}
	}

	tickLower, err := int24FromBig(indexed.TickLower)
	if err != nil {
		return model.MintEventData{}, err
	}
	tickUpper, err := int24FromBig(indexed.TickUpper)
	if err != nil {
		return model.MintEventData{}, err
	}

	return model.MintEventData{
		Sender:    sender.Hex(),
		Owner:     indexed.Owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    amounts[0].String(),
		Amount0:   amounts[1].String(),
		Amount1:   amounts[2].String(),
	}, nil
}

// DecodePoolCreated decodes a PoolCreated log record into a pool row.
func (c *EventCodec) DecodePoolCreated(log model.LogRecord) (model.Pool, error) {
	event := c.factoryABI.Events[EventPoolCreated]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.Pool{}, err
	}

	var indexed struct {
		Token0 common.Address
		Token1 common.Address
		Fee    *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.Pool{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.Pool{}, err
	}
	if len(values) != 2 {
		return model.Pool{}, fmt.Errorf("unexpected pool created values: %d", len(values))
	}
	spacingInt, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, err
	}
	tickSpacing, err := int24FromBig(spacingInt)
	if err != nil {
		return model.Pool{}, err
	}
	pool, err := asAddress(values[1])
	if err != nil {
		return model.Pool{}, err
	}

	return model.Pool{
		ChainID:        log.ChainID,
		Address:        pool.Hex(),
		Token0:         indexed.Token0.Hex(),
		Token1:         indexed.Token1.Hex(),
		Fee:            uint32(indexed.Fee.Uint64()),
		TickSpacing:    tickSpacing,
		FirstSeenBlock: log.BlockNumber,
	}, nil
}

func withTopic0(id common.Hash, indexed [][]common.Hash) []common.Hash {
	topics := make([]common.Hash, 0, len(indexed)+1)
	topics = append(topics, id)
	for _, t := range indexed {
		topics = append(topics, t[0])
	}
	return topics
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
