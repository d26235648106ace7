package stream

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

const (
	timeStampField    = "ts"
	subscribeField    = "subscribe"
	feedComponentName = "datasource.stream.feed"
)

// Decode parses one binary frame, a protobuf Struct whose "ts" field holds
// unix nanos and whose remaining fields map symbols to prices. Prices and
// the timestamp may be sent as numbers or as decimal strings.
func Decode(frame []byte) (common.Observation, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(frame, &msg); err != nil {
		return common.Observation{}, fmt.Errorf("unable to unmarshal frame: %w", err)
	}

	fields := msg.GetFields()
	tsValue, ok := fields[timeStampField]
	if !ok {
		return common.Observation{}, fmt.Errorf("frame without %q field", timeStampField)
	}
	nanos, err := decodeTimeStamp(tsValue)
	if err != nil {
		return common.Observation{}, err
	}

	prices := make(map[string]fixed.Point, len(fields)-1)
	for symbol, value := range fields {
		if symbol == timeStampField {
			continue
		}
		price, err := decodePrice(value)
		if err != nil {
			return common.Observation{}, fmt.Errorf("invalid price of %s: %w", symbol, err)
		}
		if !price.IsPos() {
			return common.Observation{}, fmt.Errorf("non positive price %s of %s", price, symbol)
		}
		prices[symbol] = price
	}

	return common.Observation{
		Prices:      prices,
		Source:      feedComponentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.Unix(0, nanos).UTC(),
	}, nil
}

// Encode is the inverse of Decode. Prices travel as strings so no precision
// is lost.
func Encode(obs common.Observation) ([]byte, error) {
	fields := make(map[string]*structpb.Value, len(obs.Prices)+1)
	fields[timeStampField] = structpb.NewStringValue(strconv.FormatInt(obs.TimeStamp.UnixNano(), 10))
	for symbol, price := range obs.Prices {
		fields[symbol] = structpb.NewStringValue(price.String())
	}
	return proto.Marshal(&structpb.Struct{Fields: fields})
}

func subscription(symbols []string) ([]byte, error) {
	list := make([]any, len(symbols))
	for i, s := range symbols {
		list[i] = s
	}
	msg, err := structpb.NewStruct(map[string]any{subscribeField: list})
	if err != nil {
		return nil, fmt.Errorf("unable to build subscription: %w", err)
	}
	return proto.Marshal(msg)
}

func decodeTimeStamp(v *structpb.Value) (int64, error) {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		nanos, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %q field: %w", timeStampField, err)
		}
		return nanos, nil
	case *structpb.Value_NumberValue:
		return int64(kind.NumberValue), nil
	default:
		return 0, fmt.Errorf("unsupported %q field type %T", timeStampField, kind)
	}
}

func decodePrice(v *structpb.Value) (fixed.Point, error) {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return fixed.Parse(kind.StringValue)
	case *structpb.Value_NumberValue:
		if math.IsNaN(kind.NumberValue) || math.IsInf(kind.NumberValue, 0) {
			return fixed.Zero, fmt.Errorf("%v is not a price", kind.NumberValue)
		}
		return fixed.FromFloat64(kind.NumberValue), nil
	default:
		return fixed.Zero, fmt.Errorf("unsupported value type %T", kind)
	}
}
