package usecase

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

func jsonRaw(b []byte) json.RawMessage { return json.RawMessage(b) }

func decimalOf(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
