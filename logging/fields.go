package logging

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Convenience field constructors so callers do not need to import zap
// directly alongside this package.

func String(key, val string) zap.Field { return zap.String(key, val) }

func Int(key string, val int) zap.Field { return zap.Int(key, val) }

func Int64(key string, val int64) zap.Field { return zap.Int64(key, val) }

func Bool(key string, val bool) zap.Field { return zap.Bool(key, val) }

func Time(key string, t time.Time) zap.Field { return zap.Time(key, t) }

func Duration(key string, d time.Duration) zap.Field { return zap.Duration(key, d) }

func Error(err error) zap.Field { return zap.Error(err) }

// Decimal renders a decimal value as its canonical string form.
func Decimal(key string, d decimal.Decimal) zap.Field {
	return zap.String(key, d.String())
}

// OrderID tags the exchange assigned order id.
func OrderID(id int64) zap.Field { return zap.Int64("order-id", id) }

// TransactionID tags the caller assigned transaction id.
func TransactionID(id int64) zap.Field { return zap.Int64("transaction-id", id) }
