package progress

import (
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// NewNopSink creates a no-op progress sink for commands without a trace
func NewNopSink() usecase.ProgressSink {
	return usecase.NopProgress{}
}
