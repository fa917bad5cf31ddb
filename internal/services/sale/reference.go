package sale

import (
	"strconv"
	"sync/atomic"
	"time"
)

// ReferencePrefix starts every external reference sent to the processor.
const ReferencePrefix = "smartcoffee-sale-"

// ReferenceGenerator hands out millisecond external references. Values are
// strictly increasing even when two sales start within the same millisecond.
type ReferenceGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{now: time.Now}
}

func (g *ReferenceGenerator) Next() string {
	for {
		prev := g.last.Load()
		next := g.now().UnixMilli()
		if next <= prev {
			next = prev + 1
		}
		if g.last.CompareAndSwap(prev, next) {
			return ReferencePrefix + strconv.FormatInt(next, 10)
		}
	}
}
