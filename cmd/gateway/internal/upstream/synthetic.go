package upstream

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/models"
)

const (
	syntheticBase   = 100.0
	syntheticSpread = 200.0
)

// Rand is the randomness source, swappable for deterministic tests.
type Rand interface {
	Float64() float64
}

// RealRand adapts *rand.Rand.
type RealRand struct{ *rand.Rand }

func (r RealRand) Float64() float64 { return r.Rand.Float64() }

func NewRealRand() RealRand {
	return RealRand{rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// SyntheticQuotes fabricates quote-shaped data for when no equity credential
// is configured. Every quote it builds is marked Synthetic.
type SyntheticQuotes struct {
	mu   sync.Mutex
	rand Rand
}

func NewSyntheticQuotes(rnd Rand) *SyntheticQuotes {
	return &SyntheticQuotes{rand: rnd}
}

// Quote returns a price and previous close each uniform in [100, 300).
func (s *SyntheticQuotes) Quote(symbol string) models.StockQuote {
	s.mu.Lock()
	price := syntheticBase + s.rand.Float64()*syntheticSpread
	prev := syntheticBase + s.rand.Float64()*syntheticSpread
	s.mu.Unlock()

	return models.StockQuote{
		GlobalQuote: models.GlobalQuote{
			Symbol:        symbol,
			Price:         strconv.FormatFloat(price, 'f', 2, 64),
			PreviousClose: strconv.FormatFloat(prev, 'f', 2, 64),
		},
		Synthetic: true,
	}
}
