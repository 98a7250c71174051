package activity

import "time"

const (
	// DustThresholdSOL is the native-denominated floor below which a
	// trade is treated as noise. The fiat cutoff is this threshold
	// valued at the request's price quote.
	DustThresholdSOL = 0.01

	// LamportsPerSOL converts raw native amounts to SOL.
	LamportsPerSOL = 1_000_000_000

	// SignatureLimitPrograms bounds the lookback for the
	// deployed-programs pipeline.
	SignatureLimitPrograms = 500

	// SignatureLimitVolume bounds the lookback for the trading-volume
	// pipeline.
	SignatureLimitVolume = 1000

	// EnrichmentConcurrency is the fixed group size for per-program
	// valuation lookups.
	EnrichmentConcurrency = 5

	// MaxVolumeAmounts caps the amounts list in a volume result. The
	// downstream circuit consumes a fixed-size numeric input.
	MaxVolumeAmounts = 20

	// MaxVolumeTrades caps the display trades list in a volume result.
	MaxVolumeTrades = 10

	// MinLookbackDays and MaxLookbackDays bound the trading-volume
	// lookback window.
	MinLookbackDays = 1
	MaxLookbackDays = 365
)

// stablecoinDecimals maps fiat-pegged mints to their decimal scale.
// Amounts in these mints are taken as fiat directly, with no price
// conversion.
var stablecoinDecimals = map[string]int{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": 6, // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": 6, // USDT
}

// ProgramRecord is one deployed program attributed to a wallet, with
// its estimated holdings value in whole USD.
type ProgramRecord struct {
	Address      string    `json:"address"`
	Name         string    `json:"name,omitempty"`
	DeployedAt   time.Time `json:"deployedAt"`
	Deployer     string    `json:"deployer"`
	EstimatedTVL int64     `json:"estimatedTVL"`
}

// TradeRecord is one qualifying swap with its fiat value in whole USD.
type TradeRecord struct {
	Signature string    `json:"signature"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// DeployedProgramsResult is the output of the deployed-programs
// pipeline. Partial is true when at least one upstream batch failed
// after retries; the programs that were obtainable are still returned.
type DeployedProgramsResult struct {
	Wallet   string          `json:"wallet"`
	Programs []ProgramRecord `json:"programs"`
	Partial  bool            `json:"partial,omitempty"`
}

// TradingVolumeResult is the output of the trading-volume pipeline.
// Amounts holds the largest trade values in descending order, capped at
// MaxVolumeAmounts; Trades holds the corresponding top records capped
// at MaxVolumeTrades. TotalVolume and TradeCount cover every qualifying
// trade, not just the capped lists.
type TradingVolumeResult struct {
	Wallet      string        `json:"wallet"`
	TotalVolume int64         `json:"totalVolume"`
	TradeCount  int           `json:"tradeCount"`
	Amounts     []int64       `json:"amounts"`
	PeriodDays  int           `json:"period"`
	Trades      []TradeRecord `json:"trades"`
	Partial     bool          `json:"partial,omitempty"`
}
