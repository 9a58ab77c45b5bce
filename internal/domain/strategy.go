package domain

type StrategyVariant string

const (
	VariantSingleTimeframe StrategyVariant = "single_timeframe"
	VariantMultiTimeframe  StrategyVariant = "multi_timeframe"
	VariantHybridRegime    StrategyVariant = "hybrid_regime"
)

// Strategy is the tunable rule document (strategy.json). The bot reads it
// every cycle; the strategist may replace it between cycles.
type Strategy struct {
	Comment         string           `json:"comment,omitempty"`
	StrategyName    string           `json:"strategy_name,omitempty"`
	Variant         StrategyVariant  `json:"variant,omitempty"`
	Filters         Filters          `json:"filters"`
	LongConditions  Conditions       `json:"long_conditions"`
	ShortConditions Conditions       `json:"short_conditions"`
	TradeParameters TradeParameters  `json:"trade_parameters"`
	Regime          RegimeThresholds `json:"regime"`
}

type Filters struct {
	UseEMATrendFilter     bool `json:"use_ema_trend_filter"`
	UseRSIPullback        bool `json:"use_rsi_pullback"`
	UseVolumeConfirmation bool `json:"use_volume_confirmation"`
	// Band around the trend average, in percent of the average.
	NoTradeZonePct float64 `json:"no_trade_zone_pct"`
}

type Conditions struct {
	RSIExitExtreme float64 `json:"rsi_exit_extreme"`
	RSIEntryMin    float64 `json:"rsi_entry_min"`
	RSIEntryMax    float64 `json:"rsi_entry_max"`
}

type TradeParameters struct {
	DefaultLeverage         int     `json:"default_leverage"`
	TradeAmountPctOfBalance float64 `json:"trade_amount_pct_of_balance"`
}

// RegimeThresholds split the ADX axis for the hybrid variant.
type RegimeThresholds struct {
	ADXRangeThreshold float64 `json:"adx_range_threshold"`
	ADXTrendThreshold float64 `json:"adx_trend_threshold"`
}

func (s *Strategy) EffectiveVariant() StrategyVariant {
	if s.Variant == "" {
		return VariantSingleTimeframe
	}
	return s.Variant
}

// DefaultStrategy mirrors the document shipped in config/strategy.json.
func DefaultStrategy() Strategy {
	return Strategy{
		StrategyName: "trend_pullback",
		Variant:      VariantSingleTimeframe,
		Filters: Filters{
			UseEMATrendFilter:     true,
			UseRSIPullback:        true,
			UseVolumeConfirmation: true,
			NoTradeZonePct:        0.5,
		},
		LongConditions:  Conditions{RSIExitExtreme: 75, RSIEntryMin: 30, RSIEntryMax: 50},
		ShortConditions: Conditions{RSIExitExtreme: 25, RSIEntryMin: 50, RSIEntryMax: 70},
		TradeParameters: TradeParameters{DefaultLeverage: 20, TradeAmountPctOfBalance: 10},
		Regime:          RegimeThresholds{ADXRangeThreshold: 20, ADXTrendThreshold: 25},
	}
}
