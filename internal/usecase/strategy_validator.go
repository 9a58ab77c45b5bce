package usecase

import (
	"encoding/json"
	"fmt"

	"github.com/vitos/crypto_scalper/internal/domain"
)

// Bound is the safe range of one strategy parameter.
type Bound struct {
	Name     string
	Path     []string
	Min, Max float64
	Required bool
}

// StrategyBounds is the fixed safety table a proposed strategy must satisfy.
var StrategyBounds = []Bound{
	{Name: "default_leverage", Path: []string{"trade_parameters", "default_leverage"}, Min: 1, Max: 75, Required: true},
	{Name: "trade_amount_pct_of_balance", Path: []string{"trade_parameters", "trade_amount_pct_of_balance"}, Min: 1, Max: 50, Required: true},
	{Name: "rsi_long_entry_min", Path: []string{"long_conditions", "rsi_entry_min"}, Min: 5, Max: 45, Required: true},
	{Name: "rsi_long_entry_max", Path: []string{"long_conditions", "rsi_entry_max"}, Min: 50, Max: 70, Required: true},
	{Name: "rsi_exit_extreme_long", Path: []string{"long_conditions", "rsi_exit_extreme"}, Min: 65, Max: 95, Required: true},
	{Name: "rsi_short_entry_min", Path: []string{"short_conditions", "rsi_entry_min"}, Min: 30, Max: 50, Required: true},
	{Name: "rsi_short_entry_max", Path: []string{"short_conditions", "rsi_entry_max"}, Min: 55, Max: 95, Required: true},
	{Name: "rsi_exit_extreme_short", Path: []string{"short_conditions", "rsi_exit_extreme"}, Min: 5, Max: 35, Required: true},
	{Name: "no_trade_zone_pct", Path: []string{"filters", "no_trade_zone_pct"}, Min: 0, Max: 5},
}

// RequiredFlags are the filter switches every proposal must set explicitly.
var RequiredFlags = [][]string{
	{"filters", "use_ema_trend_filter"},
	{"filters", "use_rsi_pullback"},
	{"filters", "use_volume_confirmation"},
}

// HybridBounds apply only when the proposal selects the hybrid variant.
var HybridBounds = []Bound{
	{Name: "adx_range_threshold", Path: []string{"regime", "adx_range_threshold"}, Min: 5, Max: 40, Required: true},
	{Name: "adx_trend_threshold", Path: []string{"regime", "adx_trend_threshold"}, Min: 10, Max: 60, Required: true},
}

type ValidationError struct {
	Param   string
	Value   float64
	Min     float64
	Max     float64
	Missing bool
	Detail  string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Missing:
		return fmt.Sprintf("parameter %q is missing from the proposed strategy", e.Param)
	case e.Detail != "":
		return fmt.Sprintf("parameter %q: %s", e.Param, e.Detail)
	}
	return fmt.Sprintf("%s (%g) is outside the safe range (%g-%g)", e.Param, e.Value, e.Min, e.Max)
}

// ValidateStrategy checks a whole proposed document. Any failure rejects it.
func ValidateStrategy(doc []byte) (*domain.Strategy, error) {
	var raw map[string]any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode proposal: %w", err)
	}
	for _, path := range RequiredFlags {
		if _, ok := lookup(raw, path).(bool); !ok {
			return nil, &ValidationError{Param: path[len(path)-1], Missing: true}
		}
	}

	var s domain.Strategy
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode proposal: %w", err)
	}

	bounds := StrategyBounds
	switch s.Variant {
	case "", domain.VariantSingleTimeframe, domain.VariantMultiTimeframe:
	case domain.VariantHybridRegime:
		bounds = append(append([]Bound{}, StrategyBounds...), HybridBounds...)
	default:
		return nil, &ValidationError{Param: "variant", Detail: fmt.Sprintf("unknown variant %q", s.Variant)}
	}

	for _, b := range bounds {
		v, ok := lookupNumber(raw, b.Path)
		if !ok {
			if b.Required {
				return nil, &ValidationError{Param: b.Name, Missing: true}
			}
			continue
		}
		if v < b.Min || v > b.Max {
			return nil, &ValidationError{Param: b.Name, Value: v, Min: b.Min, Max: b.Max}
		}
	}

	if s.LongConditions.RSIEntryMin >= s.LongConditions.RSIEntryMax {
		return nil, &ValidationError{Param: "long_conditions", Detail: "rsi_entry_min must be below rsi_entry_max"}
	}
	if s.ShortConditions.RSIEntryMin >= s.ShortConditions.RSIEntryMax {
		return nil, &ValidationError{Param: "short_conditions", Detail: "rsi_entry_min must be below rsi_entry_max"}
	}
	if s.Variant == domain.VariantHybridRegime && s.Regime.ADXRangeThreshold > s.Regime.ADXTrendThreshold {
		return nil, &ValidationError{Param: "regime", Detail: "adx_range_threshold must not exceed adx_trend_threshold"}
	}
	return &s, nil
}

func lookupNumber(m map[string]any, path []string) (float64, bool) {
	v, ok := lookup(m, path).(float64)
	return v, ok
}

// lookup walks path through nested objects and returns nil if any key is absent.
func lookup(m map[string]any, path []string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}
