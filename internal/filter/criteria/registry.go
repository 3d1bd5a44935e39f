package criteria

// Tier17 is the original 17-criterion layered scheme from the Python
// ultra filter (8 core + 6 confirmation + 3 composite), kept as a
// lighter configuration.
func Tier17() []Criterion {
	return []Criterion{
		Criterion1MTFAlignment,
		Criterion2PriceEMA,
		Criterion3RSIMomentum,
		Criterion4MACDConfirmation,
		Criterion5Stochastic,
		Criterion6ADXStrength,
		Criterion7Volume,
		Criterion8BBPosition,
		Criterion9ATRVolatility,
		Criterion10EMASpacing,
		Criterion11HTFConfirmation,
		Criterion12PriceAction,
		Criterion13MomentumAcceleration,
		Criterion14SRRespect,
		Criterion15NoDivergence,
		Criterion16SessionTiming,
		Criterion17RiskReward,
	}
}

// Tier20 is the full set, adding trend consistency, market structure
// and the asset-class composite on top of Tier17.
func Tier20() []Criterion {
	return append(Tier17(),
		Criterion18TrendConsistency,
		Criterion19MarketStructure,
		Criterion20Composite,
	)
}

// ByName indexes a criterion slice by name for lookups (e.g. an API
// response that needs to report which named criterion failed).
func ByName(cs []Criterion) map[string]Criterion {
	out := make(map[string]Criterion, len(cs))
	for _, c := range cs {
		out[c.Name] = c
	}
	return out
}
