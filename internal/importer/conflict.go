package importer

// ShouldUpdate reports whether an incoming rating replaces the existing one.
// A missing incoming rating never wins, a missing existing rating always
// loses, and equal ratings are left alone. Otherwise the strategy decides.
func ShouldUpdate(existing, incoming *float64, strategy ConflictStrategy) bool {
	if incoming == nil {
		return false
	}
	if existing == nil {
		return true
	}
	if *existing == *incoming {
		return false
	}
	switch strategy {
	case StrategyOverwrite:
		return true
	case StrategyKeepHigherRating:
		return *incoming > *existing
	default:
		return false
	}
}
