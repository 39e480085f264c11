package graduation

// RiskTier selects the limit step table for an account.
type RiskTier string

const (
	TierLessRisky RiskTier = "less_risky"
	TierRisky     RiskTier = "risky"
)

// maxLimitUtilization is the used/set ratio above which an account is
// reclassified to the risky tier.
const maxLimitUtilization = 0.9

const million = 1_000_000

// nextSetLimit returns the graduated set limit for the tier's bracket of
// the current limit. Risky accounts step in smaller, flatter increments.
func nextSetLimit(tier RiskTier, current int64) int64 {
	switch tier {
	case TierRisky:
		switch {
		case current < 1*million:
			return current + 500_000
		case current < 5*million:
			return current + 500_000
		case current < 10*million:
			return current + 1*million
		default:
			return current + 2*million
		}
	default:
		switch {
		case current < 1*million:
			return 1 * million
		case current < 5*million:
			return current + 1*million
		case current < 10*million:
			return current + 2*million
		default:
			return current + 4*million
		}
	}
}

// clampToPreMatrix caps a graduated limit at the ceiling recorded when the
// credit limit was first generated. A zero ceiling means none was
// recorded.
func clampToPreMatrix(newLimit, preMatrixMax int64) int64 {
	if preMatrixMax > 0 && newLimit > preMatrixMax {
		return preMatrixMax
	}
	return newLimit
}
