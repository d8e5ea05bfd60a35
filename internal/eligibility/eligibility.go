// Package eligibility decides which open offerings an account may apply for.
package eligibility

import (
	"ipo_applier/internal/models"
)

// Categories an offering must carry to be applicable. Matching is exact and case-sensitive.
const (
	ShareTypeIPO          = "IPO"
	ShareGroupOrdinary    = "Ordinary Shares"
	SubGroupGeneralPublic = "For General Public"
)

// ReasonAlreadyApplied is reported for offerings the account has already acted upon.
const ReasonAlreadyApplied = "Already applied"

// rule is one independent eligibility predicate. It returns an empty
// string when the offering passes.
type rule func(o models.Offering) string

// rules are evaluated in this order; reasons follow the same order.
var rules = []rule{
	func(o models.Offering) string {
		if o.AlreadyActed {
			return ReasonAlreadyApplied
		}
		return ""
	},
	func(o models.Offering) string {
		if o.ShareTypeName != ShareTypeIPO {
			return "Wrong type: " + o.ShareTypeName
		}
		return ""
	},
	func(o models.Offering) string {
		if o.ShareGroupName != ShareGroupOrdinary {
			return "Wrong group: " + o.ShareGroupName
		}
		return ""
	},
	func(o models.Offering) string {
		if o.SubGroup != SubGroupGeneralPublic {
			return "Wrong subgroup: " + o.SubGroup
		}
		return ""
	},
}

// Classify evaluates every rule against the offering and reports all failures.
func Classify(o models.Offering) models.EligibilityVerdict {
	var reasons []string
	for _, r := range rules {
		if reason := r(o); reason != "" {
			reasons = append(reasons, reason)
		}
	}
	return models.EligibilityVerdict{
		Offering: o,
		Eligible: len(reasons) == 0,
		Reasons:  reasons,
	}
}

// Filter classifies offerings and returns the eligible ones in their original
// order, together with one verdict per input offering.
func Filter(offerings []models.Offering) ([]models.Offering, []models.EligibilityVerdict) {
	eligible := make([]models.Offering, 0, len(offerings))
	verdicts := make([]models.EligibilityVerdict, 0, len(offerings))
	for _, o := range offerings {
		v := Classify(o)
		verdicts = append(verdicts, v)
		if v.Eligible {
			eligible = append(eligible, o)
		}
	}
	return eligible, verdicts
}
