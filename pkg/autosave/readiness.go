package autosave

import "strings"

// Ready reports whether a draft has enough populated fields to be
// persisted at all, independent of dirtiness. Pure and deterministic;
// it never consults the tracker.
//
// A performance draft needs every text field non-blank and a weight in
// [0, 100]. A competency draft needs only a non-blank action plan;
// competency references and selected actions are optional.
func Ready(d Draft) bool {
	switch d.Variant {
	case VariantPerformance:
		p := d.Performance
		if p == nil {
			return false
		}
		for _, field := range []string{
			p.Title,
			p.PerformanceType,
			p.SpecificGoal,
			p.AchievementCriteria,
			p.Method,
		} {
			if strings.TrimSpace(field) == "" {
				return false
			}
		}
		return p.Weight >= 0 && p.Weight <= 100
	case VariantCompetency:
		c := d.Competency
		return c != nil && strings.TrimSpace(c.ActionPlan) != ""
	default:
		return false
	}
}
