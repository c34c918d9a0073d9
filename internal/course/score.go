package course

import "sort"

// ComputeFinal returns the weighted final score: 40% regular score, 60% exam
// average.
func ComputeFinal(regular float64, exams []float64) float64 {
	sum := 0.0
	for _, s := range exams {
		sum += s
	}
	avg := sum / float64(len(exams))
	return regular*0.4 + avg*0.6
}

// SortRules orders a rule set by min_score descending, the canonical order for
// both listing and lookup.
func SortRules(rules []RuleRange) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].MinScore > rules[j].MinScore })
}

// LookupGPA returns the gpa_value of the matching range, or 0 when no range
// covers final. Rules are scanned in min_score-descending order so overlapping
// ranges resolve deterministically: the highest min_score wins.
func LookupGPA(final float64, rules []RuleRange) float64 {
	sorted := make([]RuleRange, len(rules))
	copy(sorted, rules)
	SortRules(sorted)
	for _, r := range sorted {
		if final >= r.MinScore && final <= r.MaxScore {
			return r.GPAValue
		}
	}
	return 0
}
