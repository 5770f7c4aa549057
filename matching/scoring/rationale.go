package scoring

import "strings"

const (
	maxOverlapMentions = 3
	maxMissingMentions = 2
)

// Rationale renders a fixed template so identical inputs give identical text.
func Rationale(score int, matched, missing []string, noJobSkills bool) string {
	parts := []string{tier(score)}

	if noJobSkills {
		parts = append(parts, "No specific skills listed; ranked on profile similarity.")
		return strings.Join(parts, " ")
	}
	if len(matched) > 0 {
		parts = append(parts, "Strong overlap in "+joinTop(matched, maxOverlapMentions)+".")
	}
	if len(missing) > 0 {
		parts = append(parts, "Missing "+joinTop(missing, maxMissingMentions)+".")
	}
	return strings.Join(parts, " ")
}

func tier(score int) string {
	switch {
	case score >= 80:
		return "Excellent match."
	case score >= 60:
		return "Strong match."
	case score >= 40:
		return "Good potential."
	default:
		return "Possible fit."
	}
}

func joinTop(names []string, n int) string {
	if len(names) > n {
		names = names[:n]
	}
	return strings.Join(names, ", ")
}
