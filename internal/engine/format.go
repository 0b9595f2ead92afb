package engine

import (
	"fmt"
	"strings"
	"time"
)

// Alert text is user-facing Brazilian Portuguese; money and dates follow
// pt-BR conventions ("R$ 1.234,56", "02/01/2006").

// formatBRL renders a monetary value in Brazilian real notation.
func formatBRL(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}

	s := fmt.Sprintf("%.2f", v)
	intPart := s[:len(s)-3]
	decPart := s[len(s)-2:]

	// Group the integer part with dots, thousands first.
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := "R$ " + strings.Join(groups, ".") + "," + decPart
	if neg {
		out = "-" + out
	}
	return out
}

// formatDate renders a date as dd/mm/yyyy.
func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// daysSince returns whole days elapsed from t to now, never negative.
func daysSince(t, now time.Time) int {
	d := int(now.Sub(t).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// hoursSince returns whole hours elapsed from t to now, never negative.
func hoursSince(t, now time.Time) int {
	h := int(now.Sub(t).Hours())
	if h < 0 {
		return 0
	}
	return h
}

// plural appends the pt-BR plural suffix for counts other than one.
func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, pluralForm)
}
