package engine

import "github.com/good-yellow-bee/sentinela/internal/models"

// ResolveTargets computes the set of user ids to notify for one issue
// under one rule. Visibility responsible/both adds the issue's
// responsible party when present; admin/both adds the full admin
// roster. The union is a set, so an admin who is also the responsible
// party receives exactly one alert. An empty result means the issue is
// skipped downstream.
func ResolveTargets(rule *models.Rule, issue models.Issue, adminIDs []string) map[string]struct{} {
	targets := make(map[string]struct{})

	if rule.Visibility == models.VisibilityResponsible || rule.Visibility == models.VisibilityBoth {
		if issue.ResponsibleID != "" {
			targets[issue.ResponsibleID] = struct{}{}
		}
	}

	if rule.Visibility == models.VisibilityAdmin || rule.Visibility == models.VisibilityBoth {
		for _, id := range adminIDs {
			targets[id] = struct{}{}
		}
	}

	return targets
}
