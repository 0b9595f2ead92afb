package engine

import (
	"testing"

	"github.com/good-yellow-bee/sentinela/internal/models"
)

func TestResolveTargets(t *testing.T) {
	admins := []string{"A1", "A2"}

	tests := []struct {
		name          string
		visibility    models.Visibility
		responsibleID string
		adminIDs      []string
		want          []string
	}{
		{
			name:          "responsible with responsible set",
			visibility:    models.VisibilityResponsible,
			responsibleID: "U1",
			adminIDs:      admins,
			want:          []string{"U1"},
		},
		{
			name:       "responsible with no responsible party",
			visibility: models.VisibilityResponsible,
			adminIDs:   admins,
			want:       nil,
		},
		{
			name:          "admin ignores responsible",
			visibility:    models.VisibilityAdmin,
			responsibleID: "U1",
			adminIDs:      admins,
			want:          []string{"A1", "A2"},
		},
		{
			name:          "both unions responsible and admins",
			visibility:    models.VisibilityBoth,
			responsibleID: "U1",
			adminIDs:      admins,
			want:          []string{"A1", "A2", "U1"},
		},
		{
			name:          "both collapses admin who is responsible",
			visibility:    models.VisibilityBoth,
			responsibleID: "A1",
			adminIDs:      admins,
			want:          []string{"A1", "A2"},
		},
		{
			name:       "both with empty roster and no responsible",
			visibility: models.VisibilityBoth,
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &models.Rule{ID: "r", Visibility: tt.visibility}
			issue := models.Issue{ResponsibleID: tt.responsibleID}

			got := ResolveTargets(rule, issue, tt.adminIDs)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d targets %v, want %d", len(got), got, len(tt.want))
			}
			for _, id := range tt.want {
				if _, ok := got[id]; !ok {
					t.Errorf("target set missing %s", id)
				}
			}
		})
	}
}
