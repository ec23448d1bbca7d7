package core_test

import (
	"testing"

	"invoice-studio/internal/core"
)

func TestViewer_CanAccess(t *testing.T) {
	tests := []struct {
		name   string
		viewer core.Viewer
		owner  int
		want   bool
	}{
		{"owner", core.Viewer{UserID: 3}, 3, true},
		{"other user", core.Viewer{UserID: 4}, 3, false},
		{"admin", core.Viewer{UserID: 4, Role: core.RoleAdmin}, 3, true},
		{"role is case sensitive", core.Viewer{UserID: 4, Role: "Admin"}, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.viewer.CanAccess(tt.owner); got != tt.want {
				t.Errorf("CanAccess(%d) = %v, want %v", tt.owner, got, tt.want)
			}
		})
	}
}
