package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCivilDiscourseRatio(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		failed int
		want   float64
	}{
		{"all compliant", 10, 0, 1.0},
		{"all rejected", 10, 10, 0.0},
		{"mixed", 10, 2, 0.8},
		{"empty population is healthy", 0, 0, 1.0},
		{"negative total is healthy", -1, 0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CivilDiscourseRatio(tt.total, tt.failed), 1e-9)
		})
	}
}
