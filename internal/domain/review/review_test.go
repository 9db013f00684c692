package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlocking(t *testing.T) {
	tests := []struct {
		name    string
		issues  []Issue
		blocked bool
	}{
		{"no issues", nil, false},
		{"only low", []Issue{{Severity: SeverityLow}}, false},
		{"one medium", []Issue{{Severity: SeverityLow}, {Severity: SeverityMedium}}, true},
		{"one high", []Issue{{Severity: SeverityHigh}}, true},
		{"severity case and spacing ignored", []Issue{{Severity: " HIGH "}}, true},
		{"unknown severity is not blocking", []Issue{{Severity: "critical"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Verdict{Issues: tt.issues}
			assert.Equal(t, tt.blocked, v.IsBlocking())
		})
	}
}
