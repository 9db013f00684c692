package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"simple", "Build a REST API", 50, "build-a-rest-api"},
		{"punctuation collapses", "fix: the  (broken) parser!!", 50, "fix-the-broken-parser"},
		{"unicode normalized", "café ａｂｃ", 50, "caf-abc"},
		{"truncated at limit", "one two three four five", 11, "one-two-thr"},
		{"trailing hyphen trimmed after cut", "one two three", 8, "one-two"},
		{"digits kept", "v2 rollout 2024", 50, "v2-rollout-2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.in, tt.max, "task"))
		})
	}
}

func TestMakeFallback(t *testing.T) {
	assert.Equal(t, "task", Make("", 50, "task"))
	assert.Equal(t, "task", Make("!!! ???", 50, "task"))
	assert.Equal(t, "step", Make("こんにちは", 50, "step"))
}
