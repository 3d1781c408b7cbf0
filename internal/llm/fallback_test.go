package llm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"chaos-car/internal/domain"
	"chaos-car/internal/llm"
)

func TestFallbackIntent(t *testing.T) {
	tests := []struct {
		text string
		want domain.Intent
	}{
		{"Turn LEFT now", domain.NewIntent(domain.ActionNavigate, "left", "")},
		{"turn lft", domain.NewIntent(domain.ActionNavigate, "left", "")},
		{"go rite", domain.NewIntent(domain.ActionNavigate, "right", "")},
		// left is checked before right
		{"left then right", domain.NewIntent(domain.ActionNavigate, "left", "")},
		{"play some tunes", domain.NewIntent(domain.ActionMusic, "play", "")},
		{"MUSIC", domain.NewIntent(domain.ActionMusic, "play", "")},
		{"air on", domain.NewIntent(domain.ActionAC, "on", "")},
		{"ac off", domain.NewIntent(domain.ActionAC, "off", "")},
		// "ac" is a plain substring match
		{"back off", domain.NewIntent(domain.ActionAC, "off", "")},
		{"stop now", domain.Intent{Action: domain.ActionStop}},
		{"jump in the sky", domain.Intent{Action: domain.ActionUnknown, Extra: domain.StringPtr("jump in the sky")}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := llm.FallbackIntent(tt.text)
			assert.Truef(t, tt.want.Equal(got), "got %s %q %q", got.Action, got.TargetOr("<nil>"), got.ExtraOr("<nil>"))
		})
	}
}

func TestFallbackIntent_TruncatesUnknown(t *testing.T) {
	text := strings.Repeat("z", 300)

	got := llm.FallbackIntent(text)

	assert.Equal(t, domain.ActionUnknown, got.Action)
	assert.Len(t, got.ExtraOr(""), 200)
}
