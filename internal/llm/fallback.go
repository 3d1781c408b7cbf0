package llm

import (
	"strings"

	"chaos-car/internal/domain"
	"chaos-car/internal/intent"
)

type keywordRule struct {
	words []string
	build func(lower string) domain.Intent
}

// Order matters: the first rule with a matching word wins.
var keywordRules = []keywordRule{
	{
		words: []string{"left", "lft"},
		build: func(string) domain.Intent { return domain.NewIntent(domain.ActionNavigate, "left", "") },
	},
	{
		words: []string{"right", "rite"},
		build: func(string) domain.Intent { return domain.NewIntent(domain.ActionNavigate, "right", "") },
	},
	{
		words: []string{"music", "play"},
		build: func(string) domain.Intent { return domain.NewIntent(domain.ActionMusic, "play", "") },
	},
	{
		words: []string{"ac", "air"},
		build: func(lower string) domain.Intent {
			if strings.Contains(lower, "off") {
				return domain.NewIntent(domain.ActionAC, "off", "")
			}
			return domain.NewIntent(domain.ActionAC, "on", "")
		},
	},
	{
		words: []string{"stop"},
		build: func(string) domain.Intent { return domain.Intent{Action: domain.ActionStop} },
	},
}

// FallbackIntent guesses an intent from plain substrings. It is used when no
// service credential is configured or every attempt failed.
func FallbackIntent(text string) domain.Intent {
	lower := strings.ToLower(text)

	for _, rule := range keywordRules {
		for _, w := range rule.words {
			if strings.Contains(lower, w) {
				return rule.build(lower)
			}
		}
	}

	return intent.Unknown(text)
}
