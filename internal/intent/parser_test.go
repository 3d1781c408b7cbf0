package intent_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaos-car/internal/domain"
	"chaos-car/internal/intent"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.Intent
	}{
		{
			name: "plain json",
			raw:  `{"action":"navigate","target":"left","extra":null}`,
			want: domain.Intent{Action: domain.ActionNavigate, Target: domain.StringPtr("left")},
		},
		{
			name: "not json",
			raw:  "not json at all",
			want: domain.Intent{Action: domain.ActionUnknown, Extra: domain.StringPtr("not json at all")},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"action\":\"stop\",\"target\":null,\"extra\":null}\n```",
			want: domain.Intent{Action: domain.ActionStop},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"action\":\"music\",\"target\":\"play\",\"extra\":null}\n```",
			want: domain.Intent{Action: domain.ActionMusic, Target: domain.StringPtr("play")},
		},
		{
			name: "prose around object",
			raw:  `Sure! Here you go: {"action":"ac","target":"off","extra":"brr"} hope that helps`,
			want: domain.Intent{Action: domain.ActionAC, Target: domain.StringPtr("off"), Extra: domain.StringPtr("brr")},
		},
		{
			name: "missing optional fields",
			raw:  `{"action":"stop"}`,
			want: domain.Intent{Action: domain.ActionStop},
		},
		{
			name: "unknown keys are ignored",
			raw:  `{"action":"navigate","target":"right","extra":null,"confidence":0.9}`,
			want: domain.Intent{Action: domain.ActionNavigate, Target: domain.StringPtr("right")},
		},
		{
			name: "action outside enum",
			raw:  `{"action":"fly","target":"up","extra":null}`,
			want: domain.Intent{Action: domain.ActionUnknown, Extra: domain.StringPtr(`{"action":"fly","target":"up","extra":null}`)},
		},
		{
			name: "wrong target type",
			raw:  `{"action":"navigate","target":7,"extra":null}`,
			want: domain.Intent{Action: domain.ActionUnknown, Extra: domain.StringPtr(`{"action":"navigate","target":7,"extra":null}`)},
		},
		{
			name: "json array",
			raw:  `["navigate"]`,
			want: domain.Intent{Action: domain.ActionUnknown, Extra: domain.StringPtr(`["navigate"]`)},
		},
		{
			name: "json null",
			raw:  `null`,
			want: domain.Intent{Action: domain.ActionUnknown, Extra: domain.StringPtr("null")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := intent.Parse(tt.raw)
			assert.Truef(t, tt.want.Equal(got), "got %+v", describe(got))
		})
	}
}

func TestParse_TruncatesUnknownExtra(t *testing.T) {
	raw := strings.Repeat("ü", 250)

	got := intent.Parse(raw)

	require.Equal(t, domain.ActionUnknown, got.Action)
	require.NotNil(t, got.Extra)
	assert.Equal(t, strings.Repeat("ü", 200), *got.Extra)
	assert.Nil(t, got.Target)
}

func TestParse_InvalidFirstBlockFallsBack(t *testing.T) {
	raw := `{"action":"bogus"} then {"action":"stop"}`

	got := intent.Parse(raw)

	// only the first brace block is considered
	assert.Equal(t, domain.ActionUnknown, got.Action)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, intent.StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, intent.StripFences(`  {"a":1}  `))
	assert.Equal(t, `{"a":1}`, intent.StripFences("```json{\"a\":1}```"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", intent.Truncate("abc", 5))
	assert.Equal(t, "ab", intent.Truncate("abc", 2))
	assert.Equal(t, "", intent.Truncate("", 2))
}

func FuzzParse(f *testing.F) {
	f.Add(`{"action":"navigate","target":"left","extra":null}`)
	f.Add("```json\n{\"action\":\"stop\"}\n```")
	f.Add("not json at all")
	f.Add(`{"action":5}`)
	f.Add("{")
	f.Add("")

	f.Fuzz(func(t *testing.T, raw string) {
		got := intent.Parse(raw)
		if !got.Action.Valid() {
			t.Fatalf("invalid action %q for %q", got.Action, raw)
		}
	})
}

func describe(in domain.Intent) map[string]any {
	return map[string]any{
		"action": in.Action,
		"target": in.TargetOr("<nil>"),
		"extra":  in.ExtraOr("<nil>"),
	}
}
