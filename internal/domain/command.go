package domain

type Action string

const (
	ActionNavigate Action = "navigate"
	ActionMusic    Action = "music"
	ActionAC       Action = "ac"
	ActionStop     Action = "stop"
	ActionUnknown  Action = "unknown"
)

// Valid reports whether a is one of the five known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionNavigate, ActionMusic, ActionAC, ActionStop, ActionUnknown:
		return true
	}
	return false
}

// Intent is the structured form of one spoken command. Target and Extra are
// nil when the model (or fallback) left them out.
type Intent struct {
	Action Action  `json:"action"`
	Target *string `json:"target"`
	Extra  *string `json:"extra"`
}

func NewIntent(action Action, target, extra string) Intent {
	in := Intent{Action: action}
	if target != "" {
		in.Target = &target
	}
	if extra != "" {
		in.Extra = &extra
	}
	return in
}

func (i Intent) TargetOr(def string) string {
	if i.Target == nil {
		return def
	}
	return *i.Target
}

func (i Intent) ExtraOr(def string) string {
	if i.Extra == nil || *i.Extra == "" {
		return def
	}
	return *i.Extra
}

func (i Intent) HasExtra() bool {
	return i.Extra != nil && *i.Extra != ""
}

// Clone returns a copy that shares no pointers with i.
func (i Intent) Clone() Intent {
	out := Intent{Action: i.Action}
	if i.Target != nil {
		t := *i.Target
		out.Target = &t
	}
	if i.Extra != nil {
		e := *i.Extra
		out.Extra = &e
	}
	return out
}

// Equal compares by value, treating nil and non-nil fields as different.
func (i Intent) Equal(o Intent) bool {
	return i.Action == o.Action && strPtrEqual(i.Target, o.Target) && strPtrEqual(i.Extra, o.Extra)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// StringPtr is a convenience for building intents in literals.
func StringPtr(s string) *string {
	return &s
}

// TextCommandPrefix marks a command source payload that is already text
// rather than audio to transcribe.
const TextCommandPrefix = "__TEXT__:"
