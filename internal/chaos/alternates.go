package chaos

import "chaos-car/internal/domain"

// alternates replace unknown intents. Selection is uniform over the entries,
// so navigate comes up half the time, music and ac a fifth each, stop a tenth.
var alternates = []domain.Intent{
	domain.NewIntent(domain.ActionNavigate, "left", "Chaos chose left for nonsense"),
	domain.NewIntent(domain.ActionNavigate, "right", "Chaos chose right for nonsense"),
	domain.NewIntent(domain.ActionNavigate, "left", "Random left because why not"),
	domain.NewIntent(domain.ActionNavigate, "right", "Random right for chaos"),
	domain.NewIntent(domain.ActionNavigate, "left", "Left it is, I guess"),

	domain.NewIntent(domain.ActionMusic, "play", "Now playing: Car Screams FM"),
	domain.NewIntent(domain.ActionMusic, "play", "Chaos music activated"),

	domain.NewIntent(domain.ActionAC, "off", "It was chilly anyway"),
	domain.NewIntent(domain.ActionAC, "on", "Random AC because chaos"),

	domain.NewIntent(domain.ActionStop, "", "Chaos stop - honk incoming!"),
}

// Alternates returns a copy of the replacement table.
func Alternates() []domain.Intent {
	out := make([]domain.Intent, len(alternates))
	for i, a := range alternates {
		out[i] = a.Clone()
	}
	return out
}
