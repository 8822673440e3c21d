// Package advisor is the canned screen-time advice generator. It is
// fully local: keyword rules select a prepared response, no network
// or model is involved.
package advisor

import (
	"math/rand"
	"strings"
)

// rule maps trigger keywords to a prepared response. Rules are
// evaluated in order; the first match wins.
type rule struct {
	keywords []string
	response string
}

var rules = []rule{
	{
		keywords: []string{"schedule", "routine"},
		response: "For ages 6-12, aim for 1-2 hours of recreational screen time on school days. Use consistent 'no-screen' windows before bed and during family mealtimes.",
	},
	{
		keywords: []string{"limit", "lock"},
		response: "Set clear app-specific limits, and combine them with device-wide rules. Encourage replacement activities (books, play) when limits are reached.",
	},
	{
		keywords: []string{"sleep", "bed"},
		response: "Avoid screens 1 hour before bed. Night-time blue light and stimulating content both harm sleep onset. Consider a 'no-screen' 9pm rule for younger kids.",
	},
	{
		keywords: []string{"frustrat", "angry"},
		response: "Stay calm. Use time limits as a predictable rule, not a surprise punishment. Offer positive reinforcement for following limits.",
	},
}

var generic = []string{
	"Keep rules simple and consistent. Explain why limits exist, and involve your child in creating them.",
	"Gradually adjust limits: start strict, then adapt as you see responsible behaviour.",
	"Use incentives: e.g. extra outdoor time for meeting weekly targets.",
	"Review the usage report together once a week so limits feel shared, not imposed.",
}

var tips = []string{
	"Create a family charging station outside bedrooms to discourage nighttime use.",
	"Designate device-free meals to encourage family conversation.",
	"Replace some screen time with shared activities like board games or outdoor play.",
	"Model healthy device use yourself - children learn by example.",
	"Agree on limits together before enforcing them; surprises breed resistance.",
}

// Advisor answers caregiver questions from the canned rule set.
type Advisor struct {
	rng *rand.Rand
}

// New creates an advisor with the given random source for picking
// generic answers and tips.
func New(rng *rand.Rand) *Advisor {
	return &Advisor{rng: rng}
}

// Greeting is the opening line of a chat session.
func (a *Advisor) Greeting() string {
	return "Hello! I'm your ScreenTime advisor. I can help you set healthy screen time limits, create balanced schedules, and provide guidance on digital wellbeing for your child."
}

// Advise answers a question. Keyword rules are checked first; when
// none match, a generic answer is picked at random.
func (a *Advisor) Advise(question string) string {
	q := strings.ToLower(question)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				return r.response
			}
		}
	}
	return generic[a.rng.Intn(len(generic))]
}

// Tip returns a random standalone tip.
func (a *Advisor) Tip() string {
	return tips[a.rng.Intn(len(tips))]
}
