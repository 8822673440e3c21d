package advisor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestAdvisor() *Advisor {
	return New(rand.New(rand.NewSource(1)))
}

func TestAdvise_KeywordRules(t *testing.T) {
	a := newTestAdvisor()

	tests := []struct {
		name     string
		question string
		wantPart string
	}{
		{"schedule", "How do I build a good schedule?", "school days"},
		{"routine", "our evening ROUTINE is chaos", "school days"},
		{"limit", "should I lower the limit?", "app-specific limits"},
		{"lock", "she is locked out again", "app-specific limits"},
		{"sleep", "screens and sleep?", "before bed"},
		{"bed", "tablet in bed", "before bed"},
		{"frustration", "he gets so frustrated", "Stay calm"},
		{"angry", "my kid is angry about limits", "app-specific limits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, a.Advise(tt.question), tt.wantPart)
		})
	}
}

func TestAdvise_FirstMatchingRuleWins(t *testing.T) {
	a := newTestAdvisor()
	// Mentions both schedule and sleep; the schedule rule comes first.
	assert.Contains(t, a.Advise("a sleep schedule"), "school days")
}

func TestAdvise_GenericFallback(t *testing.T) {
	a := newTestAdvisor()
	got := a.Advise("what's for dinner?")
	assert.Contains(t, generic, got)
}

func TestTip(t *testing.T) {
	a := newTestAdvisor()
	for i := 0; i < 20; i++ {
		assert.Contains(t, tips, a.Tip())
	}
}

func TestGreeting(t *testing.T) {
	a := newTestAdvisor()
	assert.Contains(t, a.Greeting(), "ScreenTime advisor")
}
