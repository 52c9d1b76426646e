// Package interviewer provides the response generators behind a practice
// session: a deterministic rule engine and language-model backed completers.
package interviewer

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

// handler answers candidate text for one stage. ok is false when no rule
// applies and a fallback reply should be used.
type handler func(cs interview.Case, text string) (reply string, ok bool)

// rule maps any of its keywords to a templated reply.
type rule struct {
	keywords []string
	reply    func(cs interview.Case) string
}

func (r rule) matches(lower string) bool {
	for _, k := range r.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// stageHandler returns a handler that tries rules in order.
func stageHandler(rules ...rule) handler {
	return func(cs interview.Case, text string) (string, bool) {
		lower := strings.ToLower(text)
		for _, r := range rules {
			if r.matches(lower) {
				return r.reply(cs), true
			}
		}
		return "", false
	}
}

func fixed(s string) func(interview.Case) string {
	return func(interview.Case) string { return s }
}

// fact returns the case fact labelled label ("Revenue: ..."), or a prompt
// to make an assumption when the case has no such fact.
func fact(label string) func(interview.Case) string {
	return func(cs interview.Case) string {
		prefix := strings.ToLower(label)
		for _, f := range cs.Facts {
			if strings.HasPrefix(strings.ToLower(f), prefix) {
				return fmt.Sprintf("Here is what we know. %s", f)
			}
		}
		return fmt.Sprintf("We don't have %s data for %s. What would you assume, and why?",
			strings.ToLower(label), cs.Company)
	}
}

var stageHandlers = map[interview.Stage]handler{
	interview.StageIntroduction: stageHandler(
		rule{[]string{"revenue", "sales"}, fact("Revenue")},
		rule{[]string{"cost", "expense"}, fact("Costs")},
		rule{[]string{"volume", "units"}, fact("Volume")},
		rule{[]string{"price", "pricing"}, fact("Price")},
		rule{[]string{"market", "growth"}, fact("Market")},
		rule{[]string{"competitor", "competition"}, fact("Competitor")},
		rule{[]string{"goal", "objective", "success"}, func(cs interview.Case) string {
			if cs.Goal == "" {
				return "The client wants a clear recommendation. How would you define success?"
			}
			return fmt.Sprintf("The client's objective is: %s. Anything else you'd like to clarify?", cs.Goal)
		}},
		rule{[]string{"business model", "customers", "product"}, func(cs interview.Case) string {
			return fmt.Sprintf("%s is a %s business. Think about who pays them and for what.", cs.Company, cs.Industry)
		}},
	),
	interview.StageFramework: stageHandler(
		rule{[]string{"revenue", "cost", "profit"}, fixed("A profit tree is a sensible start. Which branch would you investigate first, and why?")},
		rule{[]string{"framework", "structure", "bucket"}, fixed("Walk me through each bucket and the data you would need for it.")},
		rule{[]string{"customer", "competitor", "market"}, fixed("Good external lens. How does that connect back to the client's problem?")},
	),
	interview.StageMarketSizing: stageHandler(
		rule{[]string{"population", "household", "people"}, fixed("That's a reasonable anchor. How would you segment it?")},
		rule{[]string{"assume", "assumption"}, fixed("State the assumption explicitly and tell me how sensitive the answer is to it.")},
		rule{[]string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, fixed("Let's check the math. How did you arrive at that figure?")},
	),
	interview.StageBrainstorming: stageHandler(
		rule{[]string{"price", "discount"}, fixed("Matching on price is one option. What would it do to margins?")},
		rule{[]string{"cost", "efficien", "automat"}, fixed("Where in the cost base do you see the most room?")},
		rule{[]string{"partner", "acqui", "merge"}, fixed("Interesting. What would make an acquisition or partnership worth it here?")},
		rule{[]string{"brand", "marketing", "differentiat"}, fixed("How would you differentiate without starting a price war?")},
	),
	interview.StageConclusion: stageHandler(
		rule{[]string{"recommend"}, fixed("Clear recommendation. What are the key risks and next steps?")},
		rule{[]string{"risk"}, fixed("Good. How would you mitigate the biggest of those risks?")},
	),
}

var fallbackReplies = []string{
	"Interesting. Can you elaborate on that?",
	"How does that relate to the client's core problem?",
	"What data would you need to validate that hypothesis?",
	"Good. What else might be driving this?",
	"Can you quantify the impact?",
	"Let's keep moving. What is your next step?",
}

// Rules is the offline generator: a stage to handler table with a random
// fallback pool. It is safe for concurrent use.
type Rules struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRules returns a rule engine drawing fallback replies from rng. A nil
// rng is seeded from the clock.
func NewRules(rng *rand.Rand) *Rules {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Rules{rng: rng}
}

// Generate implements interview.Generator. It never fails.
func (r *Rules) Generate(_ context.Context, req interview.Request) (string, error) {
	if h, ok := stageHandlers[req.Stage]; ok {
		if reply, ok := h(req.Case, req.Text); ok {
			return reply, nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return fallbackReplies[r.rng.Intn(len(fallbackReplies))], nil
}

// Evaluate implements interview.Generator. The rule engine cannot score a
// transcript.
func (r *Rules) Evaluate(context.Context, interview.Case, []interview.Message) (interview.Breakdown, error) {
	return interview.Breakdown{}, interview.ErrEvaluatorUnavailable
}
