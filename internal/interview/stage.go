// Package interview drives a single case-interview attempt: stage
// progression, the message log, and the final weighted score.
package interview

import "fmt"

// Stage is one phase of the fixed, linear interview progression.
type Stage int

const (
	StageIntroduction Stage = iota
	StageFramework
	StageMarketSizing
	StageBrainstorming
	StageConclusion
)

// Stages lists every stage in interview order.
var Stages = []Stage{
	StageIntroduction,
	StageFramework,
	StageMarketSizing,
	StageBrainstorming,
	StageConclusion,
}

var stageNames = map[Stage]string{
	StageIntroduction:  "Introduction",
	StageFramework:     "Framework",
	StageMarketSizing:  "Market Sizing",
	StageBrainstorming: "Brainstorming",
	StageConclusion:    "Conclusion",
}

// stagePrompts holds the guiding prompt shown when a stage begins.
var stagePrompts = map[Stage]string{
	StageIntroduction:  "Ask clarifying questions about the business model and goal.",
	StageFramework:     "Structure your approach. How will you isolate the profit decline?",
	StageMarketSizing:  "Let's estimate the US market size for widgets. Walk me through your logic.",
	StageBrainstorming: "Competitors dropped prices. What are our strategic options?",
	StageConclusion:    "Synthesize your findings and give a final recommendation.",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Prompt returns the guiding prompt for the stage, or "" for unknown stages.
func (s Stage) Prompt() string {
	return stagePrompts[s]
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	return s >= StageIntroduction && s <= StageConclusion
}

// Terminal reports whether s is the last stage.
func (s Stage) Terminal() bool {
	return s == Stages[len(Stages)-1]
}

// ParseStage maps a stage name (as returned by String) back to its Stage.
func ParseStage(name string) (Stage, bool) {
	for s, n := range stageNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}
