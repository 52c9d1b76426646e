package interviewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

// DefaultContextTurns is how many prior messages the model sees.
const DefaultContextTurns = 10

// Completer is a single-shot text completion backend.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// LLM turns a Completer into an interview.Generator.
type LLM struct {
	completer Completer
	turns     int
	candidate string
	logger    *zap.Logger
}

// LLMOptions configures an LLM generator.
type LLMOptions struct {
	// ContextTurns bounds the rolling window of prior messages.
	ContextTurns int
	// Candidate is named in the prompts when set.
	Candidate string
	Logger    *zap.Logger
}

// NewLLM wraps c.
func NewLLM(c Completer, opts LLMOptions) *LLM {
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = DefaultContextTurns
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &LLM{
		completer: c,
		turns:     opts.ContextTurns,
		candidate: strings.TrimSpace(opts.Candidate),
		logger:    opts.Logger,
	}
}

// Generate implements interview.Generator.
func (l *LLM) Generate(ctx context.Context, req interview.Request) (string, error) {
	reply, err := l.completer.Complete(ctx, l.systemPrompt(req.Case, req.Stage), l.turnPrompt(req))
	if err != nil {
		return "", classify(err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty completion", interview.ErrGeneratorUnavailable)
	}
	return reply, nil
}

// Evaluate implements interview.Generator. It asks the model for a JSON
// scorecard and rejects answers that lack any of the three dimensions.
func (l *LLM) Evaluate(ctx context.Context, cs interview.Case, transcript []interview.Message) (interview.Breakdown, error) {
	text, err := l.completer.Complete(ctx, evaluatorSystem, l.evaluationPrompt(cs, transcript))
	if err != nil {
		return interview.Breakdown{}, fmt.Errorf("%w: %w", interview.ErrEvaluatorUnavailable, err)
	}
	b, err := ParseEvaluation(text)
	if err != nil {
		l.logger.Debug("unparseable evaluation", zap.String("raw", text))
		return interview.Breakdown{}, err
	}
	return b, nil
}

func (l *LLM) systemPrompt(cs interview.Case, stage interview.Stage) string {
	var b strings.Builder
	b.WriteString("You are a Case Interviewer at a top consulting firm (McKinsey/BCG style).\n")
	fmt.Fprintf(&b, "Case: %s (%s, %s).\n", cs.Company, cs.Industry, cs.Problem)
	fmt.Fprintf(&b, "Current Stage: %s. %s\n\n", stage, stage.Prompt())

	b.WriteString("Your Goal:\n")
	if l.candidate != "" {
		fmt.Fprintf(&b, "- Guide the candidate (%s) through the case.\n", l.candidate)
	} else {
		b.WriteString("- Guide the candidate through the case.\n")
	}
	b.WriteString("- Be professional, encouraging, but rigorous.\n")
	b.WriteString("- Do NOT give the answer away. Ask guiding questions.\n")
	b.WriteString("- If they ask for data, provide it ONLY if it fits the current stage.\n")
	b.WriteString("- Keep responses concise (max 3 sentences).\n")

	if len(cs.Facts) > 0 {
		b.WriteString("\nData Context:\n")
		for _, f := range cs.Facts {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if cs.Goal != "" {
		fmt.Fprintf(&b, "\nClient objective: %s\n", cs.Goal)
	}
	return b.String()
}

func (l *LLM) turnPrompt(req interview.Request) string {
	history := req.History
	if len(history) > l.turns {
		history = history[len(history)-l.turns:]
	}

	var b strings.Builder
	b.WriteString("Conversation History:\n")
	writeTranscript(&b, history)
	fmt.Fprintf(&b, "Candidate: %s\n\nInterviewer Response:", req.Text)
	return b.String()
}

const evaluatorSystem = "You are a consulting interview assessor. Score strictly and reply with JSON only."

func (l *LLM) evaluationPrompt(cs interview.Case, transcript []interview.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following case interview transcript for %s.\n", cs.Company)
	if l.candidate != "" {
		fmt.Fprintf(&b, "Candidate: %s.\n", l.candidate)
	}
	b.WriteString("\nTranscript:\n")
	writeTranscript(&b, transcript)
	b.WriteString("\nTask:\nProvide a score (0-100) for:\n1. Structure\n2. Analysis\n3. Communication\n\n")
	b.WriteString("Output format: JSON with keys 'Structure', 'Analysis', 'Communication'.")
	return b.String()
}

func writeTranscript(b *strings.Builder, msgs []interview.Message) {
	for _, m := range msgs {
		speaker := "Interviewer"
		if m.Role == interview.RoleCandidate {
			speaker = "Candidate"
		}
		fmt.Fprintf(b, "%s: %s\n", speaker, m.Text)
	}
}

type scorecard struct {
	Structure     *float64 `json:"Structure"`
	Analysis      *float64 `json:"Analysis"`
	Communication *float64 `json:"Communication"`
}

// ParseEvaluation extracts a Breakdown from a model answer. The JSON object
// may be wrapped in prose or a code fence. Scores are rounded and clamped
// to [0,100]. A missing dimension is ErrMalformedEvaluation.
func ParseEvaluation(text string) (interview.Breakdown, error) {
	raw, ok := findScorecard(text)
	if !ok {
		return interview.Breakdown{}, fmt.Errorf("%w: no score object in reply", interview.ErrMalformedEvaluation)
	}
	var sc scorecard
	if err := json.Unmarshal(raw, &sc); err != nil {
		return interview.Breakdown{}, fmt.Errorf("%w: %w", interview.ErrMalformedEvaluation, err)
	}
	if sc.Structure == nil || sc.Analysis == nil || sc.Communication == nil {
		return interview.Breakdown{}, fmt.Errorf("%w: missing score keys", interview.ErrMalformedEvaluation)
	}
	b := interview.Breakdown{
		Structure:     int(math.Round(*sc.Structure)),
		Analysis:      int(math.Round(*sc.Analysis)),
		Communication: int(math.Round(*sc.Communication)),
	}
	return b.Clamp(), nil
}

// findScorecard returns the first balanced JSON object in text that carries
// a Structure key, skipping fences, prose and unrelated objects.
func findScorecard(text string) (json.RawMessage, bool) {
	for i := strings.IndexByte(text, '{'); i != -1; {
		var obj map[string]json.RawMessage
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&obj); err == nil {
			for k := range obj {
				if strings.EqualFold(k, "structure") {
					return json.RawMessage(text[i : i+int(dec.InputOffset())]), true
				}
			}
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next == -1 {
			break
		}
		i += next + 1
	}
	return nil, false
}

// classify maps a completer failure onto the generator sentinels. Quota
// exhaustion (HTTP 429 or a "quota" message) is ErrRateLimited; anything
// else is ErrGeneratorUnavailable. Context errors stay matchable.
func classify(err error) error {
	if errors.Is(err, interview.ErrRateLimited) || errors.Is(err, interview.ErrGeneratorUnavailable) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "quota") {
		return fmt.Errorf("%w: %w", interview.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %w", interview.ErrGeneratorUnavailable, err)
}
