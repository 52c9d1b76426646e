package interviewer

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/consultprep-dev/consultprep/internal/config"
	"github.com/consultprep-dev/consultprep/internal/interview"
)

// New builds the generator selected by cfg. A remote provider without
// credentials degrades to the rule engine with a warning rather than
// failing, so practice works offline.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (interview.Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ic := cfg.Interviewer

	var (
		completer Completer
		err       error
	)
	switch ic.Provider {
	case config.ProviderRules, "":
		return newRules(ic), nil
	case config.ProviderGemini:
		if ic.GeminiAPIKey == "" {
			logger.Warn("no Gemini API key, falling back to rule engine",
				zap.String("env", config.EnvGeminiKey))
			return newRules(ic), nil
		}
		completer, err = NewGemini(ctx, ic.GeminiAPIKey, ic.Model)
	case config.ProviderAzure:
		if ic.AzureAPIKey == "" || ic.Azure.Endpoint == "" {
			logger.Warn("no Azure OpenAI credentials, falling back to rule engine",
				zap.String("env", config.EnvAzureKey))
			return newRules(ic), nil
		}
		deployment := ic.Azure.Deployment
		if deployment == "" {
			deployment = ic.Model
		}
		completer, err = NewAzure(ic.Azure.Endpoint, ic.AzureAPIKey, deployment)
	default:
		return nil, fmt.Errorf("unknown interviewer provider %q", ic.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("interviewer ready",
		zap.String("provider", ic.Provider),
		zap.String("model", ic.Model))
	llm := NewLLM(completer, LLMOptions{
		ContextTurns: ic.ContextTurns,
		Candidate:    cfg.Candidate.Name,
		Logger:       logger,
	})
	return NewBreaker(llm, DefaultBreakerThreshold, DefaultBreakerCooldown), nil
}

func newRules(ic config.InterviewerConfig) *Rules {
	seed := ic.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewRules(rand.New(rand.NewSource(seed)))
}
