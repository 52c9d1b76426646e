package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Candidate.Name = "Tanvi"
	cfg.Interviewer.Provider = ProviderAzure
	cfg.Interviewer.Azure.Deployment = "gpt-4o"
	cfg.Interviewer.AzureAPIKey = "secret"
	cfg.History.TrendWindow = 5

	if err := WriteConfig(tmpDir, cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	loaded, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	if loaded.Candidate.Name != "Tanvi" {
		t.Errorf("Candidate.Name: got %q, want %q", loaded.Candidate.Name, "Tanvi")
	}
	if loaded.Interviewer.Provider != ProviderAzure {
		t.Errorf("Interviewer.Provider: got %q, want %q", loaded.Interviewer.Provider, ProviderAzure)
	}
	if loaded.Interviewer.Azure.Deployment != "gpt-4o" {
		t.Errorf("Azure.Deployment: got %q, want %q", loaded.Interviewer.Azure.Deployment, "gpt-4o")
	}
	if loaded.History.TrendWindow != 5 {
		t.Errorf("History.TrendWindow: got %d, want 5", loaded.History.TrendWindow)
	}
	if loaded.Interviewer.AzureAPIKey != "" {
		t.Errorf("API key must not be persisted, got %q", loaded.Interviewer.AzureAPIKey)
	}
}

func TestReadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := ReadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if cfg.Interviewer.Provider != ProviderRules {
		t.Errorf("Provider: got %q, want %q", cfg.Interviewer.Provider, ProviderRules)
	}
	if cfg.History.MinutesPerCase != 30 {
		t.Errorf("MinutesPerCase: got %d, want 30", cfg.History.MinutesPerCase)
	}
}

func TestReadConfigPartialFileKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	partial := `version: 1
candidate:
  name: Sam
interviewer:
  provider: gemini
`
	configPath := filepath.Join(tmpDir, Dir)
	if err := os.MkdirAll(configPath, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configPath, "config.yaml"), []byte(partial), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if cfg.Candidate.Name != "Sam" {
		t.Errorf("Candidate.Name: got %q, want Sam", cfg.Candidate.Name)
	}
	if cfg.Interviewer.ContextTurns != 10 {
		t.Errorf("ContextTurns: got %d, want default 10", cfg.Interviewer.ContextTurns)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("Server.Addr: got %q, want default", cfg.Server.Addr)
	}
}

func TestReadConfigMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, Dir)
	if err := os.MkdirAll(configPath, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configPath, "config.yaml"), []byte("interviewer: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := ReadConfig(tmpDir); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		wantProvider string
	}{
		{"no env keeps rules", nil, ProviderRules},
		{"gemini key selects gemini", map[string]string{EnvGeminiKey: "g"}, ProviderGemini},
		{"azure key without endpoint stays rules", map[string]string{EnvAzureKey: "a"}, ProviderRules},
		{"azure key with endpoint", map[string]string{EnvAzureKey: "a", EnvAzureURL: "https://x"}, ProviderAzure},
		{"explicit provider wins", map[string]string{EnvGeminiKey: "g", EnvProvider: " Azure "}, ProviderAzure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ApplyEnv(envMap(tt.env))
			if cfg.Interviewer.Provider != tt.wantProvider {
				t.Errorf("Provider: got %q, want %q", cfg.Interviewer.Provider, tt.wantProvider)
			}
		})
	}
}

func TestApplyEnvKeepsConfiguredProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interviewer.Provider = ProviderAzure
	cfg.ApplyEnv(envMap(map[string]string{EnvGeminiKey: "g", EnvCandidate: "Tanvi"}))

	if cfg.Interviewer.Provider != ProviderAzure {
		t.Errorf("Provider: got %q, want azure", cfg.Interviewer.Provider)
	}
	if cfg.Interviewer.GeminiAPIKey != "g" {
		t.Errorf("GeminiAPIKey not applied")
	}
	if cfg.Candidate.Name != "Tanvi" {
		t.Errorf("Candidate.Name: got %q", cfg.Candidate.Name)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cfg.Interviewer.Provider = "openai"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}

	cfg = DefaultConfig()
	cfg.History.TrendWindow = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative trend window")
	}

	cfg = DefaultConfig()
	cfg.Server.SessionTTL = -5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative session TTL")
	}
}

func TestSessionTTLDuration(t *testing.T) {
	if got := DefaultConfig().Server.SessionTTLDuration(); got != 2*time.Hour {
		t.Errorf("got %v, want 2h", got)
	}
	if got := (ServerConfig{}).SessionTTLDuration(); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestTimeoutDuration(t *testing.T) {
	ic := InterviewerConfig{Timeout: 3}
	if got := ic.TimeoutDuration(); got != 3*time.Second {
		t.Errorf("got %v, want 3s", got)
	}
	if got := (InterviewerConfig{}).TimeoutDuration(); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}
