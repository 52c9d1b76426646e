// init.go implements the "consultprep init" command.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultprep-dev/consultprep/internal/config"
)

type initOptions struct {
	name     string
	provider string
	force    bool
}

func newInitCmd(opts *options) *cobra.Command {
	iopts := &initOptions{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .consultprep/config.yaml in the workspace",
		Long: `Initialize the .consultprep/ directory with a default configuration.
API keys are never written to the file; set GEMINI_API_KEY or
AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT in the environment instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts, iopts)
		},
	}
	cmd.Flags().StringVar(&iopts.name, "name", "", "Candidate name used in the interviewer's greeting")
	cmd.Flags().StringVar(&iopts.provider, "provider", config.ProviderRules, "Interviewer provider: rules, gemini or azure")
	cmd.Flags().BoolVar(&iopts.force, "force", false, "Overwrite an existing configuration without asking")
	return cmd
}

func runInit(cmd *cobra.Command, opts *options, iopts *initOptions) error {
	root, err := resolveRoot(opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	configPath := filepath.Join(root, config.Dir, "config.yaml")
	if _, statErr := os.Stat(configPath); statErr == nil && !iopts.force {
		fmt.Fprintf(out, "Warning: %s already exists.\n", configPath)
		fmt.Fprint(out, "Reinitialize? [y/N]: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	cfg.Candidate.Name = strings.TrimSpace(iopts.name)
	cfg.Interviewer.Provider = strings.ToLower(strings.TrimSpace(iopts.provider))
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.WriteConfig(root, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s\n", configPath)
	switch cfg.Interviewer.Provider {
	case config.ProviderGemini:
		fmt.Fprintf(out, "Set %s to use Gemini; without it the rule engine is used.\n", config.EnvGeminiKey)
	case config.ProviderAzure:
		fmt.Fprintf(out, "Set %s and %s to use Azure OpenAI; without them the rule engine is used.\n",
			config.EnvAzureKey, config.EnvAzureURL)
	}
	fmt.Fprintln(out, "Next: run 'consultprep' for the interactive app or 'consultprep practice' for line mode.")
	return nil
}
