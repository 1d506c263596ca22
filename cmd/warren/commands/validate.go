package commands

import (
	"fmt"
	"strings"

	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/responder"
	"github.com/dyluth/warren/internal/strategy"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check warren.yml without starting anything",
	Long: `Load the configuration, build the specialist registry, and bind every
strategy, reporting the first problem found.

No session backend is contacted and no specialist is invoked.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	reg, err := responder.BuildRegistry(cfg, configDir(configPath), logger)
	if err != nil {
		return printer.Error("invalid specialists", err.Error(), nil)
	}

	set, err := strategy.NewSet(reg, strategiesFromConfig(cfg.Strategies)...)
	if err != nil {
		return printer.Error("invalid strategy bindings", err.Error(), nil)
	}

	out := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	out.Success("%s is valid\n\n", configPath)
	out.Heading("Specialists (%d)", reg.Len())
	for _, id := range reg.IDs() {
		s, _ := reg.Resolve(id)
		out.Info("  %s [%s]\n", id, strings.Join(s.Tags, ", "))
	}

	out.Info("\n")
	out.Heading("Strategies")
	for _, k := range strategy.Kinds() {
		st, _ := set.Get(k)
		line := fmt.Sprintf("  %-12s %s", k, strings.Join(st.SpecialistIDs, ", "))
		if st.Synthesize {
			line += " (synthesize)"
		}
		out.Info("%s\n", line)
	}
	return nil
}
