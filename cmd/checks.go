package cmd

import (
	"sort"
	"strings"

	"github.com/mireault/checklog/internal/config"

	"github.com/spf13/cobra"
)

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the named checks from the config file",
	Long: `List every check defined in the config file, with the file it scans and
its patterns. Run one with 'checklog check @name'.`,
	RunE: runChecks,
}

func init() {
	rootCmd.AddCommand(checksCmd)
}

func runChecks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFilePath())
	if err != nil {
		return err
	}
	if len(cfg.Checks) == 0 {
		render.Info("no checks defined (config: %s)", config.Path())
		return nil
	}

	names := make([]string, 0, len(cfg.Checks))
	for name := range cfg.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		if i > 0 {
			render.Info("")
		}
		spec := cfg.Checks[name]
		render.Field("Check", "@%s", name)
		render.Field("File", "%s%s", spec.File, spec.GlobSuffix)
		if len(spec.Patterns) > 0 {
			render.Field("Patterns", "%s", strings.Join(spec.Patterns, ", "))
		} else if spec.Classifier == "" {
			render.Field("Mode", "heartbeat")
		}
		if len(spec.Whitelist) > 0 {
			render.Field("Whitelist", "%s", strings.Join(spec.Whitelist, ", "))
		}
		if spec.Warning != "" || spec.Critical != "" {
			render.Field("Thresholds", "warn=%s crit=%s", orDash(spec.Warning), orDash(spec.Critical))
		}
		if spec.Classifier != "" {
			render.Field("Classifier", "%s", spec.Classifier)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
