package cmd

import (
	"fmt"
	"os"

	"github.com/mireault/checklog/internal/logging"
	"github.com/mireault/checklog/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	quiet   bool

	// render is the global renderer for human-facing output
	render *ui.Renderer
)

var rootCmd = &cobra.Command{
	Use:   "checklog",
	Short: "Log-scanning checks for monitoring supervisors",
	Long: `checklog scans growing log files for pattern matches and reports a
monitoring status line plus exit code (OK/WARNING/CRITICAL/UNKNOWN).

Scans are incremental: the byte offset where a run stopped is persisted per
check, so repeated invocations only ever see new lines. Rotated files are
detected and rescanned from the top.

Check references:
  /var/log/app.log       scan a fixed file
  @alias-name            a named check from the config file

Configuration:
  Create ~/.checklog/config.yaml to define named checks:

    seek_dir: /var/lib/checklog

    checks:
      app-errors:
        file: /var/log/app.log
        patterns: ["ERROR", "FATAL"]
        whitelist: ["ERROR_REPORT_SENT"]
        warning: "1"
        critical: "10%"

Examples:
  # Alert WARNING at the first ERROR since the last run
  checklog check /var/log/app.log -p ERROR -w 1

  # Percentage threshold with a whitelist
  checklog check /var/log/app.log -p ERROR --whitelist deprecated -w 5%

  # Run a configured check
  checklog check @app-errors

  # Heartbeat: CRITICAL when the app wrote nothing since the last run
  checklog check /var/log/app.log -c 1 --negate

  # Re-run a check on every file change while tuning it
  checklog watch @app-errors`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3) // command-level failures are UNKNOWN to the supervisor
	}
}

// SetVersion sets the version string for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	cobra.OnInitialize(initConfig, initRenderer)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.checklog/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose diagnostics on stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress status messages")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initRenderer initializes the global renderer with current settings.
func initRenderer() {
	render = ui.NewRenderer(
		ui.WithNoColor(noColor || os.Getenv("NO_COLOR") != ""),
		ui.WithQuiet(quiet),
	)
	if IsVerbose() {
		logging.Default().SetLevel(logging.LevelDebug)
	}
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return verbose || viper.GetBool("verbose")
}

// Debugf prints a debug message if verbose mode is enabled
func Debugf(format string, args ...interface{}) {
	if IsVerbose() {
		render.Debug(format, args...)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.checklog")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("CHECKLOG")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("seek_dir", defaultSeekDir())

	// Read config file (ignore if not found, warn on other errors)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}
}

// defaultSeekDir picks a writable default for persisted scan positions.
func defaultSeekDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/checklog"
	}
	return os.TempDir()
}

// configFilePath returns the explicit --config value, if any, for the parts
// of the tool that read the alias file directly.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return ""
}
