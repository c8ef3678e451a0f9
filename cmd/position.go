package cmd

import (
	"fmt"
	"os"

	"github.com/mireault/checklog/internal/seekpos"
	"github.com/mireault/checklog/pkg/timeutil"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	positionSeekDir string
	positionTag     string
)

var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Inspect or reset persisted scan positions",
	Long: `Every check persists the byte offset where its scan stopped, keyed by the
log file path and an optional tag. These commands inspect and reset that
state; resetting makes the next run scan the file from the top.`,
}

var positionShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show the persisted position for a log file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPositionShow,
}

var positionResetCmd = &cobra.Command{
	Use:   "reset <file>",
	Short: "Forget the persisted position for a log file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPositionReset,
}

func init() {
	rootCmd.AddCommand(positionCmd)
	positionCmd.AddCommand(positionShowCmd)
	positionCmd.AddCommand(positionResetCmd)

	positionCmd.PersistentFlags().StringVar(&positionSeekDir, "seek-dir", "", "Directory holding persisted scan positions")
	positionCmd.PersistentFlags().StringVar(&positionTag, "tag", "", "Tag the check was run with")
}

func positionStore() (*seekpos.Store, error) {
	dir := positionSeekDir
	if dir == "" {
		dir = viper.GetString("seek_dir")
	}
	store := seekpos.New(dir)
	if store.Discard() {
		return nil, fmt.Errorf("position persistence is disabled (seek dir %q)", dir)
	}
	return store, nil
}

func runPositionShow(cmd *cobra.Command, args []string) error {
	store, err := positionStore()
	if err != nil {
		return err
	}
	key := seekpos.Key(args[0], positionTag)

	offset, ok := store.Read(key)
	if !ok {
		render.Info("no position recorded for %s", args[0])
		return nil
	}

	render.Field("File", "%s", args[0])
	render.Field("Key", "%s", key)
	render.Field("Offset", "%d (%s)", offset, timeutil.FormatBytes(offset))
	if age, ok := store.Age(key); ok {
		render.Field("Updated", "%s ago", timeutil.FormatDuration(age))
	}
	render.Field("State file", "%s", store.Path(key))

	if info, err := os.Stat(args[0]); err == nil {
		render.Field("File size", "%s", timeutil.FormatBytes(info.Size()))
		if info.Size() < offset {
			render.Warning("file is smaller than the stored offset; next run will rescan from the top")
		} else {
			render.Field("Unscanned", "%s", timeutil.FormatBytes(info.Size()-offset))
		}
	}
	return nil
}

func runPositionReset(cmd *cobra.Command, args []string) error {
	store, err := positionStore()
	if err != nil {
		return err
	}
	key := seekpos.Key(args[0], positionTag)

	if err := store.Reset(key); err != nil {
		return err
	}
	render.Success("position reset for %s; next run scans from the top", args[0])
	return nil
}
