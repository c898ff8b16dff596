package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "intent-annotate <input>",
		Short:        "Annotate a short video with transcript, intent, and object points",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.PersistentFlags().String("out", "", "Output directory (default from OUTPUT_DIR)")
	root.PersistentFlags().Int64("interval", 0, "Sampling interval in milliseconds (default from SAMPLING_INTERVAL_MS)")

	// Hidden debugging flag (internal)
	root.PersistentFlags().Bool("keep-workdir", false, "Keep the normalized audio/video temp directory")
	_ = root.PersistentFlags().MarkHidden("keep-workdir")

	root.AddCommand(newBatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
