package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loan-calculator/render"
	"loan-calculator/service"
	"loan-calculator/tui"
)

var exportDir string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive calculator",
	Long: `Open the calculator in the terminal.

Keys: tab/shift+tab move between fields, ←/→ change the loan type, enter
calculates, ctrl+e exports the schedule as CSV, ctrl+r resets, esc quits.
Logs go to the file set by tui.log_file (TUI_LOG_FILE).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gateway, cleanup := newGateway(ctx)
		defer cleanup()

		ctrl := service.NewController(gateway, log)
		return tui.Run(ctx, ctrl, tui.Options{
			Styles:    render.DefaultStyles(),
			ExportDir: exportDir,
			Log:       log,
		})
	},
}

func init() {
	tuiCmd.Flags().StringVar(&exportDir, "export-dir", ".", "Directory CSV exports are written to")
}
