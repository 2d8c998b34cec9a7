package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verilang/permfold/formatter"
	"github.com/verilang/permfold/internal"
	tt "github.com/verilang/permfold/internal/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Watch directories and re-analyze unit files on change",
	Run: func(cmd *cobra.Command, args []string) {
		dirs := args
		if len(dirs) == 0 {
			dirs = []string{"."}
		}

		engine := internal.NewEngine(logger, internal.WithWatchDirs(dirs...))
		err := engine.StartWatching(func(filename string, report *tt.Report, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return
			}
			fmt.Println(formatter.FormatReport(report))
		})
		if err != nil {
			logger.Fatal("Failed to start watching", zap.Error(err))
		}
		defer engine.StopWatching()

		fmt.Printf("watching %v for unit file changes, press ctrl-c to stop\n", dirs)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
	},
}
