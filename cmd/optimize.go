package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verilang/permfold/verify"
)

var optimizeOutPath string

var optimizeCmd = &cobra.Command{
	Use:   "optimize [paths...]",
	Short: "Hoist unfolding expressions in function bodies and print the results",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide unit file or directory paths")
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine, err := verify.New(cfgFile, logger)
		if err != nil {
			logger.Fatal("Failed to initialize analysis engine", zap.Error(err))
		}

		reports, err := verify.ProcessFiles(ctx, logger, engine, args)
		if err != nil {
			logger.Error("Error processing files", zap.Error(err))
			os.Exit(1)
		}

		var builder strings.Builder
		for _, report := range reports {
			for _, f := range report.Functions {
				fmt.Fprintf(&builder, "// unit %s, function %s: %d -> %d unfoldings\n",
					report.Unit, f.Function, f.UnfoldingsBefore, f.UnfoldingsAfter)
				fmt.Fprintf(&builder, "%s\n\n", f.Body)
			}
		}

		if optimizeOutPath == "" {
			fmt.Print(builder.String())
			return
		}
		if err := os.WriteFile(optimizeOutPath, []byte(builder.String()), 0o644); err != nil {
			logger.Error("Error writing output file", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	optimizeCmd.Flags().StringVarP(&optimizeOutPath, "output", "o", "", "Write optimized bodies to a file instead of stdout")
}
