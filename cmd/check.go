package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verilang/permfold/formatter"
	tt "github.com/verilang/permfold/internal/types"
	"github.com/verilang/permfold/verify"
)

var (
	checkJsonOutput bool
	outPath         string
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Analyze the permission states of verification units",
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

		printReports(logger, reports, checkJsonOutput, outPath)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJsonOutput, "json", false, "Output reports in JSON format")
	checkCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
}

func printReports(logger *zap.Logger, reports []*tt.Report, isJson bool, jsonOutput string) {
	if !isJson {
		// text output
		fmt.Println(formatter.GenerateFormattedReports(reports))
		return
	}

	// JSON output
	d, err := json.Marshal(reports)
	if err != nil {
		logger.Error("Error marshalling reports to JSON", zap.Error(err))
		return
	}
	if jsonOutput == "" {
		fmt.Println(string(d))
		return
	}
	f, err := os.Create(jsonOutput)
	if err != nil {
		logger.Error("Error creating JSON output file", zap.Error(err))
		return
	}
	defer f.Close()
	if _, err = f.Write(d); err != nil {
		logger.Error("Error writing JSON output file", zap.Error(err))
	}
}
