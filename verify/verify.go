// Package verify is the batch front of the analysis: it resolves
// configuration, fans unit files out to the engine and gathers reports.
package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/verilang/permfold/internal"
	tt "github.com/verilang/permfold/internal/types"
)

const maxShowRecentFiles = 25

// Analyzer runs the permission analysis on one unit.
type Analyzer interface {
	Run(filePath string) (*tt.Report, error)
	RunSource(source []byte) (*tt.Report, error)
}

// New builds an engine from a configuration file. A missing
// configuration path yields a default engine.
func New(configurationPath string, logger *zap.Logger) (*internal.Engine, error) {
	if configurationPath == "" {
		return internal.NewEngine(logger), nil
	}
	config, err := parseConfigurationFile(configurationPath)
	if err != nil {
		return nil, err
	}
	return internal.NewEngine(logger, internal.WithDiscriminantField(config.DiscriminantField)), nil
}

// ProcessSources analyzes in-memory units in order.
func ProcessSources(
	ctx context.Context,
	logger *zap.Logger,
	engine Analyzer,
	sources [][]byte,
) ([]*tt.Report, error) {
	var reports []*tt.Report
	for i, source := range sources {
		report, err := engine.RunSource(source)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing source", zap.Int("source", i), zap.Error(err))
			}
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// ProcessFiles analyzes every given path, descending into directories.
func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine Analyzer,
	paths []string,
) ([]*tt.Report, error) {
	var allReports []*tt.Report
	for _, path := range paths {
		reports, err := ProcessPath(ctx, logger, engine, path)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return nil, err
		}
		allReports = append(allReports, reports...)
	}
	return allReports, nil
}

// ProcessPath analyzes a single unit file, or every unit file under a
// directory with a worker pool and a progress bar.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine Analyzer,
	path string,
) ([]*tt.Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	var reports []*tt.Report
	if info.IsDir() {
		var files []string
		filepath.Walk(path, func(filePath string, fileInfo os.FileInfo, err error) error {
			if err == nil && !fileInfo.IsDir() && internal.IsUnitFile(filePath) {
				files = append(files, filePath)
			}
			return nil
		})

		// mutex for recent files
		var recentFilesMutex sync.Mutex
		recentFiles := make([]string, maxShowRecentFiles)

		// make space for recent files
		for i := 0; i < maxShowRecentFiles+1; i++ {
			fmt.Println()
		}
		fmt.Printf("\033[%dA", maxShowRecentFiles+1)

		// channels for results and errors
		resultChan := make(chan *tt.Report, len(files))
		errorChan := make(chan error, len(files))

		// limit the number of workers
		maxWorkers := runtime.NumCPU()
		sem := make(chan struct{}, maxWorkers)

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription(path),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))

		// update recent files
		updateRecentFiles := func(filename string) {
			recentFilesMutex.Lock()
			defer recentFilesMutex.Unlock()

			// update the list
			for j := maxShowRecentFiles - 1; j > 0; j-- {
				recentFiles[j] = recentFiles[j-1]
			}
			recentFiles[0] = filename

			// move the cursor up
			fmt.Printf("\033[%dA", maxShowRecentFiles)

			// print the list
			for j := range recentFiles {
				if recentFiles[j] != "" {
					// \033[2k: clear the line
					// \r: move the cursor to the beginning of the line
					fmt.Printf("\033[2K\r%s\n", recentFiles[j])
				} else {
					fmt.Printf("\033[2K\r\n")
				}
			}
		}

		// for each file, run a goroutine
		for _, filePath := range files {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
				sem <- struct{}{}
				go func(fp string) {
					defer func() { <-sem }()

					// show the start of file processing
					updateRecentFiles(filepath.Base(fp))

					report, err := engine.Run(fp)
					if err != nil {
						if logger != nil {
							logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
						}
						errorChan <- err
						resultChan <- nil
					} else {
						resultChan <- report
						errorChan <- nil
					}
					bar.Add(1)
				}(filePath)
			}
		}

		// collect all results
		for range files {
			if err := <-errorChan; err != nil {
				continue
			}
			if result := <-resultChan; result != nil {
				reports = append(reports, result)
			}
		}

		fmt.Println()
		return reports, nil
	} else if internal.IsUnitFile(path) {
		report, err := engine.Run(path)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	return reports, nil
}

// Config represents the tool configuration.
type Config struct {
	Name              string `yaml:"name"`
	DiscriminantField string `yaml:"discriminant-field"`
}

func parseConfigurationFile(configurationPath string) (Config, error) {
	var config Config

	// Read the configuration file
	f, err := os.Open(configurationPath)
	if err != nil {
		return config, err
	}
	defer f.Close()

	// Parse the configuration file
	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
