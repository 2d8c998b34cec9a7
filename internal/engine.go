package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/verilang/permfold/internal/encoding"
	"github.com/verilang/permfold/internal/folding"
	"github.com/verilang/permfold/internal/transfer"
	tt "github.com/verilang/permfold/internal/types"
	"github.com/verilang/permfold/internal/vir"
)

// Engine drives the permission analysis of verification units: decoding,
// the per-method transfer function, and unfolding hoisting over function
// bodies.
type Engine struct {
	logger            *zap.Logger
	discriminantField string

	watcher    *fsnotify.Watcher
	watchDirs  []string
	isWatching bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDiscriminantField overrides the field name treated as an enum
// discriminant by the optimizer. Unit files may still override it per
// unit.
func WithDiscriminantField(name string) EngineOption {
	return func(e *Engine) {
		if name != "" {
			e.discriminantField = name
		}
	}
}

// WithWatchDirs sets the directories observed by StartWatching.
func WithWatchDirs(dirs ...string) EngineOption {
	return func(e *Engine) {
		e.watchDirs = dirs
	}
}

// NewEngine creates an analysis engine.
func NewEngine(logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger:            logger,
		discriminantField: vir.DefaultDiscriminantField,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run analyzes the verification unit stored at filename.
func (e *Engine) Run(filename string) (*tt.Report, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading unit file: %w", err)
	}
	report, err := e.RunSource(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	report.Filename = filename
	return report, nil
}

// RunSource analyzes a verification unit given as raw bytes.
func (e *Engine) RunSource(source []byte) (*tt.Report, error) {
	program, err := encoding.DecodeProgram(source)
	if err != nil {
		return nil, err
	}
	return e.analyze(program)
}

func (e *Engine) analyze(program *vir.Program) (report *tt.Report, err error) {
	// The core signals contract violations by panicking; at the engine
	// boundary they become errors so one bad unit does not take down a
	// batch run.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit %s: %v", program.Name, r)
		}
	}()

	report = &tt.Report{Unit: program.Name}
	e.logger.Debug("analyzing unit",
		zap.String("unit", program.Name),
		zap.Int("methods", len(program.Methods)),
		zap.Int("functions", len(program.Functions)),
	)

	tr := transfer.New(program.Predicates, transfer.WithLogger(e.logger))
	opt := folding.New(
		folding.WithLogger(e.logger),
		folding.WithDiscriminantField(e.unitDiscriminant(program)),
	)

	for _, m := range program.Methods {
		state := tr.Method(m)
		opt.Method(m)
		report.Methods = append(report.Methods, tt.MethodReport{
			Method: m.Name,
			Acc:    placeStrings(state.Acc()),
			Pred:   placeStrings(state.Pred()),
		})
	}

	for _, fn := range program.Functions {
		before := len(vir.Unfoldings(fn.Body))
		opt.Function(fn)
		report.Functions = append(report.Functions, tt.FunctionReport{
			Function:         fn.Name,
			UnfoldingsBefore: before,
			UnfoldingsAfter:  len(vir.Unfoldings(fn.Body)),
			Body:             fn.Body.String(),
		})
	}
	return report, nil
}

func (e *Engine) unitDiscriminant(program *vir.Program) func(string) bool {
	unit := program.Predicates
	if e.discriminantField == vir.DefaultDiscriminantField {
		return unit.IsDiscriminantField
	}
	return func(name string) bool {
		return unit.IsDiscriminantField(name) || name == e.discriminantField
	}
}

func placeStrings(places []vir.Place) []string {
	out := make([]string, len(places))
	for i, p := range places {
		out[i] = p.String()
	}
	return out
}

// IsUnitFile reports whether a path looks like a verification unit.
func IsUnitFile(path string) bool {
	return strings.HasSuffix(filepath.Base(path), ".vir.yaml")
}
