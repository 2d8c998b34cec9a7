// Package internal provides the analysis engine for verification units.
//
// The engine ties the pipeline together: it decodes .vir.yaml unit files
// into the IR, runs the permission-state transfer function over every
// method, applies unfolding hoisting to every function body, and collects
// the outcome into a Report.
//
// Key components:
//
// Engine: coordinates decoding, analysis and reporting for one unit at a
// time. Contract violations raised by the core packages are converted to
// errors at this boundary.
//
// Watching: an Engine can observe directories and re-analyze unit files
// as they change.
//
// Usage:
//
//	engine := internal.NewEngine(logger)
//	report, err := engine.Run("path/to/unit.vir.yaml")
//	if err != nil {
//	    // handle error
//	}
//	for _, m := range report.Methods {
//	    fmt.Printf("%s: acc %v, pred %v\n", m.Method, m.Acc, m.Pred)
//	}
//
// This package is intended for internal use within the tool and should
// not be imported by external packages.
package internal
