// Package formatter renders analysis reports for the terminal.
package formatter

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	tt "github.com/verilang/permfold/internal/types"
)

var (
	unitStyle    = color.New(color.FgCyan, color.Bold)
	fileStyle    = color.New(color.FgHiBlue)
	sectionStyle = color.New(color.FgYellow, color.Bold)
	nameStyle    = color.New(color.FgWhite, color.Bold)
	factStyle    = color.New(color.FgGreen)
	emptyStyle   = color.New(color.FgHiBlack)
	gainStyle    = color.New(color.FgGreen, color.Bold)
	bodyStyle    = color.New(color.FgHiBlack)
)

// GenerateFormattedReports renders a batch of reports.
func GenerateFormattedReports(reports []*tt.Report) string {
	var builder strings.Builder
	for i, report := range reports {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(FormatReport(report))
	}
	return builder.String()
}

// FormatReport renders one unit's report.
func FormatReport(report *tt.Report) string {
	var builder strings.Builder

	builder.WriteString(unitStyle.Sprintf("unit %s", report.Unit))
	if report.Filename != "" {
		builder.WriteString(fileStyle.Sprintf(" (%s)", report.Filename))
	}
	builder.WriteString("\n")

	for _, m := range report.Methods {
		builder.WriteString(sectionStyle.Sprint("  method "))
		builder.WriteString(nameStyle.Sprint(m.Method))
		builder.WriteString("\n")
		builder.WriteString(formatFactSet("acc", m.Acc))
		builder.WriteString(formatFactSet("pred", m.Pred))
	}

	for _, f := range report.Functions {
		builder.WriteString(sectionStyle.Sprint("  function "))
		builder.WriteString(nameStyle.Sprint(f.Function))
		builder.WriteString(formatHoisting(f))
		builder.WriteString("\n")
		builder.WriteString(bodyStyle.Sprintf("    %s\n", f.Body))
	}

	return builder.String()
}

func formatFactSet(label string, places []string) string {
	if len(places) == 0 {
		return fmt.Sprintf("    %-4s %s\n", label, emptyStyle.Sprint("{}"))
	}
	return fmt.Sprintf("    %-4s %s\n", label, factStyle.Sprintf("{%s}", strings.Join(places, ", ")))
}

func formatHoisting(f tt.FunctionReport) string {
	if f.Hoisted() <= 0 {
		return emptyStyle.Sprintf(" (%d unfoldings)", f.UnfoldingsAfter)
	}
	return gainStyle.Sprintf(" (%d -> %d unfoldings)", f.UnfoldingsBefore, f.UnfoldingsAfter)
}
