// Package ui provides terminal output helpers for the CLI.
package ui

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/queryscope/queryscope/internal/core/query/domain"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	dimColor     = color.New(color.Faint)
)

// PrintSuccess prints a success message.
func PrintSuccess(format string, args ...any) {
	successColor.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message.
func PrintError(format string, args ...any) {
	errorColor.Printf("✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message.
func PrintWarning(format string, args ...any) {
	warnColor.Printf("! "+format+"\n", args...)
}

// PrintInfo prints an informational message.
func PrintInfo(format string, args ...any) {
	infoColor.Printf(format+"\n", args...)
}

// PrintDim prints de-emphasized text.
func PrintDim(format string, args ...any) {
	dimColor.Printf(format+"\n", args...)
}

// PrintSQL prints a compiled statement with its parameter count. Parameter
// values are shown only here, at the user's explicit request, never in
// logs.
func PrintSQL(stmt domain.CompiledStatement) {
	fmt.Println(stmt.SQL)
	if len(stmt.Params) > 0 {
		PrintDim("parameters: %v", stmt.Params)
	}
}

// PrintDiagnostics renders compiler diagnostics.
func PrintDiagnostics(diags []domain.Diagnostic) {
	for _, d := range diags {
		PrintWarning("%s", d)
	}
}

// PrintValidation renders a validation result.
func PrintValidation(res domain.ValidationResult) {
	for _, d := range res.Errors {
		PrintError("%s", d)
	}
	for _, d := range res.Warnings {
		PrintWarning("%s", d)
	}
	if res.IsValid {
		PrintSuccess("statement is valid")
	}
}

// RenderResult renders a query result as a table.
func RenderResult(res *domain.QueryResult) error {
	data := make(pterm.TableData, 0, len(res.Rows)+1)
	data = append(data, res.Columns)
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprintf("%v", v)
		}
		data = append(data, cells)
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	summary := fmt.Sprintf("%d row(s) in %s", res.RowCount, res.Duration.Round(time.Millisecond))
	if res.Truncated {
		summary += " (truncated)"
	}
	PrintDim("%s", summary)
	return nil
}

// Spinner starts a spinner with the given text.
func Spinner(text string) (*pterm.SpinnerPrinter, error) {
	return pterm.DefaultSpinner.Start(text)
}
