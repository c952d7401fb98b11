package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/cli/internal/ui"
	"github.com/queryscope/queryscope/internal/core/query/domain"
	"github.com/queryscope/queryscope/internal/service"
)

var (
	runConnection string
	runSpecFile   string
	runTemplateID int64
	runLimit      int
	runTimeout    time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compile, validate and execute a query spec",
	Long: `Run a query spec end to end: compile it for the connection's dialect,
validate the statement against the schema, then execute it read-only
with the row cap and timeout applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := getEngine()
		if err != nil {
			return err
		}
		if (runSpecFile == "") == (runTemplateID == 0) {
			return errors.New("exactly one of --file or --template is required")
		}

		var spec domain.QuerySpec
		connectionID := runConnection
		if runTemplateID != 0 {
			var templateConn string
			spec, templateConn, err = eng.LoadTemplate(cmd.Context(), runTemplateID)
			if err != nil {
				return err
			}
			if connectionID == "" {
				connectionID = templateConn
			}
		} else {
			spec, err = loadSpecFile(runSpecFile)
			if err != nil {
				return err
			}
		}
		if connectionID == "" {
			return errors.New("a connection id is required")
		}

		outcome, err := eng.Run(cmd.Context(), spec, connectionID, executionOptions(runLimit, runTimeout))
		if outcome != nil {
			ui.PrintDiagnostics(outcome.Statement.Diagnostics)
			for _, d := range outcome.Validation.Errors {
				ui.PrintError("%s", d)
			}
			for _, d := range outcome.Validation.Warnings {
				ui.PrintWarning("%s", d)
			}
		}
		if errors.Is(err, service.ErrNotRunnable) {
			return errors.New("statement is not runnable; fix the reported diagnostics")
		}
		if err != nil {
			return err
		}

		ui.PrintDim("%s", outcome.Statement.SQL)
		return ui.RenderResult(outcome.Result)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConnection, "connection", "c", "", "connection id")
	runCmd.Flags().StringVarP(&runSpecFile, "file", "f", "", "query spec JSON file")
	runCmd.Flags().Int64VarP(&runTemplateID, "template", "t", 0, "run a saved template by id")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "row limit (capped at 1000)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "execution timeout (max 120s)")
	rootCmd.AddCommand(runCmd)
}
