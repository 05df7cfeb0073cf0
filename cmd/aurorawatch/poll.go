package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/couchcryptid/aurora-watch-service/internal/alert"
	"github.com/couchcryptid/aurora-watch-service/internal/pipeline"
	"github.com/spf13/cobra"
)

func newPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run a single poll cycle and print its report",
		Long: `poll fetches the feed once, upserts every record, runs the alert check,
and prints the cycle report as JSON. It exits non-zero when the feed cannot be
fetched or parsed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.poller.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report)
		},
	}
}

type cycleOutput struct {
	pipeline.CycleReport
	WriteError  string `json:"writeError,omitempty"`
	SinkError   string `json:"sinkError,omitempty"`
	AlertError  string `json:"alertError,omitempty"`
	NotifyError string `json:"notifyError,omitempty"`
}

func writeReport(w io.Writer, report pipeline.CycleReport) error {
	out := cycleOutput{
		CycleReport: report,
		WriteError:  errString(report.Write.Err),
		SinkError:   errString(report.SinkErr),
		AlertError:  errString(report.AlertErr),
		NotifyError: errString(report.Alert.NotifyErr),
	}
	return writeJSON(w, out)
}

func newEvaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Check the last six hours for the green status and notify",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			outcome, err := a.evaluator.Evaluate(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), struct {
				alert.Outcome
				NotifyError string `json:"notifyError,omitempty"`
			}{outcome, errString(outcome.NotifyErr)}); err != nil {
				return err
			}
			if outcome.NotifyErr != nil {
				return errors.New("notification was not delivered")
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
