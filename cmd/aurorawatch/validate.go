package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/aurora-watch-service/internal/adapter/feed"
	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/couchcryptid/aurora-watch-service/internal/retry"
	"github.com/spf13/cobra"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "validate [feed.xml]",
		Short: "Check a feed document without touching the store",
		Long: `validate parses a feed document from a file, or from --url, and runs
integrity checks over its thresholds and activities. Nothing is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			switch {
			case len(args) == 1:
				data, err = os.ReadFile(args[0])
			case url != "":
				client := feed.NewClient(url, retry.Policy{Timeout: timeout, Backoff: 500 * time.Millisecond}, slog.New(slog.DiscardHandler))
				data, err = client.Fetch(cmd.Context())
			default:
				return errors.New("a feed file or --url is required")
			}
			if err != nil {
				return err
			}
			if !runValidation(cmd.OutOrStdout(), data) {
				return errors.New("validation failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "fetch the feed from this URL instead of a file")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-attempt fetch timeout")
	return cmd
}

func runValidation(w io.Writer, data []byte) bool {
	fmt.Fprintln(w, "=== AuroraWatch Feed Validation ===")
	fmt.Fprintln(w)

	snap, err := domain.ParseFeed(data)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return false
	}
	records := domain.Normalize(snap)

	phases := []*phase{
		validateThresholds(snap.Thresholds),
		validateActivities(snap, records),
		validateKeys(records),
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-36s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Updated: %s\n", snap.UpdatedAt.Format(domain.ISOLayout))
	fmt.Fprintf(w, "Thresholds: %d, activities: %d\n", len(snap.Thresholds), len(records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}

// validateThresholds checks that status IDs are unique and bounds ascend in
// document order.
func validateThresholds(thresholds []domain.ThresholdDefinition) *phase {
	p := &phase{name: "Phase 1: Thresholds"}
	seen := map[string]bool{}
	for i, th := range thresholds {
		if th.StatusID == "" {
			p.errorf("threshold %d: empty status_id", i)
		}
		if seen[th.StatusID] {
			p.errorf("threshold %d: duplicate status_id %q", i, th.StatusID)
		}
		seen[th.StatusID] = true
		if i > 0 && th.Value <= thresholds[i-1].Value {
			p.errorf("threshold %d (%s): value %d does not exceed previous %d", i, th.StatusID, th.Value, thresholds[i-1].Value)
		}
	}
	return p
}

// validateActivities checks every observation against the declared levels and
// the document's update time.
func validateActivities(snap domain.FeedSnapshot, records []domain.StatusRecord) *phase {
	p := &phase{name: "Phase 2: Activities"}
	known := map[string]bool{}
	for _, th := range snap.Thresholds {
		known[th.StatusID] = true
	}
	for i, rec := range records {
		if rec.StatusID == "" {
			p.errorf("activity %d: empty status_id", i)
		} else if len(known) > 0 && !known[rec.StatusID] {
			p.errorf("activity %d: status_id %q has no lower_threshold", i, rec.StatusID)
		}
		if rec.Value.IsNegative() {
			p.errorf("activity %d: negative value %s", i, rec.Value.String())
		}
		if !snap.UpdatedAt.IsZero() && rec.EpochTime > snap.UpdatedAt.Unix() {
			p.errorf("activity %d: timestamp %s is after the update time", i, rec.ISOString)
		}
	}
	return p
}

// validateKeys checks that composite keys are unique across the document.
func validateKeys(records []domain.StatusRecord) *phase {
	p := &phase{name: "Phase 3: Record keys"}
	seen := map[string]int{}
	for i, rec := range records {
		key := rec.Key(domain.KeyComposite)
		if first, ok := seen[key]; ok {
			p.errorf("activity %d: key %s repeats activity %d", i, key, first)
			continue
		}
		seen[key] = i
	}
	return p
}
