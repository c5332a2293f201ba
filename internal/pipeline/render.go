package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/claimgate/internal/model"
)

// RenderJSON writes the report as indented JSON. "-" writes to stdout.
func RenderJSON(report *model.RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// RenderSummary prints a short human-readable summary of one run
func RenderSummary(w io.Writer, report *model.RunReport) {
	s := report.Summary
	source := report.Source
	if source == "" {
		source = "(stdin)"
	}

	fmt.Fprintf(w, "\n%s\n", source)
	fmt.Fprintf(w, "  Task:      %s\n", report.Task)
	fmt.Fprintf(w, "  Claims:    %d\n", s.Total)
	fmt.Fprintf(w, "  Accepted:  %d", s.Accepted)
	if s.Rescued > 0 {
		fmt.Fprintf(w, " (%d via subtopic bridging)", s.Rescued)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Rejected:  %d\n", s.Rejected)

	// Gate order, so runs compare line by line
	for _, code := range model.ReasonCodes() {
		if n := s.ByCode[code]; n > 0 {
			fmt.Fprintf(w, "    %-22s %d\n", code, n)
		}
	}

	if s.CacheHitRate != nil {
		fmt.Fprintf(w, "  Cache hit rate: %.1f%%\n", *s.CacheHitRate*100)
	}
	fmt.Fprintf(w, "  Duration:  %s\n", report.Duration)
}

// RenderVerdicts lists each verdict on one line
func RenderVerdicts(w io.Writer, report *model.RunReport) {
	for _, v := range report.Verdicts {
		mark := "✗"
		if v.IsValid {
			mark = "✓"
		}
		fmt.Fprintf(w, "  %s %-36s %.2f  %s\n", mark, v.Claim.ID, v.EntailmentScore, v.Reason)
	}
}
