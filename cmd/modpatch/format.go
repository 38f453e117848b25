package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"modpatch/internal/report"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman, "":
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data) + "\n", nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *report.Report:
		return formatReportHuman(v), nil
	case *ProbeResponse:
		return formatProbeHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatReportHuman(r *report.Report) string {
	var b strings.Builder

	b.WriteString(r.Summary() + "\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString(fmt.Sprintf("  Run:          %s\n", r.RunID))
	b.WriteString(fmt.Sprintf("  Java ceiling: %d", r.JavaVersion))
	if !r.ShardsScanned {
		b.WriteString(" (multi-release shards not scanned)")
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Patched:      %d\n", r.Patched()))
	b.WriteString(fmt.Sprintf("  Ignored:      %d\n", r.Counts.Ignored))
	b.WriteString(fmt.Sprintf("  Duration:     %s\n", r.Duration().Round(time.Millisecond)))

	if len(r.Artifacts) > 0 {
		b.WriteString("\nArtifacts:\n")
		for _, a := range r.Artifacts {
			mark := " "
			if a.Patched {
				mark = "+"
			}
			line := fmt.Sprintf("  %s %-12s %s", mark, a.Status, a.Dest)
			if a.Descriptor != "" {
				line += "  <- " + a.Descriptor
			}
			b.WriteString(line + "\n")
		}
	}
	if len(r.Ignored) > 0 {
		b.WriteString("\nIgnored:\n")
		for _, p := range r.Ignored {
			b.WriteString("  - " + p + "\n")
		}
	}
	return b.String()
}

func formatProbeHuman(resp *ProbeResponse) string {
	var b strings.Builder
	for _, r := range resp.Results {
		b.WriteString(fmt.Sprintf("%-12s %s\n", r.Status, r.Path))
	}
	if resp.JavaVersion <= 8 {
		b.WriteString(fmt.Sprintf("(java ceiling %d: multi-release shards not scanned)\n", resp.JavaVersion))
	}
	return b.String()
}
