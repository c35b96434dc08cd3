package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/mathieu-neron/zeitgeist/internal/model"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func parseFormat(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", formatTable:
		return formatTable, nil
	case formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, json or yaml)", s)
}

func render(w io.Writer, format string, resp *model.ClassificationResponse) error {
	switch format {
	case formatJSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(resp)
	case formatYAML:
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(resp); err != nil {
			return err
		}
		return e.Close()
	default:
		return renderTables(w, resp)
	}
}

// renderTables prints the visual and audio tables followed by each frame.
func renderTables(w io.Writer, resp *model.ClassificationResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	writeTable(tw, "Visual", resp.Visual)
	writeTable(tw, "Audio", resp.Audio)
	for i, f := range resp.Frames {
		writeTable(tw, fmt.Sprintf("Frame %d", i+1), f)
	}
	return tw.Flush()
}

func writeTable(w io.Writer, title string, t model.TableView) {
	fmt.Fprintf(w, "%s: %s\n", title, t.Verdict)
	for _, row := range t.Rows {
		fmt.Fprintf(w, "  %s\t%.4f\n", row.Category, row.Confidence)
	}
	fmt.Fprintln(w)
}
