// Command smellcheck compares a breath VOC profile against the reference
// disease signatures and prints the result in the terminal.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/23skdu/smellsense/internal/dashboard"
	"github.com/23skdu/smellsense/internal/logging"
	"github.com/23skdu/smellsense/internal/signature"
	"github.com/23skdu/smellsense/internal/similarity"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	logger, err := logging.NewLogger(logging.Config{
		Format:    "console",
		Level:     "warn",
		Output:    stderr,
		Component: "smellcheck",
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return 1
	}

	comparer, err := dashboard.NewComparer(signature.Default(), logging.DiscardLogger())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load signatures")
		return 1
	}

	fs := flag.NewFlagSet("smellcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "text", "Output format: text or json")

	names := signature.VOCNames()
	defaults := comparer.Defaults()
	levels := make([]*float64, len(names))
	for i, name := range names {
		levels[i] = fs.Float64(strings.ToLower(name), defaults[i], name+" level in [0,1]")
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		logger.Error().Strs("args", fs.Args()).Msg("Unexpected arguments")
		return 1
	}

	user := make([]float64, len(levels))
	for i, v := range levels {
		if err := similarity.ValidateLevel(names[i], *v); err != nil {
			logger.Error().Err(err).Msg("Invalid input")
			return 1
		}
		user[i] = dashboard.Quantize(*v)
	}

	res, err := comparer.Compare(context.Background(), user)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid input")
		return 1
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(res)
	case "text":
		err = renderText(stdout, res)
	default:
		logger.Error().Str("format", *format).Msg("Unknown output format")
		return 1
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write output")
		return 1
	}
	return 0
}

func renderText(out io.Writer, res *dashboard.Result) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Reference VOC Signatures")
	fmt.Fprintf(tw, "Disease\t%s\n", strings.Join(res.Table.Columns, "\t"))
	for _, row := range res.Table.Rows {
		fmt.Fprintf(tw, "%s\t%s\n", row.Label, strings.Join(row.Cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nYour VOC Profile (radar r in [%g,%g])\n", res.Radar.AxisRange[0], res.Radar.AxisRange[1])
	for _, p := range res.Radar.Points {
		fmt.Fprintf(tw, "%s\t%.2f\n", p.Theta, p.R)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\nClosest Match: %s\nSimilarity Score: %s\n", res.BestMatch, res.ScoreText)
	return err
}
