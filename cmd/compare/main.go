// Command compare runs an offline corpus comparison between two matrix
// snapshot files and prints the overrepresentation table.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/eborbath/corpustat/internal/compare"
	"github.com/eborbath/corpustat/internal/snapshot"
	"github.com/eborbath/corpustat/internal/vocab"
	"github.com/eborbath/corpustat/pkg/logger"
)

func main() {
	var (
		pathX       = flag.String("x", "", "snapshot file of the focus corpus")
		pathY       = flag.String("y", "", "snapshot file of the reference corpus")
		minLength   = flag.Int("min-length", 0, "drop terms shorter than this many runes")
		minFreq     = flag.Int("min-freq", 0, "drop terms with a lower total frequency")
		maxRelDF    = flag.Float64("max-rel-docfreq", 0, "drop terms present in a higher share of documents")
		dropDigits  = flag.Bool("drop-digits", false, "drop terms containing digits")
		dropSymbols = flag.Bool("drop-symbols", false, "drop terms containing non-letter symbols")
		limit       = flag.Int("limit", 50, "number of rows to print")
		byChi       = flag.Bool("chi", false, "rank by chi-square instead of overrepresentation")
		ascending   = flag.Bool("asc", false, "sort overrepresentation ascending (underrepresented terms first)")
		logLevel    = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	logger.Setup(*logLevel, "text")

	if *pathX == "" || *pathY == "" {
		fmt.Fprintln(os.Stderr, "both -x and -y snapshot files are required")
		flag.Usage()
		os.Exit(2)
	}

	mx, err := snapshot.Read(*pathX)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading %s: %v\n", *pathX, err)
		os.Exit(1)
	}
	my, err := snapshot.Read(*pathY)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading %s: %v\n", *pathY, err)
		os.Exit(1)
	}

	filter := vocab.Config{
		MinTermLength: *minLength,
		MinTermFreq:   *minFreq,
		MaxRelDocFreq: *maxRelDF,
		DropDigits:    *dropDigits,
		DropSymbols:   *dropSymbols,
	}
	result := compare.Corpora(vocab.Apply(mx, filter), vocab.Apply(my, filter))

	if result.NoOverlap {
		fmt.Fprintln(os.Stderr, "the corpora share no terms after filtering")
		os.Exit(1)
	}

	rows := result.Rows
	if *byChi {
		rows = compare.TopByChiSquare(rows, *limit)
	} else {
		compare.SortByOver(rows, !*ascending)
		if *limit > 0 && len(rows) > *limit {
			rows = rows[:*limit]
		}
	}

	fmt.Printf("corpus X: %d tokens, corpus Y: %d tokens, %d shared terms\n\n",
		result.TotalX, result.TotalY, len(result.Rows))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TERM\tFREQ_X\tFREQ_Y\tREL_X\tREL_Y\tOVER\tCHI2")
	for _, row := range rows {
		over := fmt.Sprintf("%.4f", row.Over)
		if math.IsInf(row.Over, 1) {
			over = "inf"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.6f\t%.6f\t%s\t%.2f\n",
			row.Term, row.FreqX, row.FreqY, row.RelX, row.RelY, over, row.ChiSquare)
	}
	w.Flush()
}
