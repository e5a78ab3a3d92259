// Command newsquery-derive runs the offline derivation pipeline that
// turns raw face and person interval lists into the precomputed indices
// newsqueryd serves from: the nine face isets, the num-faces ilist,
// per-person isets, and per-tag ilists.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/tvnews/newsquery/internal/config"
	"github.com/tvnews/newsquery/internal/derive"
	"github.com/tvnews/newsquery/internal/logutil"
)

func main() {
	cfg := config.Default()
	if err := config.LoadYAML(configFlagValue(os.Args[1:]), &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.String("config", "", "optional YAML config file")
	config.RegisterFlags(flag.CommandLine, &cfg)
	incremental := flag.Bool("incremental", false, "only (re)derive videos missing from existing output files")
	flag.Parse()

	logger := logutil.New(cfg.LogLevel)

	opts := derive.DefaultOptions(cfg.DataDir)
	opts.Incremental = *incremental
	opts.TagLimit = cfg.TagLimit
	opts.PersonThresholdBytes = cfg.PersonThresholdBytes
	opts.Workers = cfg.DeriveWorkers

	start := time.Now()
	if err := derive.Run(opts, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	printSummary(filepath.Join(cfg.DataDir, "derived"), time.Since(start))
}

// configFlagValue scans args for -config/--config ahead of the real
// flag.Parse, so LoadYAML can seed config defaults before the rest of
// the flags (whose defaults depend on the loaded config) are registered.
func configFlagValue(args []string) string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-config=") || strings.HasPrefix(a, "--config="):
			return a[strings.Index(a, "=")+1:]
		}
	}
	return ""
}

func printSummary(outDir string, elapsed time.Duration) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	rows := make([][]string, 0, len(entries))
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		rows = append(rows, []string{e.Name(), humanize.Bytes(uint64(info.Size()))})
		total += info.Size()
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"file", "size"})
	w.SetFooter([]string{fmt.Sprintf("%d files in %s", len(rows), elapsed.Round(time.Millisecond)), humanize.Bytes(uint64(total))})
	w.AppendBulk(rows)
	w.Render()
}
