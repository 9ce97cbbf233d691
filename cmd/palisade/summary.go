package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/palisade/store"
)

// summaryCommand returns the read-only summary command. It opens the
// database in read-only mode, so it is safe to run against a live pipeline
// in WAL mode.
func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Print totals from an existing run database (read-only)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db",
				Usage:    "Path to SQLite database",
				Required: true,
			},
		},
		Action: summaryAction,
	}
}

func summaryAction(c *cli.Context) error {
	st, err := store.OpenReadOnly(c.String("db"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("open database: %v", err), exitStoreError)
	}
	defer func() { _ = st.Close() }()

	sum, err := st.Summarize()
	if err != nil {
		return cli.Exit(fmt.Sprintf("summarize: %v", err), exitStoreError)
	}

	fmt.Printf("=== Database ===\n")
	fmt.Printf("Total Events:     %d\n", sum.TotalEvents)
	fmt.Printf("Suspicious:       %d\n", sum.SuspiciousEvents)
	fmt.Printf("Total Alerts:     %d\n", sum.TotalAlerts)
	fmt.Printf("Latency (s):      avg=%.3f min=%.3f max=%.3f\n",
		sum.AvgLatencySeconds, sum.MinLatencySeconds, sum.MaxLatencySeconds)

	if len(sum.TopIPs) > 0 {
		fmt.Printf("\n=== Top IPs ===\n")
		for _, row := range sum.TopIPs {
			fmt.Printf("  %-18s %d\n", row.IP, row.Count)
		}
	}
	if len(sum.StatusCounts) > 0 {
		fmt.Printf("\n=== Status Codes ===\n")
		for _, row := range sum.StatusCounts {
			fmt.Printf("  %d  %d\n", row.Status, row.Count)
		}
	}

	return nil
}
