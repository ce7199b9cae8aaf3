package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors        int
	OrdersPlaced       map[string]int
	CheckoutFailures   int
	PaymentsInitiated  int
	Settled            map[string]int
	Replays            int
	Declined           int
	SettlementFailures []string
	SecurityEvents     int
	NotifyFailures     int
	ServerErrors       int
	ErrorPatterns      map[string]int
}

var (
	placedRegex  = regexp.MustCompile(`Checkout: order \d+ placed by user \d+, method (\w+)`)
	settledRegex = regexp.MustCompile(`Settlement: order \d+ paid via (\w+)`)
	statusRegex  = regexp.MustCompile(`Status: (\d{3})`)
	digitsRegex  = regexp.MustCompile(`\d+`)
	// Lines carry log.Lshortfile: "ERROR: 2006/01/02 15:04:05 file.go:12: message".
	sourceRegex  = regexp.MustCompile(`\.go:\d+: `)
)

func main() {
	logDir := flag.String("dir", "./logs", "directory holding info.log and error.log")
	flag.Parse()

	stats := &LogStats{
		OrdersPlaced:  make(map[string]int),
		Settled:       make(map[string]int),
		ErrorPatterns: make(map[string]int),
	}

	analyzeErrorLogs(filepath.Join(*logDir, "error.log"), stats)
	analyzeInfoLogs(filepath.Join(*logDir, "info.log"), stats)

	printReport(stats)
}

func analyzeErrorLogs(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		stats.TotalErrors++

		switch {
		case strings.Contains(line, "SETTLEMENT FAILED"):
			stats.SettlementFailures = append(stats.SettlementFailures, line)
		case strings.Contains(line, "SECURITY:"):
			stats.SecurityEvents++
		case strings.Contains(line, "Checkout failed"):
			stats.CheckoutFailures++
		case strings.Contains(line, "Failed to notify"):
			stats.NotifyFailures++
		}

		extractErrorPattern(line, stats)
	}
}

func analyzeInfoLogs(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		if m := placedRegex.FindStringSubmatch(line); m != nil {
			stats.OrdersPlaced[m[1]]++
			continue
		}
		if m := settledRegex.FindStringSubmatch(line); m != nil {
			stats.Settled[m[1]]++
			continue
		}
		switch {
		case strings.Contains(line, "Payment initiated for order"):
			stats.PaymentsInitiated++
		case strings.Contains(line, "already paid"):
			stats.Replays++
		case strings.Contains(line, "declined"):
			stats.Declined++
		}
		if m := statusRegex.FindStringSubmatch(line); m != nil && m[1][0] == '5' {
			stats.ServerErrors++
		}
	}
}

// extractErrorPattern keys an error line by its message with numbers masked,
// so "order 12" and "order 40" count as one pattern.
func extractErrorPattern(line string, stats *LogStats) {
	loc := sourceRegex.FindStringIndex(line)
	if loc == nil {
		return
	}
	msg := strings.TrimSpace(line[loc[1]:])
	if cut := strings.Index(msg, ": "); cut > 0 {
		msg = msg[:cut]
	}
	msg = digitsRegex.ReplaceAllString(msg, "N")
	stats.ErrorPatterns[msg]++
}

func printReport(stats *LogStats) {
	fmt.Println("\n=== Log Analysis Report ===")
	fmt.Println("Generated:", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("\n1. Checkout:")
	for method, n := range stats.OrdersPlaced {
		fmt.Printf("   Orders placed (%s): %d\n", method, n)
	}
	fmt.Printf("   Failed checkouts: %d\n", stats.CheckoutFailures)

	fmt.Println("\n2. Payments:")
	fmt.Printf("   Sessions initiated: %d\n", stats.PaymentsInitiated)
	for source, n := range stats.Settled {
		fmt.Printf("   Settled via %s: %d\n", source, n)
	}
	fmt.Printf("   Replayed notifications: %d\n", stats.Replays)
	fmt.Printf("   Declined payments: %d\n", stats.Declined)

	fmt.Println("\n3. Needs attention:")
	fmt.Printf("   Rejected callbacks (SECURITY): %d\n", stats.SecurityEvents)
	fmt.Printf("   Paid orders without stock: %d\n", len(stats.SettlementFailures))
	for _, line := range stats.SettlementFailures {
		fmt.Printf("     %s\n", line)
	}
	fmt.Printf("   Notification failures: %d\n", stats.NotifyFailures)
	fmt.Printf("   5xx responses: %d\n", stats.ServerErrors)

	fmt.Println("\n4. Error Statistics:")
	fmt.Printf("   Total Errors: %d\n", stats.TotalErrors)

	fmt.Println("\n5. Most Common Errors:")
	printTopErrors(stats.ErrorPatterns, 5)
}

func printTopErrors(errors map[string]int, limit int) {
	type kv struct {
		Key   string
		Value int
	}
	var sorted []kv
	for k, v := range errors {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	for i, kv := range sorted {
		if i >= limit {
			break
		}
		fmt.Printf("   %s: %d occurrences\n", kv.Key, kv.Value)
	}
}
