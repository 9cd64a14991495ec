package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/buzz/internal/explorecheck"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		token      = flag.String("token", os.Getenv("BUZZ_CHECK_TOKEN"), "Bearer token with the admin claim")
		categories = flag.String("categories", "", "Comma separated categories to walk")
		pages      = flag.Int("pages", explorecheck.DefaultPages, "Pages to walk per category")
		limit      = flag.Int("limit", explorecheck.DefaultLimit, "Page size")
		workers    = flag.Int("workers", explorecheck.DefaultWorkers, "Concurrent category walkers")
		userID     = flag.String("user", "", "User id whose feed is checked")
		forceAll   = flag.Bool("force-all", false, "Rescore every tweet regardless of recent activity")
		timeout    = flag.Duration("timeout", explorecheck.DefaultTimeout, "HTTP request timeout")
		jobTimeout = flag.Duration("job-timeout", explorecheck.DefaultJobTimeout, "How long to wait for the recalculation")
		logFile    = flag.String("log", "", "Also write log output to this file")
		logFormat  = flag.String("log-format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every category walk")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		explorecheck.ShowHelp()
		return
	}

	closeLog, err := explorecheck.SetupLogging(*logFile, *logFormat)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)

	cfg := &explorecheck.Config{
		BaseURL:    strings.TrimRight(*baseURL, "/"),
		Token:      *token,
		Categories: splitList(*categories),
		Pages:      *pages,
		Limit:      *limit,
		Workers:    *workers,
		UserID:     *userID,
		ForceAll:   *forceAll,
		Timeout:    *timeout,
		JobTimeout: *jobTimeout,
		Verbose:    *verbose,
	}

	_, err = explorecheck.Run(ctx, cfg)
	cancel()
	stop()
	closeLog()
	if err != nil {
		os.Stderr.WriteString("Check failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
