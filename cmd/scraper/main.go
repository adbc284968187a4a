package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/shpitdev/exec-outreach/internal/companies"
	"github.com/shpitdev/exec-outreach/internal/filter"
	"github.com/shpitdev/exec-outreach/internal/hunter"
	"github.com/shpitdev/exec-outreach/internal/pipeline"
	"github.com/shpitdev/exec-outreach/internal/redact"
	"github.com/shpitdev/exec-outreach/internal/store"
	"github.com/shpitdev/exec-outreach/internal/version"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version", "--version":
		fmt.Println(version.Current)
		return
	case "scrape":
		os.Exit(runScrape(ctx, os.Args[2:]))
	case "find":
		os.Exit(runFind(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runScrape(ctx context.Context, args []string) int {
	cfg, err := loadClientConfigFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("scrape", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		inputPath    string
		outputPath   string
		keywordsPath string
		all          bool
		role         string
		rateLimitRPS float64
		timeout      time.Duration
	)
	fs.StringVar(&inputPath, "input", "companies.txt", "Input company list (## lines assign a team member)")
	fs.StringVar(&outputPath, "output", "executive_emails.xlsx", "Output XLSX workbook")
	fs.StringVar(&keywordsPath, "keywords", "", "YAML file overriding the executive title allow-list")
	fs.BoolVar(&all, "all", false, "Keep all candidates instead of executives only")
	fs.StringVar(&role, "role", "", "Server-side role filter forwarded to the vendor (e.g. executive)")
	fs.Float64Var(&rateLimitRPS, "rate-limit-rps", cfg.RateLimitRPS, "Request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	fs.DurationVar(&timeout, "request-timeout", cfg.Timeout, "Per-request timeout (env: REQUEST_TIMEOUT)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.RateLimitRPS = rateLimitRPS
	cfg.Timeout = timeout

	logger, err := newLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	defer func() {
		_ = logger.Sync()
	}()

	keywords := filter.DefaultKeywords()
	if keywordsPath != "" {
		keywords, err = filter.LoadKeywords(keywordsPath)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
			return 2
		}
	}

	inF, err := os.Open(inputPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "open input: %s\n", err)
		return 2
	}
	entries, stats, err := companies.ParseList(inF)
	_ = inF.Close()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "parse input: %s\n", err)
		return 2
	}
	logger.Info("company list loaded",
		zap.String("input", inputPath),
		zap.Int("lines", stats.Lines),
		zap.Int("uniqueDomains", stats.Unique),
		zap.Int("malformed", stats.Malformed),
	)
	if len(entries) == 0 {
		_, _ = fmt.Fprintf(os.Stderr, "no domains found in %s\n", inputPath)
		return 2
	}

	client, err := hunter.New(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	wb, err := store.Open(outputPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "store error: %s\n", err)
		return 1
	}
	defer func() {
		_ = wb.Close()
	}()

	summary, err := pipeline.Run(ctx, entries, client, filter.New(keywords), wb, pipeline.Options{
		ExecutivesOnly: !all,
		Role:           role,
	}, logger)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "run failed: %s\n", redact.Secrets(err.Error()))
		return 1
	}

	fmt.Println(summary.String())
	return 0
}

func runFind(ctx context.Context, args []string) int {
	cfg, err := loadClientConfigFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var domain, first, last string
	fs.StringVar(&domain, "domain", "", "Company domain (e.g. acme.com)")
	fs.StringVar(&first, "first", "", "Person's first name")
	fs.StringVar(&last, "last", "", "Person's last name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if domain == "" || first == "" || last == "" {
		_, _ = fmt.Fprintln(os.Stderr, "find requires --domain, --first and --last")
		return 2
	}

	normalized, err := companies.NormalizeDomain(domain)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid domain: %s\n", err)
		return 2
	}

	client, err := hunter.New(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	c, err := client.FindEmail(ctx, normalized, first, last)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "find failed: %s\n", redact.Secrets(err.Error()))
		return 1
	}
	fmt.Printf("%s (confidence %d)\n", c.Email, c.Confidence)
	if c.Position != "" {
		fmt.Printf("position: %s\n", c.Position)
	}
	return 0
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `scraper: executive email discovery for outreach tracking (v%s)

Usage:
  scraper <command> [flags]

Commands:
  scrape   Search every domain in the input list and append results to the workbook
  find     Look up a single person's email at a domain
  version  Print the version

Examples:
  scraper scrape --input companies.txt --output executive_emails.xlsx
  scraper find --domain acme.com --first Jane --last Doe

Environment:
  HUNTER_API_KEY   Hunter.io API key (required; .env files are loaded)
  HUNTER_BASE_URL  Optional base URL override (proxies/testing)
  RATE_LIMIT_RPS   Request rate limit, requests per second (default 0 = off)
  REQUEST_TIMEOUT  Per-request timeout (default 10s)
  LOG_LEVEL        debug, info, warn or error (default info)

`, version.Current)
}

func loadClientConfigFromEnv() (hunter.Config, error) {
	apiKey := strings.TrimSpace(os.Getenv("HUNTER_API_KEY"))
	if apiKey == "" {
		return hunter.Config{}, fmt.Errorf("HUNTER_API_KEY is required (set it in the environment or a .env file)")
	}

	rateLimitRPS, err := envFloat("RATE_LIMIT_RPS", 0)
	if err != nil {
		return hunter.Config{}, err
	}
	timeout, err := envDuration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return hunter.Config{}, err
	}

	return hunter.Config{
		APIKey:       apiKey,
		BaseURL:      strings.TrimSpace(os.Getenv("HUNTER_BASE_URL")),
		Timeout:      timeout,
		RateLimitRPS: rateLimitRPS,
	}, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "", "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL=%q", level)
	}
	return cfg.Build()
}
