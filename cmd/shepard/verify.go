// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/shepard/internal/authority"
	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/common"
	"github.com/ternarybob/shepard/internal/models"
	"github.com/ternarybob/shepard/internal/pipeline"
	"github.com/ternarybob/shepard/internal/verify"
)

// runVerify implements the one-shot "shepard verify" subcommand. It runs the
// full extraction and verification pipeline against a single document and
// prints the result payload without touching the job store.
func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Print the raw result payload as JSON")
	var cfgFiles configPaths
	fs.Var(&cfgFiles, "config", "Configuration file path (can be specified multiple times)")
	fs.Var(&cfgFiles, "c", "Configuration file path (shorthand)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: shepard verify [flags] <file|->")
		fmt.Fprintln(fs.Output(), "Verifies the citations in a document read from the given file, or from stdin when the path is -.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	text, err := readInput(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "shepard: %v\n", err)
		return 1
	}

	// Same discovery order as the server
	if len(cfgFiles) == 0 {
		if _, err := os.Stat("shepard.toml"); err == nil {
			cfgFiles = append(cfgFiles, "shepard.toml")
		} else if _, err := os.Stat("deployments/local/shepard.toml"); err == nil {
			cfgFiles = append(cfgFiles, "deployments/local/shepard.toml")
		}
	}
	cfg, err := common.LoadFromFiles(nil, cfgFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shepard: failed to load configuration: %v\n", err)
		return 1
	}

	// The result goes to stdout, so keep the logger quiet unless something breaks
	quiet := arbor.NewLogger().
		WithConsoleWriter(arbormodels.WriterConfiguration{
			Type:       arbormodels.LogWriterTypeConsole,
			TimeFormat: "15:04:05",
		}).
		WithLevelFromString("warn")

	tv, err := buildTextVerifier(cfg, quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shepard: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := tv.VerifyDocument(ctx, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shepard: verification failed: %v\n", err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "shepard: failed to encode result: %v\n", err)
			return 1
		}
		return 0
	}

	printSummary(os.Stdout, result)
	return 0
}

// readInput loads the document text from a file path or stdin.
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// buildTextVerifier wires the extractor and verifier the same way the server
// does, minus storage and queueing.
func buildTextVerifier(cfg *common.Config, logger arbor.ILogger) (*pipeline.TextVerifier, error) {
	apiKey := common.ResolveAuthorityAPIKey(context.Background(), nil, cfg.Authority.APIKey)
	client := authority.NewClient(apiKey,
		authority.WithBaseURL(cfg.Authority.BaseURL),
		authority.WithLogger(logger),
		authority.WithRateLimit(cfg.Authority.RateLimitPerMin, cfg.Authority.Burst),
		authority.WithRequestTimeout(common.DurationOr(cfg.Authority.RequestTimeout, 20*time.Second)),
		authority.WithBreakerCooldown(common.DurationOr(cfg.Authority.BreakerCooldown, 60*time.Second)),
	)

	extractor, err := citations.NewExtractor()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize citation extractor: %w", err)
	}

	alternates := make([]verify.AlternateSource, 0, len(cfg.Verification.AlternateSources))
	for _, src := range cfg.Verification.AlternateSources {
		alternates = append(alternates, verify.AlternateSource{Name: src.Name, URLTemplate: src.URLTemplate})
	}
	verifier := verify.New(client, logger, verify.Options{
		BatchSize:            cfg.Verification.BatchSize,
		MaxConcurrentBatches: cfg.Verification.MaxConcurrentBatches,
		MaxRetries:           cfg.Verification.MaxRetries,
		BatchTimeout:         common.DurationOr(cfg.Authority.BatchTimeout, 60*time.Second),
		Alternates:           alternates,
	})

	return pipeline.NewTextVerifier(extractor, verifier, logger), nil
}

// printSummary renders the result payload as a readable report.
func printSummary(w io.Writer, result *models.Result) {
	fmt.Fprintf(w, "Citations: %d   Verified: %d   Clusters: %d\n",
		result.Stats.TotalCitations, result.Stats.Verified, result.Stats.Clusters)

	for _, cl := range result.Clusters {
		name := "(unresolved)"
		if cl.CanonicalName != nil {
			name = *cl.CanonicalName
		}
		fmt.Fprintf(w, "\n%s  %s", cl.ClusterID, name)
		if cl.CanonicalDate != nil {
			fmt.Fprintf(w, "  (%s)", *cl.CanonicalDate)
		}
		fmt.Fprintln(w)
		if cl.CanonicalURL != nil {
			fmt.Fprintf(w, "    %s\n", *cl.CanonicalURL)
		}

		for _, c := range cl.Citations {
			status := "unverified"
			switch c.Verified {
			case string(models.VerifiedDirect):
				status = "verified"
			case string(models.VerifiedByParallel):
				status = "verified (parallel)"
			}
			fmt.Fprintf(w, "    %-32s %s", c.Text, status)
			if c.VerificationSource != nil && *c.VerificationSource != "" {
				fmt.Fprintf(w, " via %s", *c.VerificationSource)
			}
			fmt.Fprintln(w)
		}
	}
}
