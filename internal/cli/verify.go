package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mtnops/snowprobe/internal/llm"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
	"github.com/mtnops/snowprobe/internal/report"
	"github.com/mtnops/snowprobe/internal/verify"
)

var (
	registryPath string
	sourceTypes  []string
	mountainIDs  []string
	delay        time.Duration
	maxRetries   int
	retryDelay   time.Duration
	timeout      time.Duration
	staleHours   int
	saveToFile   bool
	outputDir    string
	saveToDB     bool
	llmEnabled   bool
	llmModel     string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify every configured data source and report what is broken",
	Long: `Verify runs the five verification phases in order (resort scrapes,
government forecast, snow telemetry, global forecast, webcams), one source
at a time with conservative pacing, and aggregates the outcomes into a
report with prioritized recommendations.

Example:
  snowprobe verify --registry mountains.yaml
  snowprobe verify --type webcam --type snotel --mountain palisades
  snowprobe verify --save --output-dir ./reports --stale-hours 24`,
	RunE: runVerify,
}

// quickCmd checks every source type for one mountain.
var quickCmd = &cobra.Command{
	Use:   "quick <mountain-id>",
	Short: "Quick check: all source types for a single mountain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mountainIDs = args[:1]
		sourceTypes = nil
		return runVerify(cmd, nil)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(quickCmd)

	for _, cmd := range []*cobra.Command{verifyCmd, quickCmd} {
		f := cmd.Flags()
		f.StringVar(&registryPath, "registry", "mountains.yaml", "mountain registry file")
		f.DurationVar(&delay, "delay", 1*time.Second, "pause between consecutive checks")
		f.IntVar(&maxRetries, "retries", 3, "total attempts per request")
		f.DurationVar(&retryDelay, "retry-delay", 1*time.Second, "base backoff before a retry")
		f.DurationVar(&timeout, "timeout", 10*time.Second, "per-attempt timeout")
		f.IntVar(&staleHours, "stale-hours", 48, "staleness threshold in hours")
		f.BoolVar(&saveToFile, "save", false, "write JSON and Markdown reports")
		f.StringVar(&outputDir, "output-dir", "./verification-reports", "report output directory")
		f.BoolVar(&saveToDB, "save-db", false, "persist results to the database (not implemented)")
		f.BoolVar(&llmEnabled, "llm", false, "generate an LLM operator briefing from the report")
		f.StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	}

	verifyCmd.Flags().StringSliceVar(&sourceTypes, "type", nil,
		"source types to verify (scraper, noaa_forecast, snotel, openmeteo, webcam)")
	verifyCmd.Flags().StringSliceVar(&mountainIDs, "mountain", nil, "mountain ids to verify")

	_ = viper.BindPFlag("registry", verifyCmd.Flags().Lookup("registry"))
	_ = viper.BindPFlag("output_dir", verifyCmd.Flags().Lookup("output-dir"))
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	// Config-file values apply when the flag was left at its default.
	path := registryPath
	if !cmd.Flags().Changed("registry") && viper.IsSet("registry") {
		path = viper.GetString("registry")
	}
	if !cmd.Flags().Changed("output-dir") && viper.IsSet("output_dir") {
		cfg.OutputDir = viper.GetString("output_dir")
	}

	reg, err := registry.Load(path)
	if err != nil {
		return err
	}
	if len(cfg.MountainIDs) > 0 && len(reg.Filter(cfg.MountainIDs)) == 0 {
		return fmt.Errorf("no registry entry matches mountains %s", strings.Join(cfg.MountainIDs, ", "))
	}

	log := slog.Default()
	log.Info("starting verification run",
		"mountains", len(reg.Filter(cfg.MountainIDs)),
		"types", typeNames(cfg.SourceTypes),
		"delay", cfg.DelayBetweenRequests)

	agent := verify.New(cfg, reg, nil, log)
	results, err := agent.Run(cmd.Context())
	if err != nil {
		// Run-level fault: nothing is persisted for a partial run.
		return fmt.Errorf("verification run aborted: %w", err)
	}

	rep := report.Generate(results)
	report.PrintSummary(os.Stdout, rep)

	if cfg.SaveToFile {
		jsonPath, mdPath, err := report.Save(rep, cfg.OutputDir)
		if err != nil {
			return err
		}
		log.Info("reports written", "json", jsonPath, "markdown", mdPath)
	}

	if cfg.LLM.Enabled {
		writeBriefing(cmd.Context(), cfg, rep, log)
	}

	return nil
}

// writeBriefing renders the optional LLM addendum. It never fails the run.
func writeBriefing(ctx context.Context, cfg model.Config, rep *model.Report, log *slog.Logger) {
	s, err := llm.NewSummarizer(cfg.LLM)
	if err != nil {
		log.Warn("LLM briefing skipped", "error", err)
		return
	}
	text, err := s.Briefing(ctx, rep)
	if err != nil {
		log.Warn("LLM briefing failed", "error", err)
		return
	}

	if cfg.SaveToFile {
		path := filepath.Join(cfg.OutputDir, report.FileBase(rep)+".llm.md")
		if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
			log.Warn("could not write LLM briefing", "error", err)
			return
		}
		log.Info("LLM briefing written", "path", path)
		return
	}
	fmt.Fprintf(os.Stdout, "\n%s\n", text)
}

// buildConfig assembles the one immutable run config from defaults, config
// file, environment, and flags.
func buildConfig() (model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.DelayBetweenRequests = delay
	cfg.MaxRetries = maxRetries
	cfg.RetryDelay = retryDelay
	cfg.Timeout = timeout
	cfg.StaleThreshold = time.Duration(staleHours) * time.Hour
	cfg.SaveToFile = saveToFile
	cfg.OutputDir = outputDir
	cfg.SaveToDB = saveToDB
	cfg.MountainIDs = mountainIDs

	if ua := viper.GetString("user_agent"); ua != "" {
		cfg.HTTP.UserAgent = ua
	}
	cfg.HTTP.HTTPProxy = viper.GetString("http_proxy")
	cfg.HTTP.HTTPSProxy = viper.GetString("https_proxy")

	for _, s := range sourceTypes {
		st, ok := model.ParseSourceType(s)
		if !ok {
			return cfg, fmt.Errorf("unknown source type %q", s)
		}
		cfg.SourceTypes = append(cfg.SourceTypes, st)
	}

	if llmEnabled {
		cfg.LLM.Enabled = true
		cfg.LLM.Model = llmModel
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return cfg, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
			cfg.LLM.BaseURL = base
		}
	}

	return cfg, nil
}

func typeNames(types []model.SourceType) string {
	if len(types) == 0 {
		return "all"
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ",")
}
