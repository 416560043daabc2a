// Command execute loads one wizard from the on-disk catalog and
// replays it against user data read from a file or stdin, printing
// the tagged-union execute_wizard result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/wizard-automation/core/internal/catalog"
	"github.com/wizard-automation/core/internal/config"
	"github.com/wizard-automation/core/internal/domain"
	"github.com/wizard-automation/core/internal/execution"
	"github.com/wizard-automation/core/internal/observability"
	"github.com/wizard-automation/core/internal/resilience"
	"github.com/wizard-automation/core/internal/structure"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	godotenv.Load()

	wizardID := flag.String("wizard", "", "wizard_id to execute (required)")
	dataFile := flag.String("data", "", "path to a JSON file of user_data (default: read stdin)")
	list := flag.Bool("list", false, "list available wizards and exit")
	screenshots := flag.Bool("screenshots", false, "request screenshots in the result")
	verbose := flag.Bool("verbose", false, "verbose logging")
	flag.Parse()

	var logger *zap.Logger
	if *verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		red.Printf("config error: %v\n", err)
		os.Exit(1)
	}

	validator, err := structure.NewValidator(structure.MetaSchemaJSON)
	if err != nil {
		red.Printf("meta-schema compile error: %v\n", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics("")
	cat := catalog.New(cfg.Storage.ResolvedWizardsDir(), validator, logger)
	breakers := resilience.NewCircuitBreakerManager()
	pipeline := execution.New(cat, cfg, breakers, metrics, logger)
	svc := execution.NewService(cat, pipeline)

	if *list {
		printWizardList(svc)
		return
	}

	if *wizardID == "" {
		red.Println("-wizard is required (or pass -list)")
		os.Exit(1)
	}

	userData, err := readUserData(*dataFile)
	if err != nil {
		red.Printf("reading user data: %v\n", err)
		os.Exit(1)
	}

	cyan.Printf("execute: %s\n\n", *wizardID)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("replaying wizard..."),
		progressbar.OptionSpinnerType(14),
	)
	done := make(chan struct{})
	go spin(bar, done)

	result := svc.ExecuteWizard(context.Background(), *wizardID, userData, domain.ExecutionOptions{ReturnScreenshots: screenshots})
	close(done)
	bar.Finish()
	fmt.Println()

	printResult(result)

	if result.Outcome != domain.OutcomeSuccess {
		os.Exit(1)
	}
}

func printWizardList(svc *execution.Service) {
	summaries, err := svc.ListWizards()
	if err != nil {
		red.Printf("listing wizards: %v\n", err)
		os.Exit(1)
	}
	if len(summaries) == 0 {
		yellow.Println("no wizards available")
		return
	}
	bold.Println("available wizards:")
	for _, s := range summaries {
		fmt.Printf("  %-30s %-40s %d pages\n", s.WizardID, s.Name, s.TotalPages)
	}
}

func readUserData(path string) (map[string]interface{}, error) {
	var raw []byte
	var err error
	if path == "" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing JSON user data: %w", err)
	}
	return data, nil
}

func spin(bar *progressbar.ProgressBar, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
			bar.Add(1)
		}
	}
}

func printResult(result *domain.ExecutionResult) {
	bold.Println("═══════════════════════════════════════════")
	switch result.Outcome {
	case domain.OutcomeSuccess:
		green.Printf("✓ success — %d page(s) completed in %dms\n", result.PagesCompleted, result.ExecutionTimeMs)
		for _, r := range result.Results {
			dim.Printf("   page %d: completed=%v %s\n", r.PageNumber, r.Completed, r.Warning)
		}
		if len(result.ExtractedData) > 0 {
			fmt.Println()
			cyan.Println("extracted data:")
			encoded, _ := json.MarshalIndent(result.ExtractedData, "  ", "  ")
			fmt.Printf("  %s\n", encoded)
		}
		for _, w := range result.Warnings {
			yellow.Printf("   ⚠ %s\n", w)
		}

	case domain.OutcomeMissingData:
		red.Printf("✗ missing_data — %d field(s)\n", len(result.MissingFields))
		for _, m := range result.MissingFields {
			fmt.Printf("   - %s (%s) e.g. %q\n", m.FieldID, m.Label, m.Example)
		}

	case domain.OutcomeValidationError:
		red.Println("✗ validation_error")
		for _, v := range result.InvalidFields {
			fmt.Printf("   - %s: %s (got %v)\n", v.FieldID, v.Message, v.Value)
		}
		if result.Page > 0 {
			fmt.Printf("   page %d:\n", result.Page)
			for _, m := range result.Messages {
				fmt.Printf("     - %s\n", m)
			}
		}

	case domain.OutcomeExecutionError:
		red.Printf("✗ execution_error [%s]: %s\n", result.ErrorKind, result.Detail)
	}
	bold.Println("═══════════════════════════════════════════")
}
