// Command discover is a manual stand-in for the external vision-model
// driver: it runs a fixed scripted sequence against one URL so the
// discovery tool surface can be smoke-tested without a live LLM.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/wizard-automation/core/internal/artifact"
	"github.com/wizard-automation/core/internal/browser"
	"github.com/wizard-automation/core/internal/config"
	"github.com/wizard-automation/core/internal/discovery"
	"github.com/wizard-automation/core/internal/discoverystore"
	"github.com/wizard-automation/core/internal/domain"
	"github.com/wizard-automation/core/internal/observability"
	"github.com/wizard-automation/core/internal/structure"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	godotenv.Load()

	url := flag.String("url", "", "Target URL to discover (required)")
	wizardID := flag.String("wizard-id", "smoke-test", "wizard_id to save the structure under")
	wizardName := flag.String("wizard-name", "Smoke Test Wizard", "human-readable wizard name")
	pageTitle := flag.String("page-title", "Page 1", "page_title recorded for the single discovered page")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall discovery timeout")
	headless := flag.Bool("headless", true, "run the browser headless")
	verbose := flag.Bool("verbose", false, "verbose logging")
	flag.Parse()

	if *url == "" {
		red.Println("-url is required")
		os.Exit(1)
	}

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
	cfg.Browser.Headless = *headless

	validator, err := structure.NewValidator(structure.MetaSchemaJSON)
	if err != nil {
		red.Printf("meta-schema compile error: %v\n", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics("")
	writer := artifact.New(cfg.Storage.ResolvedWizardsDir(), validator, logger)
	store := discoverystore.New(cfg.Session.IdleTimeout(), cfg.Session.ReapInterval(), logger)
	svc := discovery.New(store, writer, cfg, metrics, logger)
	svc.Start()
	defer svc.Stop()

	cyan.Printf("discover: %s\n", *url)
	fmt.Printf("timeout=%s headless=%v\n\n", *timeout, *headless)

	bar := progressbar.NewOptions(4,
		progressbar.OptionSetDescription("running scripted discovery"),
		progressbar.OptionShowCount(),
	)

	step("1/4", "start_discovery")
	started, err := svc.StartDiscovery(*url)
	if err != nil {
		fail(err)
	}
	green.Printf("   session_id=%s url=%s inputs=%d buttons=%d\n",
		started.SessionID, started.URL, len(started.Inventory.Inputs), len(started.Inventory.Buttons))
	bar.Add(1)

	step("2/4", "get_page_info")
	info, err := svc.GetPageInfo(started.SessionID)
	if err != nil {
		fail(err)
	}
	green.Printf("   title=%q inputs=%d selects=%d textareas=%d buttons=%d\n",
		info.Title, len(info.Inputs), len(info.Selects), len(info.Textareas), len(info.Buttons))
	bar.Add(1)

	step("3/4", "save_page_metadata")
	page := domain.Page{
		PageNumber: 1,
		PageTitle:  *pageTitle,
		URLPattern: started.URL,
		Fields:     inferredFields(info),
	}
	saved, err := svc.SavePageMetadata(started.SessionID, page, started.URL, cfg.App.Version, nil)
	if err != nil {
		fail(err)
	}
	green.Printf("   total_pages_discovered=%d partial=%s\n", saved.TotalPagesDiscovered, saved.PartialPath)
	bar.Add(1)

	step("4/4", "complete_discovery")
	completed, err := svc.CompleteDiscovery(started.SessionID, *wizardName, *wizardID, nil)
	if err != nil {
		yellow.Printf("   ⚠ completion failed validation: %v\n", err)
		if completed != nil && completed.Validation != nil {
			for _, w := range completed.Validation.Validation.Warnings {
				dim.Printf("      • %s\n", w)
			}
		}
		os.Exit(1)
	}
	green.Printf("   structure_path=%s\n", completed.StructurePath)
	bar.Add(1)
	fmt.Println()

	cyan.Println("done")
}

// inferredFields builds a best-effort Field slice from a raw page
// inventory, standing in for the vision model's field-naming judgment:
// it records every visible input by its name/id, defaulting to a
// fill interaction.
func inferredFields(info *browser.PageInfo) []domain.Field {
	var out []domain.Field
	for _, in := range info.Inputs {
		if !in.Visible {
			continue
		}
		fieldID := in.Name
		if fieldID == "" {
			fieldID = in.ID
		}
		if fieldID == "" {
			continue
		}
		selector := "#" + in.ID
		if in.ID == "" {
			selector = fmt.Sprintf("input[name=%q]", in.Name)
		}
		out = append(out, domain.Field{
			Label:       fieldID,
			FieldID:     fieldID,
			Selector:    selector,
			FieldType:   domain.FieldTypeText,
			Interaction: domain.InteractionFill,
		})
	}
	return out
}

func step(n, name string) {
	fmt.Println()
	fmt.Printf("── %s %s\n", n, name)
}

func fail(err error) {
	red.Printf("   ✗ %v\n", err)
	os.Exit(1)
}
