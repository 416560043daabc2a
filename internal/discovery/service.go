// Package discovery implements the Go-native home for the discovery
// tool surface (SPEC_FULL.md §15): it wires the C1 browser driver, C2
// action primitives, C3 batch executor, C4 session store, and C5
// artifact writer into the seven operations an external vision-model
// driver calls while mapping out a wizard (spec.md §6).
package discovery

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wizard-automation/core/internal/actions"
	"github.com/wizard-automation/core/internal/artifact"
	"github.com/wizard-automation/core/internal/batch"
	"github.com/wizard-automation/core/internal/browser"
	"github.com/wizard-automation/core/internal/config"
	"github.com/wizard-automation/core/internal/discoverystore"
	"github.com/wizard-automation/core/internal/domain"
	"github.com/wizard-automation/core/internal/observability"
)

// Service exposes one exported method per discovery tool-surface row.
// A Service owns no goroutines of its own beyond the Store's reaper,
// started by Start.
type Service struct {
	store   *discoverystore.Store
	writer  *artifact.Writer
	cfg     *config.Config
	metrics *observability.Metrics
	log     *zap.Logger

	// launch is overridden in tests to avoid starting a real browser.
	launch func(cfg config.BrowserConfig, timeouts config.TimeoutConfig, shots config.ScreenshotConfig, log *zap.Logger) (*browser.Driver, error)

	urlsMu sync.RWMutex
	urls   map[string]string // session_id -> last known URL, tracked separately from the driver so completion never needs a live browser
}

// New builds a Service over store and writer.
func New(store *discoverystore.Store, writer *artifact.Writer, cfg *config.Config, metrics *observability.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, writer: writer, cfg: cfg, metrics: metrics, log: log, launch: browser.Launch, urls: make(map[string]string)}
}

func (s *Service) rememberURL(sessionID, url string) {
	s.urlsMu.Lock()
	s.urls[sessionID] = url
	s.urlsMu.Unlock()
}

func (s *Service) lastURL(sessionID string) string {
	s.urlsMu.RLock()
	defer s.urlsMu.RUnlock()
	return s.urls[sessionID]
}

// Start begins the session store's idle reaper. Call once at process
// startup.
func (s *Service) Start() { s.store.Start() }

// Stop halts the reaper and waits for it to exit.
func (s *Service) Stop() { s.store.Stop() }

// StartDiscoveryResult is the output of StartDiscovery (spec.md §6).
type StartDiscoveryResult struct {
	SessionID  string
	Screenshot []byte
	URL        string
	Inventory  *browser.PageInfo
}

// driver resolves a live session id to its browser driver, touching
// the session's idle clock on every call (spec.md §4.4).
func (s *Service) driver(sessionID string) (*browser.Driver, error) {
	if err := s.store.Touch(sessionID); err != nil {
		return nil, err
	}
	session, err := s.store.LookupOrReject(sessionID)
	if err != nil {
		return nil, err
	}
	d, ok := session.Browser.(*browser.Driver)
	if !ok {
		return nil, domain.ErrInternal("discovery session does not own a browser.Driver", nil)
	}
	return d, nil
}

// StartDiscovery launches a fresh browser, navigates to url, and opens
// a new discovery session around it (spec.md §4.1/§4.4).
func (s *Service) StartDiscovery(url string) (*StartDiscoveryResult, error) {
	d, err := s.launch(s.cfg.Browser, s.cfg.Timeouts, s.cfg.Screenshot, s.log)
	if err != nil {
		return nil, err
	}

	if err := d.Goto(url); err != nil {
		d.Close()
		return nil, err
	}

	session := s.store.Create(d)
	s.rememberURL(session.SessionID, d.CurrentURL())
	s.metrics.SessionOpened()

	shot, err := d.Screenshot()
	if err != nil {
		s.log.Warn("start_discovery screenshot failed", zap.Error(err))
	}
	info, err := d.GetPageInfo()
	if err != nil {
		return nil, err
	}

	return &StartDiscoveryResult{
		SessionID:  session.SessionID,
		Screenshot: shot,
		URL:        d.CurrentURL(),
		Inventory:  info,
	}, nil
}

// ClickElementResult is the output of ClickElement.
type ClickElementResult struct {
	Screenshot []byte
	URL        string
	Inventory  *browser.PageInfo
}

// SelectorType enumerates the selector resolution strategies
// click_element accepts (spec.md §6).
type SelectorType string

const (
	SelectorText SelectorType = "text"
	SelectorID   SelectorType = "id"
	SelectorCSS  SelectorType = "css"
	SelectorAuto SelectorType = "auto"
)

// resolveSelector turns a driver-agnostic (selector, selector_type)
// pair into the ordered candidate list actions.Runner tries in turn.
func resolveSelector(selector string, selectorType SelectorType) actions.Target {
	switch selectorType {
	case SelectorText:
		return actions.Target{Selector: fmt.Sprintf("text=%s", selector)}
	case SelectorID:
		return actions.Target{Selector: "#" + selector}
	case SelectorCSS:
		return actions.Target{Selector: selector}
	default: // auto: try css as given, then id, then text, in that order
		return actions.Target{Selector: selector, Alternatives: []string{"#" + selector, fmt.Sprintf("text=%s", selector)}}
	}
}

// ClickElement clicks selector/selector_type within sessionID, then
// re-captures a screenshot and inventory of the resulting page
// (spec.md §6). ctx bounds the click's retry loop; discovery calls
// carry no L1-L4 hierarchy of their own, so callers without a deadline
// of their own pass context.Background().
func (s *Service) ClickElement(ctx context.Context, sessionID, selector string, selectorType SelectorType) (*ClickElementResult, error) {
	d, err := s.driver(sessionID)
	if err != nil {
		return nil, err
	}

	runner := actions.NewRunner(d.Page(), s.log)
	action := actions.Action{Interaction: domain.InteractionClick, Target: resolveSelector(selector, selectorType)}
	if err := runner.Run(ctx, action); err != nil {
		s.metrics.RecordPrimitive(string(domain.InteractionClick), "failure")
		return nil, err
	}
	s.metrics.RecordPrimitive(string(domain.InteractionClick), "success")

	shot, err := d.Screenshot()
	if err != nil {
		return nil, err
	}
	info, err := d.GetPageInfo()
	if err != nil {
		return nil, err
	}
	s.rememberURL(sessionID, d.CurrentURL())
	return &ClickElementResult{Screenshot: shot, URL: d.CurrentURL(), Inventory: info}, nil
}

// ExecuteActions runs a batch of actions against sessionID's current
// page via the C3 batch executor (spec.md §4.3). ctx is checked before
// every action in the batch.
func (s *Service) ExecuteActions(ctx context.Context, sessionID string, batchActions []actions.Action) (*batch.Result, error) {
	d, err := s.driver(sessionID)
	if err != nil {
		return nil, err
	}

	runner := actions.NewRunner(d.Page(), s.log)
	exec := batch.NewExecutor(primitiveRecorder{runner, s.metrics}, d, s.log)
	return exec.Run(ctx, batchActions)
}

// GetPageInfo returns sessionID's current element inventory without a
// screenshot (spec.md §6).
func (s *Service) GetPageInfo(sessionID string) (*browser.PageInfo, error) {
	d, err := s.driver(sessionID)
	if err != nil {
		return nil, err
	}
	return d.GetPageInfo()
}

// SavePageMetadataResult is the output of SavePageMetadata.
type SavePageMetadataResult struct {
	TotalPagesDiscovered int
	PartialPath          string
}

// SavePageMetadata upserts page into sessionID's running page list and
// persists the best-effort partial structure (spec.md §4.4/§4.5).
func (s *Service) SavePageMetadata(sessionID string, page domain.Page, wizardURL, discoveryVersion string, startAction *domain.ClickSpec) (*SavePageMetadataResult, error) {
	session, err := s.store.LookupOrReject(sessionID)
	if err != nil {
		return nil, err
	}
	session.Touch()
	session.SavePage(page)

	partial := session.ToPartialStructure(wizardURL, discoveryVersion, startAction)
	if err := s.writer.WritePartial(sessionID, partial); err != nil {
		return nil, err
	}

	return &SavePageMetadataResult{
		TotalPagesDiscovered: len(session.PagesDiscovered),
		PartialPath:          fmt.Sprintf("_partial_%s.json", sessionID),
	}, nil
}

// CompleteDiscoveryResult is the output of CompleteDiscovery.
type CompleteDiscoveryResult struct {
	StructurePath string
	Structure     *domain.WizardStructure
	Validation    *artifact.CompletionResult
}

// CompleteDiscovery assembles sessionID's accumulated pages into a
// named WizardStructure, validates and persists it via C10/C5, then
// tears the session down regardless of outcome (spec.md §4.5, §8 S2).
func (s *Service) CompleteDiscovery(sessionID, wizardName, wizardID string, startAction *domain.ClickSpec) (*CompleteDiscoveryResult, error) {
	session, err := s.store.LookupOrReject(sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if destroyErr := s.store.Destroy(sessionID); destroyErr != nil {
			s.log.Warn("discovery session cleanup failed", zap.String("session_id", sessionID), zap.Error(destroyErr))
		}
		s.urlsMu.Lock()
		delete(s.urls, sessionID)
		s.urlsMu.Unlock()
		s.metrics.SessionClosed()
	}()

	final := session.ToPartialStructure(s.lastURL(sessionID), s.cfg.App.Version, startAction)
	final.WizardID = wizardID
	final.Name = wizardName

	result, err := s.writer.Complete(sessionID, final)
	if err != nil {
		return &CompleteDiscoveryResult{Structure: final, Validation: result}, err
	}

	s.metrics.RecordDiscoveryComplete(final.TotalPages)
	return &CompleteDiscoveryResult{StructurePath: result.StructurePath, Structure: final, Validation: result}, nil
}

// SaveSchemaResult is the output of SaveSchema.
type SaveSchemaResult struct {
	SchemaPath string
}

// SaveSchema persists a wizard's user-data schema document, which the
// caller is responsible for having validated as draft-07 JSON Schema
// before calling (the C6 schema.Load at catalog load time is the
// authoritative check; this is the discovery-time save path).
func (s *Service) SaveSchema(wizardID string, schemaContent interface{}) (*SaveSchemaResult, error) {
	path, err := s.writer.WriteSchema(wizardID, schemaContent)
	if err != nil {
		return nil, err
	}
	return &SaveSchemaResult{SchemaPath: path}, nil
}

// primitiveRecorder adapts actions.Runner into batch.ActionRunner
// while recording per-primitive outcome metrics, mirroring the
// execution pipeline's stepsToActionRunner adapter.
type primitiveRecorder struct {
	runner  *actions.Runner
	metrics *observability.Metrics
}

func (p primitiveRecorder) Run(ctx context.Context, action actions.Action) error {
	err := p.runner.Run(ctx, action)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	p.metrics.RecordPrimitive(string(action.Interaction), outcome)
	return err
}
