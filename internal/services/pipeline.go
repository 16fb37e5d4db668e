package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"speaker-events-finder/internal/models"
)

// Stage is a step of a pipeline run
type Stage string

const (
	StagePlanning       Stage = "PLANNING"
	StageSearching      Stage = "SEARCHING"
	StageCollecting     Stage = "COLLECTING"
	StageExtracting     Stage = "EXTRACTING"
	StagePostProcessing Stage = "POSTPROCESSING"
	StageDone           Stage = "DONE"
	StageErrored        Stage = "ERRORED"
)

// Search strategy names, in the order their URLs are merged
const (
	StrategyTargeted = "targeted"
	StrategyBroad    = "broad"
)

const defaultSearchLimit = 5

// ErrNoGateway is returned when a pipeline is run without a gateway
var ErrNoGateway = errors.New("no search and extraction gateway configured")

// PipelineError is a run that ended in ERRORED
type PipelineError struct {
	RunID string
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline run %s failed during %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// PipelineConfig holds the optional collaborators of a Pipeline
type PipelineConfig struct {
	Planner     *QueryPlanner
	Dates       *DateNormalizer
	SearchLimit int
	Metrics     *Metrics
}

// Pipeline answers "where is this speaker speaking next" by planning searches, collecting
// candidate pages, extracting events from them and cleaning the result
type Pipeline struct {
	gateway       Gateway
	planner       *QueryPlanner
	dates         *DateNormalizer
	postProcessor *EventPostProcessor
	searchLimit   int
	metrics       *Metrics
}

// NewPipeline creates a pipeline around the given gateway
func NewPipeline(gateway Gateway, cfg PipelineConfig) *Pipeline {
	planner := cfg.Planner
	if planner == nil {
		planner = NewQueryPlanner(nil)
	}

	dates := cfg.Dates
	if dates == nil {
		dates = NewDateNormalizer(time.Local)
	}

	searchLimit := cfg.SearchLimit
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}

	return &Pipeline{
		gateway:       gateway,
		planner:       planner,
		dates:         dates,
		postProcessor: NewEventPostProcessor(dates),
		searchLimit:   searchLimit,
		metrics:       cfg.Metrics,
	}
}

// pipelineRun tracks the state of a single Find call
type pipelineRun struct {
	id    string
	stage Stage
}

func (r *pipelineRun) enter(stage Stage) {
	r.stage = stage
	log.Printf("[PIPELINE] run=%s stage=%s", r.id, stage)
}

func (r *pipelineRun) fail(err error) error {
	failedAt := r.stage
	r.enter(StageErrored)
	return &PipelineError{RunID: r.id, Stage: failedAt, Err: err}
}

// Find runs the full pipeline for a speaker. Search and extraction failures degrade to
// fewer results; an error is returned only when the run itself cannot complete.
func (p *Pipeline) Find(ctx context.Context, speakerName string, filter models.FilterMode) (result *models.SpeakerEvents, err error) {
	startTime := time.Now()
	run := &pipelineRun{id: uuid.NewString()}

	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			err = run.fail(fmt.Errorf("panic: %v", recovered))
		}

		switch {
		case err != nil:
			log.Printf("[PIPELINE] run=%s ERROR: %v", run.id, err)
			p.metrics.RecordRun(OutcomeErrored, time.Since(startTime), 0)
		case len(result.UpcomingEvents) == 0:
			p.metrics.RecordRun(OutcomeEmpty, time.Since(startTime), 0)
		default:
			p.metrics.RecordRun(OutcomeDone, time.Since(startTime), len(result.UpcomingEvents))
		}
	}()

	run.enter(StagePlanning)
	if p.gateway == nil {
		return nil, run.fail(ErrNoGateway)
	}
	if err := ctx.Err(); err != nil {
		return nil, run.fail(err)
	}
	plan := p.planner.Plan(speakerName)
	log.Printf("[PIPELINE] run=%s speaker=%q filter=%q", run.id, speakerName, filter)

	run.enter(StageSearching)
	resultSets, err := p.searchAll(ctx, run.id, plan)
	if err != nil {
		return nil, run.fail(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, run.fail(err)
	}

	run.enter(StageCollecting)
	urls := CollectURLs(resultSets...)
	log.Printf("[PIPELINE] run=%s collected %d unique URLs", run.id, len(urls))
	if len(urls) == 0 {
		run.enter(StageDone)
		return models.NewSpeakerEvents(speakerName, nil), nil
	}

	run.enter(StageExtracting)
	rawEvents, err := p.extract(ctx, run.id, speakerName, urls)
	if err != nil {
		return nil, run.fail(err)
	}

	run.enter(StagePostProcessing)
	events := p.postProcessor.Process(rawEvents, filter)

	run.enter(StageDone)
	log.Printf("[PIPELINE] run=%s returning %d events in %v", run.id, len(events), time.Since(startTime))
	return models.NewSpeakerEvents(speakerName, events), nil
}

// searchAll runs both strategies concurrently. Results are stored by strategy so that
// targeted URLs always precede broad ones. A failed search contributes an empty set.
func (p *Pipeline) searchAll(ctx context.Context, runID string, plan QueryPlan) ([]*models.SearchResultSet, error) {
	strategies := []struct {
		name  string
		query string
	}{
		{StrategyTargeted, plan.Targeted},
		{StrategyBroad, plan.Broad},
	}

	var wg sync.WaitGroup
	resultSets := make([]*models.SearchResultSet, len(strategies))
	panics := make([]error, len(strategies))

	for i, strategy := range strategies {
		wg.Add(1)
		go func(index int, name, query string) {
			defer wg.Done()
			defer func() {
				if recovered := recover(); recovered != nil {
					panics[index] = fmt.Errorf("%s search panic: %v", name, recovered)
				}
			}()

			log.Printf("[SEARCH] run=%s %s query: %s", runID, name, query)
			results, err := p.gateway.Search(ctx, query, p.searchLimit)
			p.metrics.RecordSearch(name, err)
			if err != nil {
				log.Printf("[SEARCH] run=%s WARNING: %s search failed, continuing without it: %v", runID, name, err)
				return
			}

			hits := 0
			if results != nil {
				hits = len(results.Web)
			}
			log.Printf("[SEARCH] run=%s %s search returned %d hits", runID, name, hits)
			resultSets[index] = results
		}(i, strategy.name, strategy.query)
	}

	wg.Wait()

	if err := errors.Join(panics...); err != nil {
		return nil, err
	}
	return resultSets, nil
}

// extract makes the single bulk extraction call and flattens the well-formed results.
// A failed call degrades to no events unless the caller's context is done.
func (p *Pipeline) extract(ctx context.Context, runID, speakerName string, urls []string) ([]models.Event, error) {
	schema := models.GetSpeakerEventsSchema()
	prompt := models.BuildExtractionPrompt(speakerName, p.dates.Now())

	log.Printf("[EXTRACTION] run=%s extracting from %d URLs", runID, len(urls))
	results, err := p.gateway.BulkExtract(ctx, urls, schema, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.metrics.RecordExtraction(0, 0, true)
		log.Printf("[EXTRACTION] run=%s WARNING: bulk extraction failed, continuing with no events: %v", runID, err)
		return nil, nil
	}

	var events []models.Event
	wellFormed, malformed := 0, 0
	for _, result := range results {
		if result.Malformed() {
			malformed++
			log.Printf("[EXTRACTION] run=%s skipping malformed result for %s: %v", runID, result.URL, result.Err)
			continue
		}
		wellFormed++
		events = append(events, result.Events...)
	}

	p.metrics.RecordExtraction(wellFormed, malformed, false)
	log.Printf("[EXTRACTION] run=%s %d results, %d malformed, %d raw events", runID, len(results), malformed, len(events))
	return events, nil
}
