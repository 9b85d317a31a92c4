// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/northbound/crawlpipe/internal/scope"
)

// Status is a job's coarse lifecycle state.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Mode selects which execution topology runs a job.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeHybrid     Mode = "hybrid"
)

// Request is everything a caller supplies to start a crawl-and-index job.
type Request struct {
	SeedURLs        []string
	Project         string
	Dataset         string
	RequestedScope  string
	MaxDepth        int
	MaxPages        int
	IncludeLinks    bool
	PruneNavigation bool
	Mode            Mode
}

// DocumentSummary is one crawled-and-stored page, as recorded in
// ProgressState.Documents. It is a summary, not the full page: the markdown
// and HTML bodies live in the catalog/relational stores, not in memory for
// the life of the job.
type DocumentSummary struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	WordCount  int    `json:"word_count"`
	ChunkCount int    `json:"chunk_count"`
}

// maxPhaseDetailEntries bounds ProgressState.PhaseDetail so a job with
// thousands of pages doesn't grow its progress log unbounded.
const maxPhaseDetailEntries = 200

// ProgressState is the point-in-time snapshot GetProgress returns, and is
// serialized directly as the GET /progress/{id} response body.
type ProgressState struct {
	JobID                  string            `json:"job_id"`
	Status                 Status            `json:"status"`
	Phase                  Phase             `json:"current_phase"`
	Overall                float64           `json:"progress"`
	LastProgressPercentage float64           `json:"last_progress_percentage"`
	Message                string            `json:"message"`
	PhaseDetail            []string          `json:"phase_detail"`
	PagesDiscovered        int               `json:"total_pages"`
	PagesCrawled           int               `json:"processed_pages"`
	ChunksTotal            int               `json:"chunks_total"`
	ChunksProcessed        int               `json:"chunks_processed"`
	SummariesGenerated     int               `json:"summaries_generated"`
	EmbeddingsGenerated    int               `json:"embeddings_generated"`
	ChunksStored           int               `json:"chunks_stored"`
	Documents              []DocumentSummary `json:"documents"`
	CancelFlag             bool              `json:"cancel_flag"`
	RequestedMode          Mode              `json:"requested_mode"`
	Project                string            `json:"project"`
	Dataset                string            `json:"dataset"`
	Error                  string            `json:"error,omitempty"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// Result is what a completed job produced.
type Result struct {
	JobID           string
	Scope           scope.Level
	CollectionName  string
	PagesCrawled    int
	ChunksChunked   int
	ChunksStored    int
	RelationalCount int
	PointCount      int
	CatalogCount    int
	Duration        time.Duration
}

// Job is one in-flight or finished crawl-and-index run.
type Job struct {
	id     string
	mapper ProgressMapper

	mu     sync.Mutex
	state  ProgressState
	result *Result

	cancel context.CancelFunc
}

func newJob(id string) *Job {
	return &Job{
		id: id,
		state: ProgressState{
			JobID:     id,
			Status:    StatusCreated,
			Phase:     PhaseInitializing,
			UpdatedAt: time.Now(),
		},
	}
}

func (j *Job) snapshot() ProgressState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) snapshotResult() (*Result, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.result == nil {
		return nil, false
	}
	r := *j.result
	return &r, true
}

// setRequestMeta records the request's identifying fields on the job's
// progress state, for GET /progress/{id} to report alongside the running
// counts.
func (j *Job) setRequestMeta(req Request) {
	j.mu.Lock()
	defer j.mu.Unlock()
	mode := req.Mode
	if mode == "" {
		mode = ModeSequential
	}
	j.state.RequestedMode = mode
	j.state.Project = req.Project
	j.state.Dataset = req.Dataset
}

func (j *Job) setStatus(status Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state.Status = status
	j.state.UpdatedAt = time.Now()
}

func (j *Job) setError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state.Status = StatusFailed
	j.state.Error = err.Error()
	j.state.UpdatedAt = time.Now()
}

func (j *Job) updateProgress(phase Phase, localPct float64, message string) {
	overall := j.mapper.Map(phase, localPct)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.state.Status = StatusRunning
	j.state.Phase = phase
	j.state.LastProgressPercentage = j.state.Overall
	j.state.Overall = overall
	if message != "" {
		j.state.Message = message
		j.state.PhaseDetail = append(j.state.PhaseDetail, message)
		if len(j.state.PhaseDetail) > maxPhaseDetailEntries {
			j.state.PhaseDetail = j.state.PhaseDetail[len(j.state.PhaseDetail)-maxPhaseDetailEntries:]
		}
	}
	j.state.UpdatedAt = time.Now()
}

func (j *Job) setCounts(pagesDiscovered, pagesCrawled, chunksTotal, chunksProcessed int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if pagesDiscovered >= 0 {
		j.state.PagesDiscovered = pagesDiscovered
	}
	if pagesCrawled >= 0 {
		j.state.PagesCrawled = pagesCrawled
	}
	if chunksTotal >= 0 {
		j.state.ChunksTotal = chunksTotal
	}
	if chunksProcessed >= 0 {
		j.state.ChunksProcessed = chunksProcessed
	}
}

// setProcessingCounts records the pipeline-stage totals ProgressState
// exposes beyond the basic crawl/chunk counts. Negative values leave the
// existing count unchanged, matching setCounts' convention.
func (j *Job) setProcessingCounts(summariesGenerated, embeddingsGenerated, chunksStored int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if summariesGenerated >= 0 {
		j.state.SummariesGenerated = summariesGenerated
	}
	if embeddingsGenerated >= 0 {
		j.state.EmbeddingsGenerated = embeddingsGenerated
	}
	if chunksStored >= 0 {
		j.state.ChunksStored = chunksStored
	}
}

// addDocuments appends per-page summaries to the job's document list.
func (j *Job) addDocuments(docs []DocumentSummary) {
	if len(docs) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state.Documents = append(j.state.Documents, docs...)
}

func (j *Job) finish(result Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = &result
	j.state.Status = StatusCompleted
	j.state.Phase = PhaseCompleted
	j.state.Overall = 100
	j.state.UpdatedAt = time.Now()
}

func (j *Job) cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.Status == StatusCancelled
}

func (j *Job) markCancelled() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state.Status = StatusCancelled
	j.state.CancelFlag = true
	j.state.Message = "cancelled"
	j.state.UpdatedAt = time.Now()
}
