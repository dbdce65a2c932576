// Package crawler defines core types shared across subsystems.
package crawler

import (
	"net/http"
	"time"
)

// Trigger identifies what asked for a pipeline run.
type Trigger string

// Trigger values recorded on run requests.
const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerStartup  Trigger = "startup"
)

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Method  string
	Body    []byte
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// RunRequest is queued by the scheduler or an operator and consumed by the run worker.
type RunRequest struct {
	ID        string
	Trigger   Trigger
	Submitted time.Time
}
