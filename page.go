package docmirror

import "time"

// Extraction methods recorded on a Page.
const (
	ExtractionSchema   = "schema"
	ExtractionFallback = "fallback"
)

// Page is a fetched documentation page with its main content extracted.
// Pages are ephemeral: they live only for the duration of a run.
type Page struct {
	SourceID    string
	URL         string
	Depth       int
	Title       string
	ContentHTML string
	Extraction  string
	Attempts    int
	FetchedAt   time.Time
}

// Stage identifies the pipeline stage a failure happened in.
type Stage string

// Pipeline stages that can fail per page or per chunk.
const (
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StageEmbed     Stage = "embed"
)

// PageFailure records a page or chunk that could not be processed.
// Failures are reported in the run summary and never abort the run.
type PageFailure struct {
	URL      string `json:"url"`
	Stage    Stage  `json:"stage"`
	Attempts int    `json:"attempts,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// NewPageFailure builds a PageFailure from an error.
func NewPageFailure(url string, stage Stage, attempts int, err error) PageFailure {
	msg := ErrorMessage(err)
	if ErrorCode(err) == EINTERNAL && err != nil {
		msg = err.Error()
	}
	return PageFailure{
		URL:      url,
		Stage:    stage,
		Attempts: attempts,
		Code:     ErrorCode(err),
		Message:  msg,
	}
}
