// Package models defines data structures and domain types.
package models

// ExtractionRequest asks the locator for a direct media URL.
type ExtractionRequest struct {
	SourceURL   string `json:"sourceUrl"`
	Quality     string `json:"quality"`
	AudioFormat string `json:"audioFormat"`
}

// ExtractionOutcome is either an ExtractionSuccess or an ExtractionFailure.
type ExtractionOutcome interface {
	isExtractionOutcome()
}

// ExtractionSuccess carries a playable media URL.
type ExtractionSuccess struct {
	MediaURL  string `json:"mediaUrl"`
	MediaType string `json:"mediaType"`
	Quality   string `json:"quality"`
	Title     string `json:"title"`
}

// ExtractionFailure explains why no media URL was produced.
type ExtractionFailure struct {
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
}

func (ExtractionSuccess) isExtractionOutcome() {}
func (ExtractionFailure) isExtractionOutcome() {}

// UpstreamResponse is the classified result of one locator attempt.
type UpstreamResponse interface {
	isUpstreamResponse()
}

type (
	// UpstreamReady means the locator returned a usable URL.
	// The tunnel, stream and redirect statuses all map here.
	UpstreamReady struct {
		URL      string
		Filename string
	}

	// UpstreamError carries the locator's error code.
	UpstreamError struct {
		Code string
	}

	// UpstreamTransient covers HTTP 503 and transport failures.
	UpstreamTransient struct {
		Cause error
	}

	// UpstreamUnrecognized is any response shape outside the known set.
	UpstreamUnrecognized struct {
		Status     string
		StatusCode int
	}
)

func (UpstreamReady) isUpstreamResponse()        {}
func (UpstreamError) isUpstreamResponse()        {}
func (UpstreamTransient) isUpstreamResponse()    {}
func (UpstreamUnrecognized) isUpstreamResponse() {}
