package locator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/j-veylop/clipforge/internal/models"
)

// rawResponse is the JSON shape returned by the locator service.
type rawResponse struct {
	Error *struct {
		Code string `json:"code"`
	} `json:"error,omitempty"`
	Status   string `json:"status"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// MapResponse classifies one locator reply. Every input maps to exactly one variant;
// shapes outside the known set become UpstreamUnrecognized.
func MapResponse(statusCode int, body []byte) models.UpstreamResponse {
	if statusCode == http.StatusServiceUnavailable {
		return models.UpstreamTransient{Cause: fmt.Errorf("locator unavailable (status %d)", statusCode)}
	}

	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.UpstreamUnrecognized{StatusCode: statusCode}
	}

	switch raw.Status {
	case "tunnel", "stream", "redirect":
		if raw.URL != "" {
			return models.UpstreamReady{URL: raw.URL, Filename: raw.Filename}
		}
	case "error":
		if raw.Error != nil && raw.Error.Code != "" {
			return models.UpstreamError{Code: raw.Error.Code}
		}
	}
	return models.UpstreamUnrecognized{Status: raw.Status, StatusCode: statusCode}
}

var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
}

const defaultMediaType = "video/mp4"

// mediaTypeFor guesses the MIME type from the file extension.
func mediaTypeFor(filename string) string {
	if t, ok := mediaTypes[strings.ToLower(path.Ext(filename))]; ok {
		return t
	}
	return defaultMediaType
}

// titleFor strips the extension from filename.
func titleFor(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}
