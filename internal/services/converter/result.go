package converter

import (
	"net/http"

	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/internal/models"
)

// FileResult is the outcome of one uploaded file. Exactly one of Response and
// Error is set.
type FileResult struct {
	Response *models.ConversionResponse `json:"response,omitempty"`
	Error    *apperror.Error            `json:"error,omitempty"`
}

// BatchResult holds the per-file outcomes of a request in request order.
type BatchResult struct {
	Results  []FileResult `json:"results"`
	CacheHit bool         `json:"-"`
}

func (b *BatchResult) Failed() bool {
	for _, result := range b.Results {
		if result.Error != nil {
			return true
		}
	}
	return false
}

// Errors returns the failures ordered by kind precedence.
func (b *BatchResult) Errors() []*apperror.Error {
	var errs []*apperror.Error
	for _, result := range b.Results {
		if result.Error != nil {
			errs = append(errs, result.Error)
		}
	}
	return apperror.Sorted(errs)
}

func (b *BatchResult) Responses() []models.ConversionResponse {
	responses := make([]models.ConversionResponse, 0, len(b.Results))
	for _, result := range b.Results {
		if result.Response != nil {
			responses = append(responses, *result.Response)
		}
	}
	return responses
}

// Status is 200 when every file converted, otherwise the status of the
// highest precedence failure.
func (b *BatchResult) Status() int {
	if !b.Failed() {
		return http.StatusOK
	}
	return apperror.Status(b.Errors())
}

func (b *BatchResult) outcome() string {
	failed := len(b.Errors())
	switch {
	case failed == 0:
		return "success"
	case failed == len(b.Results):
		return "failed"
	default:
		return "partial"
	}
}
