package models

import "github.com/phambaophuc/webp-converter/internal/apperror"

// ActionResult is the envelope of every API response.
type ActionResult struct {
	Ok    interface{}       `json:"ok,omitempty"`
	Error []*apperror.Error `json:"error,omitempty"`
}
