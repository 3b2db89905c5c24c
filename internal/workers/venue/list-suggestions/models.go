// internal/workers/venue/list-suggestions/models.go
package listsuggestions

import "venuescout/internal/models"

// Input is the job variable contract for the list-suggestions task.
type Input struct {
	RequestID string `json:"requestId"`
	Limit     int    `json:"limit"`
}

// Output carries the stored suggestions for the request.
type Output struct {
	RequestID   string              `json:"requestId"`
	Suggestions []models.Suggestion `json:"suggestions"`
	Count       int                 `json:"count"`
}
