// Package models contains domain types for the dashboard engine.
package models

// ChartType selects how a query result is visualized.
type ChartType string

const (
	ChartTypeBar  ChartType = "bar"
	ChartTypeLine ChartType = "line"
	ChartTypePie  ChartType = "pie"
)

// ValidChartTypes contains all valid chart type values.
var ValidChartTypes = []ChartType{ChartTypeBar, ChartTypeLine, ChartTypePie}

// IsValidChartType checks if the given chart type is valid.
func IsValidChartType(chartType string) bool {
	for _, c := range ValidChartTypes {
		if string(c) == chartType {
			return true
		}
	}
	return false
}

// DataPoint is a single named value in a result series.
type DataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// QueryResult is the derived output of one query submission.
// A new submission replaces the previous result wholesale.
type QueryResult struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Data        []DataPoint `json:"data"`
	ChartType   ChartType   `json:"chart_type"`
}

// Clone returns a deep copy of the result.
func (r *QueryResult) Clone() *QueryResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Data = append([]DataPoint(nil), r.Data...)
	return &c
}

// QueryHistoryItem records a successfully resolved query. Items are never mutated.
type QueryHistoryItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// QueriesState is the query slice of the dashboard.
type QueriesState struct {
	History          []QueryHistoryItem `json:"history"` // newest first
	CurrentQueryText *string            `json:"current_query_text,omitempty"`
	CurrentResult    *QueryResult       `json:"current_result,omitempty"`
	IsLoading        bool               `json:"is_loading"`
	LastError        *string            `json:"last_error,omitempty"`
}

// Clone returns a deep copy of the state so callers cannot mutate the slice.
func (s QueriesState) Clone() QueriesState {
	c := QueriesState{
		History:       append([]QueryHistoryItem{}, s.History...),
		CurrentResult: s.CurrentResult.Clone(),
		IsLoading:     s.IsLoading,
	}
	if s.CurrentQueryText != nil {
		text := *s.CurrentQueryText
		c.CurrentQueryText = &text
	}
	if s.LastError != nil {
		msg := *s.LastError
		c.LastError = &msg
	}
	return c
}

// PrependCapped inserts item at the front of items and drops entries beyond limit.
func PrependCapped[T any](items []T, item T, limit int) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	out = append(out, items...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
