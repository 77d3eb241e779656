package services

import (
	"strings"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
)

// Result titles per classification outcome.
const (
	TitleTrendAnalysis        = "Trend Analysis"
	TitleDistributionAnalysis = "Distribution Analysis"
	TitleQueryResults         = "Query Results"
)

var (
	trendKeywords        = []string{"over time", "trend"}
	distributionKeywords = []string{"breakdown", "distribution"}
)

// mockDatasets are the fixed series returned for each chart type.
var mockDatasets = map[models.ChartType][]models.DataPoint{
	models.ChartTypeBar: {
		{Name: "Category A", Value: 4000},
		{Name: "Category B", Value: 3000},
		{Name: "Category C", Value: 2000},
		{Name: "Category D", Value: 2780},
		{Name: "Category E", Value: 1890},
		{Name: "Category F", Value: 2390},
	},
	models.ChartTypeLine: {
		{Name: "Jan", Value: 1000},
		{Name: "Feb", Value: 2000},
		{Name: "Mar", Value: 1500},
		{Name: "Apr", Value: 3000},
		{Name: "May", Value: 2500},
		{Name: "Jun", Value: 4000},
		{Name: "Jul", Value: 3500},
	},
	models.ChartTypePie: {
		{Name: "Group A", Value: 400},
		{Name: "Group B", Value: 300},
		{Name: "Group C", Value: 300},
		{Name: "Group D", Value: 200},
		{Name: "Group E", Value: 100},
	},
}

// ClassifyQuery derives the mock result for a query. Keywords are matched
// case-insensitively and the first matching rule wins; bar is the fallback.
func ClassifyQuery(text string) *models.QueryResult {
	lower := strings.ToLower(text)

	chartType, title := models.ChartTypeBar, TitleQueryResults
	switch {
	case containsAny(lower, trendKeywords):
		chartType, title = models.ChartTypeLine, TitleTrendAnalysis
	case containsAny(lower, distributionKeywords):
		chartType, title = models.ChartTypePie, TitleDistributionAnalysis
	}

	return &models.QueryResult{
		Title:       title,
		Description: `Results for: "` + text + `"`,
		Data:        append([]models.DataPoint(nil), mockDatasets[chartType]...),
		ChartType:   chartType,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
