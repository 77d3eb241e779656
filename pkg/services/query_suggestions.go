package services

import "strings"

// MaxSuggestions is the number of suggestions offered for partial input.
const MaxSuggestions = 3

var suggestionTemplates = []string{
	"%s by country",
	"%s over time",
	"%s compared to last year",
	"%s breakdown by category",
	"%s top performers",
}

// ExampleQueries are prompts shown to a user who has not typed anything yet.
var ExampleQueries = []string{
	"Show me sales trends over the last 6 months",
	"What's the distribution of users by region?",
	"Compare revenue by product category",
	"Analyze customer satisfaction ratings",
	"Display marketing campaign performance",
}

// SuggestQueries expands partial input into completions. Blank input yields none.
func SuggestQueries(input string) []string {
	if strings.TrimSpace(input) == "" {
		return []string{}
	}
	suggestions := make([]string, 0, MaxSuggestions)
	for _, tmpl := range suggestionTemplates[:MaxSuggestions] {
		suggestions = append(suggestions, strings.Replace(tmpl, "%s", input, 1))
	}
	return suggestions
}
