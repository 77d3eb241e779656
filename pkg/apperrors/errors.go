package apperrors

import "errors"

// QueryProcessingMessage is shown verbatim when a simulated query run fails.
const QueryProcessingMessage = "Failed to process query. Please try again."

var (
	ErrNotFound        = errors.New("not found")
	ErrQueryProcessing = errors.New(QueryProcessingMessage)
	ErrQueryPending    = errors.New("a query is already being processed")
	ErrInvalidSetting  = errors.New("invalid setting value")
	ErrClosed          = errors.New("service closed")
)
