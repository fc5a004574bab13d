package resilience

import "net/http"

// IsRetryableHTTPStatus reports statuses worth another attempt.
func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// ClassifyHTTPStatus maps an upstream status to retry/breaker behaviour.
// Client errors neither retry nor count against the breaker.
func ClassifyHTTPStatus(statusCode int) ErrorClassification {
	if IsRetryableHTTPStatus(statusCode) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if statusCode >= 500 {
		return ErrorClassification{RecordFailure: true}
	}
	return ErrorClassification{}
}
