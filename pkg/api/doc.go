// Package api is a JSON-over-HTTP client for the forms backend.
//
// Routes are not hard-coded: they are read from the embedded OpenAPI document
// by operationId, and operations declaring the apiKey security scheme carry
// the configured admin key in the x-api-key header. The client never retries.
package api
