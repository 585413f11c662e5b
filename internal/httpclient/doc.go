// Package httpclient provides a thin JSON REST client.
//
// It exists for commands that report to or query HTTP services around an
// execution (webhooks, job control APIs). Every request is JSON in, JSON
// out: bodies are encoded automatically, responses decoded into the
// caller's target, and any status >= 400 becomes an *APIError carrying the
// status code and the error envelope from the body.
//
// Status-class helpers (IsBadRequest, IsUnauthorized, IsForbidden,
// IsNotFound) work through errors.As, so wrapped errors still match.
package httpclient
