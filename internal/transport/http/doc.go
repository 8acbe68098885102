// Package http contains the chi HTTP handlers for the dashboard API: the
// five view endpoints, filter options, dataset reload, ad-hoc aggregation and
// the health endpoints. Errors are rendered as RFC 7807 problem documents.
package http
