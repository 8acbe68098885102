// Package services holds the business layer between transport and data
// processing: the memoized dataset service that loads and derives the matrix
// spreadsheet, the view orchestration, and the health service.
package services
