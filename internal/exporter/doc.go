// Package exporter writes the derived analysis table and the dashboard view
// summaries to CSV report files.
package exporter
