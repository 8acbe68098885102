// Package dataprocessing turns the MATRIZ predial spreadsheet into the derived
// analysis table. The parser reads raw rows with excelize, the band calculator
// produces the quantile valuation bands and fixed area bands, and the deriver
// attaches every classification column to each record.
//
// Derivation happens exactly once per load; downstream packages only read the
// resulting domain.Dataset.
package dataprocessing
