// Package output renders a finished result into files: JSON, two CSV
// layouts, XML, a plain text summary and a SQLite database.
//
// Each Write creates a fresh <username>_<YYYYMMDD_HHMMSS> folder. Files are
// written to a temporary name and renamed into place. A format that fails
// is logged and skipped without stopping the rest.
package output
