// Package tasks runs multi-mood exports with real-time progress reporting.
//
// [Exporter.Export] fetches recommendations for several moods through a bounded worker pool, writes one file
// per mood in the requested [formatter.Format], and finishes with an export_manifest.json that lists every
// file and failure.
//
// # Progress Reporting
//
// Progress is reported through a [ProgressUpdate] channel. Sends use select with default so a slow or absent
// reader never blocks the export.
package tasks
