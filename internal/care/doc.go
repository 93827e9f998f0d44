// Package care holds the scheduling and classification engine for care
// subjects: parsing fertilizer cadences, computing due dates, bucketing due
// dates by urgency, and aggregating collection-wide care statistics.
//
// Everything here is a pure function over already-fetched values. Nothing
// performs I/O or logs, so all of it is safe for concurrent use.
package care
