// Package extraction is the task-queue boundary of the text-extraction
// pipeline.
//
// The crawler discharges its obligation with a single Enqueue of an
// ExtractionTask naming both the primary method and the fallback to try
// when the primary yields no usable text. Dispatchers never wait for the
// extraction itself. Chain implements the consumer side of that contract:
// it runs the task's method and, when the result is unusable, re-enqueues
// the same document with the fallback method.
package extraction
