// Package crawler defines the types, sentinel errors, and collaborator
// interfaces shared by the opinion crawler subsystems: the change detector,
// the duplicate cascade worker, the ingestion writer, and the scheduler.
package crawler
