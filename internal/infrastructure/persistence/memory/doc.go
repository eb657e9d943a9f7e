// Package memory provides in-process implementations of the attendance
// storage contracts. It backs tests and STORAGE_DRIVER=memory deployments
// and keeps the same transactional guarantees as the PostgreSQL store:
// per-key exclusive locks and all-or-nothing commits.
package memory
