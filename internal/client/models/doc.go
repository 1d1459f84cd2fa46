// Package models defines the records persisted by the offline layer:
// pending actions, cache entries and the published sync status.
package models
