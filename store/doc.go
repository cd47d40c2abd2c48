// Package store persists an evolution session to a blobstore.BlobStore.
//
// Layout below the store's root:
//
//	<session-id>/step_<n>/image_<i>.<ext>   rendered image of candidate i
//	<session-id>/step_<n>/latent_<i>.bin    encoded latent of candidate i
//	<session-id>/step_<n>/step.json         commit marker (StepRecord)
//	<session-id>/user_log.json              ordered SelectionRecord array
//
// A step is complete exactly when its step.json exists. PersistStep writes
// every candidate file first and the marker last, and DiscardStep removes
// the marker first, so a crash at any point never leaves a partially
// written step that readers treat as complete.
//
// A Store is safe for concurrent use; writes to one session are serialized.
package store
