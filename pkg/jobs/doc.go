/*
Package jobs runs replacement workflows in the background and keeps a
pollable record of each one.

A Store assigns every submitted job a random id and records the workflow
events it emits, so callers can poll a Snapshot instead of blocking. An
optional Locker guards each target directory with an advisory file lock;
a second job on a directory that is still being processed is rejected with
ErrDirectoryLocked.

	store := jobs.NewStore(workflow.New(), jobs.WithLocker(&jobs.Locker{}))
	results, err := jobs.RunAll(ctx, store, cfgs, 4)
*/
package jobs
