// Package jobs runs collections in the background and exposes their status.
//
// A job moves queued → running → completed or error and never goes back.
// The worker running a job is the only writer of its status and log; any
// goroutine may poll a Snapshot at any time without waiting on the job.
//
//	id, _ := manager.Start(ctx, jobs.Params{Username: "golang", Type: models.PostTypePosts, MaxCount: 200})
//	snap, _ := manager.Wait(ctx, id)
//	if snap.State == jobs.StateCompleted {
//	    result, sum, _ := manager.Result(id)
//	    ...
//	}
package jobs
