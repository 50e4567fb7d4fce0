// Package job runs background work on River, a PostgreSQL-backed queue.
//
// Tasks are plain types with Name and Handle methods; the payload type is
// inferred from Handle and travels as JSON:
//
//	manager, err := job.NewManager(pool,
//		job.WithLogger(log),
//		job.WithQueue(job.QueueNotifications, 5),
//		job.WithTask(tasks.NewDeliverNotification(sender)),
//		job.WithScheduledTask(tasks.NewRenewalSweep(provisioner)),
//	)
//	if err := manager.Start(ctx); err != nil {
//		return err
//	}
//	defer manager.Stop(ctx)
//
//	err = manager.Enqueue(ctx, "deliver_notification", event, job.InQueue(job.QueueNotifications))
//
// Scheduled tasks carry a five field cron expression parsed with
// robfig/cron and run as River periodic jobs. Migrate creates River's
// tables and must run before the first insert. Replicas that only enqueue
// use NewEnqueuer.
//
// Jobs for an unknown task, or with a payload that does not decode, are
// cancelled instead of retried.
package job
