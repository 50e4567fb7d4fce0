// Package tasks holds the background jobs of the domain mapper: the daily
// certificate renewal sweep, the periodic health sample and delivery of
// lifecycle notifications by email. They are registered with the job
// manager through job.WithScheduledTask and job.WithTask.
package tasks
