// Package checkin drives the login and check-in calls for a list of wallet
// addresses.
//
// A Runner loads the address list, skips whatever a previous run already
// committed, and walks the rest in fixed-size batches. Each batch is fanned
// out over a bounded worker pool; no address of the next batch starts until
// every address of the current one has settled. After each batch the
// checkpoint advances to the batch's last index, so an interrupted run redoes
// at most one batch. When the list is exhausted the checkpoint is archived
// and the next run starts from the top.
//
// Per address, login and check-in are retried independently. A failing
// address is recorded in the summary and never stops its siblings or the job.
package checkin
