// Package orgs manages organizations, their seats and seat packages, and
// the frozen flag derived from them.
//
// # Seat Capacity
//
// An organization's effective seat limit is the sum of SeatLimit over its
// packages that are active at the evaluation time. A package with
// ValidUntil T contributes up to but not including T.
//
// An organization is frozen exactly when its seat count exceeds the
// effective limit. Seat inserts are never rejected for capacity; going over
// the limit freezes the organization until seats are removed or a package
// is added.
//
//	seats := orgs.NewSeatManager(store,
//		orgs.WithLogger(logger),
//		orgs.WithMetrics(metrics),
//	)
//	seat, err := seats.CreateSeat(ctx, orgID, orgs.CreateSeatRequest{
//		OccupantID: "9b2f...",
//		Label:      "Unit 4B",
//	})
//
// # Sweep
//
// Package expiry changes the limit without a write, so a Sweeper recomputes
// every organization on a schedule:
//
//	sweeper := orgs.NewSweeper(store, seats, orgs.DefaultSweeperConfig(), logger, metrics)
//	scheduler, err := orgs.NewSweepScheduler(sweeper, "@every 5m", 2*time.Minute, cron.PrintfLogger(logger))
//	scheduler.Start()
//	defer scheduler.Stop(ctx)
//
// Each run pages over organization ids. An interrupted run resumes after
// the last completed page.
package orgs
