// Package features resolves per-user feature flags.
//
// Flag evaluation is delegated to an Evaluator, normally the
// get_feature_flags database function behind an optional Redis cache.
// Resolver never fails: any error, timeout or panic in the evaluator
// yields an empty flag list so that pages still render with every
// optional feature hidden.
//
//	eval := features.NewRedisCache(redisClient, features.NewPostgresEvaluator(db, timeout), 30*time.Second, logger, metrics)
//	resolver := features.NewResolver(eval, features.WithResolverLogger(logger))
//	if resolver.HasFlag(ctx, userID, "visitor_passes") {
//		...
//	}
package features
