// Package handlers contains the reusable pieces of the HTTP layer:
// health checks, authentication and rate limiting middleware.
//
// # Health Checks
//
// The HealthChecker interface allows registering named checks that are
// executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("postgres", handlers.HealthCheckFunc(conn.Ping))
//	checker.AddCheck("redis", handlers.HealthCheckFunc(cache.Ping))
//
//	status := checker.Check(ctx)
//
// # Authentication
//
// User endpoints take an HS256 bearer token; the user ID is the "sub" claim
// (or "nameid"). Admin endpoints take an X-API-Key header that is compared
// against bcrypt hashes, so plaintext keys never live in configuration:
//
//	jwtAuth := handlers.NewJWTAuth(secret, "")
//	admin := handlers.NewAdminKeyAuth("X-API-Key", hashes)
//
//	mux.Handle("GET /me", jwtAuth.Middleware(nil)(h))
//	mux.Handle("POST /admin/x", admin.Middleware(nil)(h))
//
// # Rate Limiting
//
// RateLimiter keeps a token bucket per client IP:
//
//	rl := handlers.NewRateLimiter(10, 20)
//	go rl.Run(ctx)
//	handler = rl.Middleware(handler)
package handlers
