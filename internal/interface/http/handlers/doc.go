// Package handlers contains the health checker and the generic middleware
// used by the HTTP server.
//
// Health checks run in parallel, each under its own timeout:
//
//	checker := handlers.NewCompositeHealthChecker("v1")
//	checker.AddCheck("postgres", handlers.NewPingCheck(conn))
//	checker.AddCheck("redis", handlers.NewPingCheck(cache))
//
// Middleware compose with Chain; the first one listed is outermost:
//
//	h := handlers.ChainHandler(router,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(64<<10),
//	)
package handlers
