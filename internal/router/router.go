package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/eventloop/capacity-engine/internal/handler"
    "github.com/eventloop/capacity-engine/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Load balancers and monitoring systems probe this endpoint to verify
    // that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.  Unauthenticated
// operations live under /v1/auth; the handlers issue the JWTs the protected
// routes require.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
}

// RegisterPublic registers unauthenticated browse endpoints.  Availability
// is readable by guests so they can check remaining capacity before signing
// up; the optional cache middleware keeps hot events cheap.
func RegisterPublic(e *echo.Echo, t *handler.TicketHandler, cache echo.MiddlewareFunc) {
    avail := t.Availability
    if cache != nil {
        e.GET("/v1/events/:id/availability", avail, cache)
        return
    }
    e.GET("/v1/events/:id/availability", avail)
}

// RegisterTickets registers the hold/checkout endpoints under /v1.  All
// routes require a valid JWT; the rate limiter, when configured, runs after
// authentication so per-user limits can key on the token subject.
func RegisterTickets(e *echo.Echo, t *handler.TicketHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
    g := protectedGroup(e, jwtSecret, extra...)
    g.POST("/events/:id/hold", t.HoldTicket)
    g.DELETE("/events/:id/hold/:ticketType", t.ReleaseHold)
    g.POST("/events/:id/checkout/:ticketType", t.Checkout)
}

// RegisterSubscriptions registers the attendance endpoints under /v1.
func RegisterSubscriptions(e *echo.Echo, s *handler.SubscriptionHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
    g := protectedGroup(e, jwtSecret, extra...)
    g.POST("/events/:id/subscribe", s.Subscribe)
    g.DELETE("/events/:id/subscribe", s.Unsubscribe)
    g.GET("/events/:id/subscription", s.GetSubscription)
    g.GET("/my-tickets", s.ListMyTickets)
}

// RegisterFollows registers the organizer follow endpoints under /v1.
func RegisterFollows(e *echo.Echo, f *handler.FollowHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
    g := protectedGroup(e, jwtSecret, extra...)
    g.POST("/organizers/:id/follow", f.Follow)
    g.DELETE("/organizers/:id/follow", f.Unfollow)
    g.POST("/organizers/:id/follow/toggle", f.Toggle)
    g.GET("/organizers/:id/follow", f.GetFollowStatus)
}

// protectedGroup builds a /v1 group guarded by JWT auth plus any extra
// middleware (rate limiting, caching) the caller wants applied.
func protectedGroup(e *echo.Echo, jwtSecret string, extra ...echo.MiddlewareFunc) *echo.Group {
    mws := append([]echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}, extra...)
    return e.Group("/v1", mws...)
}
