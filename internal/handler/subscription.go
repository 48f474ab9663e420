package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/eventloop/capacity-engine/internal/engine"
    "github.com/eventloop/capacity-engine/internal/model"
    "github.com/eventloop/capacity-engine/internal/queue"
    queue_publisher "github.com/eventloop/capacity-engine/internal/service"
)

// SubscriptionHandler exposes the attendance state machine over HTTP.
type SubscriptionHandler struct {
    Attendance *engine.AttendanceService
}

// NewSubscriptionHandler constructs a new SubscriptionHandler.
func NewSubscriptionHandler(attendance *engine.AttendanceService) *SubscriptionHandler {
    if attendance == nil {
        panic("nil service passed to NewSubscriptionHandler")
    }
    return &SubscriptionHandler{Attendance: attendance}
}

// subscriptionResponse is the JSON shape returned for attendance records.
type subscriptionResponse struct {
    ID         uint64 `json:"id"`
    EventID    uint64 `json:"event_id"`
    Status     string `json:"status"`
    StartTime  string `json:"start_time"`
    EndTime    string `json:"end_time"`
    PriceCents uint32 `json:"price_cents"`
}

func toSubscriptionResponse(s *model.Subscription) subscriptionResponse {
    return subscriptionResponse{
        ID:         s.ID,
        EventID:    s.EventID,
        Status:     string(s.Status),
        StartTime:  s.StartTime.UTC().Format(time.RFC3339),
        EndTime:    s.EndTime.UTC().Format(time.RFC3339),
        PriceCents: s.PriceCents,
    }
}

// Subscribe handles POST /v1/events/:id/subscribe.  Repeating the call
// while already subscribed returns the existing record with 200 instead
// of 201 and moves no counter.  A full event yields 409.
func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        StartTime  time.Time `json:"start_time"`
        EndTime    time.Time `json:"end_time"`
        PriceCents uint32    `json:"price_cents"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    sub, changed, err := h.Attendance.Subscribe(c.Request().Context(), userID, eventID, body.StartTime, body.EndTime, body.PriceCents)
    if err != nil {
        switch {
        case errors.Is(err, engine.ErrEventFull):
            return c.JSON(http.StatusConflict, echo.Map{"error": "event full"})
        case errors.Is(err, engine.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to subscribe"})
    }
    if !changed {
        // Idempotent repeat; nothing moved, nothing to publish.
        return c.JSON(http.StatusOK, toSubscriptionResponse(sub))
    }

    _ = queue_publisher.PublishSubscriptionChanged(c.Request().Context(), queue.SubscriptionChangedEvent{
        UserID:    userID,
        EventID:   eventID,
        Status:    string(sub.Status),
        ChangedAt: time.Now().UTC().Format(time.RFC3339),
    })

    return c.JSON(http.StatusCreated, toSubscriptionResponse(sub))
}

// Unsubscribe handles DELETE /v1/events/:id/subscribe.  Unsubscribing
// when no active subscription exists is a successful no-op, so the
// endpoint always returns 204 for well-formed requests.
func (h *SubscriptionHandler) Unsubscribe(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }

    changed, err := h.Attendance.Unsubscribe(c.Request().Context(), userID, eventID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to unsubscribe"})
    }

    if changed {
        _ = queue_publisher.PublishSubscriptionChanged(c.Request().Context(), queue.SubscriptionChangedEvent{
            UserID:    userID,
            EventID:   eventID,
            Status:    string(model.SubscriptionInactive),
            ChangedAt: time.Now().UTC().Format(time.RFC3339),
        })
    }
    return c.NoContent(http.StatusNoContent)
}

// GetSubscription handles GET /v1/events/:id/subscription.  It reports
// whether the caller holds an active subscription for the event, and the
// record when one exists.
func (h *SubscriptionHandler) GetSubscription(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    sub, found, err := h.Attendance.GetActiveSubscription(c.Request().Context(), userID, eventID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !found {
        return c.JSON(http.StatusOK, echo.Map{"subscribed": false})
    }
    return c.JSON(http.StatusOK, echo.Map{"subscribed": true, "subscription": toSubscriptionResponse(sub)})
}

// ListMyTickets handles GET /v1/my-tickets.  It returns the caller's full
// subscription history, including inactive records for past tickets.
func (h *SubscriptionHandler) ListMyTickets(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    subs, err := h.Attendance.History(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tickets"})
    }
    items := make([]subscriptionResponse, 0, len(subs))
    for i := range subs {
        items = append(items, toSubscriptionResponse(&subs[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
