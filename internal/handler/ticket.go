package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/eventloop/capacity-engine/internal/engine"
    "github.com/eventloop/capacity-engine/internal/queue"
    queue_publisher "github.com/eventloop/capacity-engine/internal/service"
)

// TicketHandler exposes the reservation manager over HTTP: selecting a
// ticket places a TTL-bounded hold, checkout converts the hold into
// confirmed attendance, and cancellation releases the hold.  All methods
// assume JWT authentication has already run; the authenticated user ID is
// passed explicitly into every engine call.
type TicketHandler struct {
    Manager *engine.ReservationManager
}

// NewTicketHandler constructs a new TicketHandler.
func NewTicketHandler(manager *engine.ReservationManager) *TicketHandler {
    if manager == nil {
        panic("nil manager passed to NewTicketHandler")
    }
    return &TicketHandler{Manager: manager}
}

// HoldTicket handles POST /v1/events/:id/hold.  The request body must
// contain a ticket_type_id and a quantity of at least 1.  A repeated
// request for the same ticket type refreshes the existing hold instead of
// stacking a second one.  When the event cannot fit the requested
// quantity the response is 409 with a "sold out" error.
func (h *TicketHandler) HoldTicket(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        TicketTypeID uint64 `json:"ticket_type_id"`
        Quantity     uint32 `json:"quantity"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.TicketTypeID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_type_id is required"})
    }

    hold, err := h.Manager.SelectTicket(c.Request().Context(), eventID, userID, body.TicketTypeID, body.Quantity)
    if err != nil {
        switch {
        case errors.Is(err, engine.ErrInvalidQuantity):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be at least 1"})
        case errors.Is(err, engine.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, engine.ErrCapacityExceeded):
            return c.JSON(http.StatusConflict, echo.Map{"error": "sold out"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create hold"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "hold_token": hold.Token,
        "quantity":   hold.Quantity,
        "expires_at": hold.ExpiresAt.Format(time.RFC3339),
    })
}

// ReleaseHold handles DELETE /v1/events/:id/hold/:ticketType.  Releasing
// a hold that does not exist (or already expired) is a successful no-op,
// so the endpoint always returns 204 for well-formed requests.
func (h *TicketHandler) ReleaseHold(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ticketTypeID, ok := pathID(c, "ticketType")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket type id"})
    }
    _ = h.Manager.CancelHold(eventID, userID, ticketTypeID)
    return c.NoContent(http.StatusNoContent)
}

// Checkout handles POST /v1/events/:id/checkout/:ticketType.  It commits
// the caller's active hold and spends capacity on the durable counter.
// A missing hold yields 404 so the UI can re-prompt ticket selection, an
// expired one 410, and a capacity loss to a concurrent buyer 409.  On
// success a confirmation event is published; publish failures are logged
// inside the publisher and never fail the checkout.
func (h *TicketHandler) Checkout(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ticketTypeID, ok := pathID(c, "ticketType")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket type id"})
    }

    ticket, err := h.Manager.Checkout(c.Request().Context(), eventID, userID, ticketTypeID)
    if err != nil {
        switch {
        case errors.Is(err, engine.ErrHoldNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "no active hold for this ticket type"})
        case errors.Is(err, engine.ErrHoldExpired):
            return c.JSON(http.StatusGone, echo.Map{"error": "hold expired"})
        case errors.Is(err, engine.ErrCapacityExceeded):
            return c.JSON(http.StatusConflict, echo.Map{"error": "sold out"})
        case errors.Is(err, engine.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
    }

    _ = queue_publisher.PublishTicketConfirmed(c.Request().Context(), queue.TicketConfirmedEvent{
        EventID:        ticket.EventID,
        UserID:         ticket.UserID,
        TicketTypeID:   ticket.TicketTypeID,
        Quantity:       ticket.Quantity,
        AttendeesCount: ticket.AttendeesCount,
        ConfirmedAt:    ticket.ConfirmedAt.Format(time.RFC3339),
    })

    return c.JSON(http.StatusCreated, ticket)
}

// Availability handles GET /v1/events/:id/availability.  The route sits
// behind the Redis response cache, so the numbers may trail the durable
// counter by the cache TTL.
func (h *TicketHandler) Availability(c echo.Context) error {
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    max, current, err := h.Manager.Availability(c.Request().Context(), eventID)
    if err != nil {
        if errors.Is(err, engine.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    resp := echo.Map{"attendees_count": current}
    if max != nil {
        resp["max_attendees"] = *max
        remaining := uint32(0)
        if *max > current {
            remaining = *max - current
        }
        resp["remaining"] = remaining
    }
    return c.JSON(http.StatusOK, resp)
}
