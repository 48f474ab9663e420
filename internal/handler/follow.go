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

// FollowHandler exposes the organizer follow state machine over HTTP.
type FollowHandler struct {
    Follows *engine.FollowService
}

// NewFollowHandler constructs a new FollowHandler.
func NewFollowHandler(follows *engine.FollowService) *FollowHandler {
    if follows == nil {
        panic("nil service passed to NewFollowHandler")
    }
    return &FollowHandler{Follows: follows}
}

// followResponse is the JSON shape returned for follow relations.
type followResponse struct {
    ID          uint64 `json:"id"`
    OrganizerID uint64 `json:"organizer_id"`
    Status      string `json:"status"`
    FollowDate  string `json:"follow_date"`
}

func toFollowResponse(rel *model.Follow) followResponse {
    return followResponse{
        ID:          rel.ID,
        OrganizerID: rel.OrganizerID,
        Status:      string(rel.Status),
        FollowDate:  rel.FollowDate.UTC().Format(time.RFC3339),
    }
}

// Follow handles POST /v1/organizers/:id/follow.  Repeating the call while
// already following returns the existing relation with 200 instead of 201
// and moves no counter.
func (h *FollowHandler) Follow(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    organizerID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organizer id"})
    }

    rel, changed, err := h.Follows.Follow(c.Request().Context(), userID, organizerID)
    if err != nil {
        if errors.Is(err, engine.ErrOrganizerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "organizer not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to follow"})
    }
    if !changed {
        return c.JSON(http.StatusOK, toFollowResponse(rel))
    }

    h.publishChange(c, userID, organizerID, rel.Status)
    return c.JSON(http.StatusCreated, toFollowResponse(rel))
}

// Unfollow handles DELETE /v1/organizers/:id/follow.  Unfollowing an
// organizer the caller never followed is a successful no-op, so the
// endpoint always returns 204 for well-formed requests.
func (h *FollowHandler) Unfollow(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    organizerID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organizer id"})
    }

    changed, err := h.Follows.Unfollow(c.Request().Context(), userID, organizerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to unfollow"})
    }
    if changed {
        h.publishChange(c, userID, organizerID, model.FollowInactive)
    }
    return c.NoContent(http.StatusNoContent)
}

// Toggle handles POST /v1/organizers/:id/follow/toggle.  It always flips
// the relation and returns the post-toggle state.
func (h *FollowHandler) Toggle(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    organizerID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organizer id"})
    }

    rel, err := h.Follows.Toggle(c.Request().Context(), userID, organizerID)
    if err != nil {
        if errors.Is(err, engine.ErrOrganizerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "organizer not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to toggle follow"})
    }

    h.publishChange(c, userID, organizerID, rel.Status)
    return c.JSON(http.StatusOK, toFollowResponse(rel))
}

// GetFollowStatus handles GET /v1/organizers/:id/follow.
func (h *FollowHandler) GetFollowStatus(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    organizerID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organizer id"})
    }
    following, err := h.Follows.GetFollowStatus(c.Request().Context(), userID, organizerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"following": following})
}

func (h *FollowHandler) publishChange(c echo.Context, userID, organizerID uint64, status model.FollowStatus) {
    _ = queue_publisher.PublishFollowChanged(c.Request().Context(), queue.FollowChangedEvent{
        FollowerID:  userID,
        OrganizerID: organizerID,
        Status:      string(status),
        ChangedAt:   time.Now().UTC().Format(time.RFC3339),
    })
}
