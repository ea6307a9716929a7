package http

import (
	"errors"
	"net/http"

	"parley/internal/core/domain"
	"parley/internal/core/ports"
	apperrors "parley/pkg/errors"

	"github.com/gin-gonic/gin"
)

// RoomHandler exposes a read-only view of the room registry. Mutations go
// through the websocket channel so membership always follows a live
// connection.
type RoomHandler struct {
	roomService ports.RoomService
}

func NewRoomHandler(roomService ports.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

func (h *RoomHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/rooms", h.ListRooms)
		api.GET("/rooms/:id", h.GetRoom)
	}
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomService.ListRooms(c.Request.Context())
	if err != nil {
		c.Error(apperrors.WrapError(err, apperrors.ErrCodeInternal, "could not list rooms", http.StatusInternalServerError))
		return
	}

	out := make([]gin.H, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomView(room))
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms": out,
		"count": len(out),
	})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			c.Error(apperrors.NewNotFoundError("room").WithContext("room_id", string(roomID)))
			return
		}
		c.Error(apperrors.WrapError(err, apperrors.ErrCodeInternal, "could not load room", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room": roomView(room),
	})
}

func roomView(room *domain.Room) gin.H {
	return gin.H{
		"id":         room.ID,
		"users":      room.MemberNames(),
		"offerer":    room.OffererID,
		"full":       room.IsFull(),
		"created_at": room.CreatedAt,
	}
}
