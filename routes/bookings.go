package routes

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vehicle-rental-server/database"
	"vehicle-rental-server/middleware"
	"vehicle-rental-server/models"
	"vehicle-rental-server/services"
	ws "vehicle-rental-server/websocket"
)

// RegisterBookingRoutes registers booking lifecycle routes
func RegisterBookingRoutes(router *gin.RouterGroup, bookingService *services.BookingService, hub *ws.Hub) {
	bookings := router.Group("/bookings")
	bookings.Use(middleware.AuthMiddleware())
	{
		bookings.POST("", func(c *gin.Context) { requestBooking(c, bookingService, hub) })
		bookings.GET("/mine", func(c *gin.Context) { listMyTrips(c, bookingService) })
		bookings.GET("/hosting", func(c *gin.Context) { listHostBookings(c, bookingService) })
		bookings.GET("/:id", func(c *gin.Context) { getBooking(c, bookingService) })
		bookings.PUT("/:id", func(c *gin.Context) { editBooking(c, bookingService, hub) })
		bookings.POST("/:id/approve", func(c *gin.Context) { transition(c, bookingService.ApproveBooking, hub) })
		bookings.POST("/:id/decline", func(c *gin.Context) { transition(c, bookingService.DeclineBooking, hub) })
		bookings.POST("/:id/complete", func(c *gin.Context) { transition(c, bookingService.MarkCompleted, hub) })
		bookings.POST("/:id/cancel", func(c *gin.Context) { transition(c, bookingService.CancelBooking, hub) })
	}
}

// notifyBookingUpdate pushes a status update over the realtime hub to the
// booking parties other than the acting user, when they are connected.
func notifyBookingUpdate(hub *ws.Hub, booking *models.Booking, actorID uint) {
	if hub == nil {
		return
	}
	for _, userID := range []uint{booking.HostID, booking.RenterID} {
		if userID == actorID || !hub.IsUserConnected(userID) {
			continue
		}
		hub.SendToUser(userID, &ws.Message{
			Type:      "booking_update",
			SenderID:  actorID,
			Timestamp: time.Now(),
			Data: gin.H{
				"booking_id": booking.ID,
				"status":     booking.Status,
			},
		})
	}
}

type bookingRequest struct {
	VehicleID   uint      `json:"vehicle_id" binding:"required"`
	Start       time.Time `json:"start" binding:"required"`
	End         time.Time `json:"end" binding:"required"`
	QuotedTotal *float64  `json:"quoted_total"`
	Guests      int       `json:"guests"`
	Note        string    `json:"note"`
}

func requestBooking(c *gin.Context, bookingService *services.BookingService, hub *ws.Hub) {
	userID := middleware.CurrentUserID(c)

	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request data",
			"error":   err.Error(),
		})
		return
	}

	var vehicle models.Vehicle
	if err := database.DB.First(&vehicle, req.VehicleID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Vehicle not found",
		})
		return
	}

	if vehicle.OwnerID == userID {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "You cannot book your own vehicle",
		})
		return
	}

	booking, err := bookingService.RequestBooking(c.Request.Context(), services.RequestBookingInput{
		VehicleID:    vehicle.ID,
		VehicleTitle: vehicle.Title,
		HostID:       vehicle.OwnerID,
		RenterID:     userID,
		Start:        req.Start,
		End:          req.End,
		NightlyRate:  vehicle.NightlyRate,
		QuotedTotal:  req.QuotedTotal,
		Guests:       req.Guests,
		Note:         req.Note,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}

	notifyBookingUpdate(hub, booking, userID)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Booking requested successfully",
		"booking": booking,
	})
}

func editBooking(c *gin.Context, bookingService *services.BookingService, hub *ws.Hub) {
	userID := middleware.CurrentUserID(c)

	id, ok := bookingID(c)
	if !ok {
		return
	}

	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request data",
			"error":   err.Error(),
		})
		return
	}

	var vehicle models.Vehicle
	if err := database.DB.First(&vehicle, req.VehicleID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Vehicle not found",
		})
		return
	}

	booking, err := bookingService.EditBooking(c.Request.Context(), services.EditBookingInput{
		ID:           id,
		VehicleID:    vehicle.ID,
		VehicleTitle: vehicle.Title,
		ActorID:      userID,
		Start:        req.Start,
		End:          req.End,
		NightlyRate:  vehicle.NightlyRate,
		QuotedTotal:  req.QuotedTotal,
		Guests:       req.Guests,
		Note:         req.Note,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}

	notifyBookingUpdate(hub, booking, userID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking updated successfully",
		"booking": booking,
	})
}

func getBooking(c *gin.Context, bookingService *services.BookingService) {
	userID := middleware.CurrentUserID(c)

	id, ok := bookingID(c)
	if !ok {
		return
	}

	booking, err := bookingService.Get(c.Request.Context(), id, userID)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"booking": booking,
	})
}

func listMyTrips(c *gin.Context, bookingService *services.BookingService) {
	userID := middleware.CurrentUserID(c)

	bookings, err := bookingService.ListForRenter(c.Request.Context(), userID)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"bookings": bookings,
	})
}

func listHostBookings(c *gin.Context, bookingService *services.BookingService) {
	userID := middleware.CurrentUserID(c)

	bookings, err := bookingService.ListForHost(c.Request.Context(), userID)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"bookings": bookings,
	})
}

// transition handles the four status endpoints, which share a signature.
func transition(c *gin.Context, op func(ctx context.Context, id, actorID uint) (*models.Booking, error), hub *ws.Hub) {
	userID := middleware.CurrentUserID(c)

	id, ok := bookingID(c)
	if !ok {
		return
	}

	booking, err := op(c.Request.Context(), id, userID)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	notifyBookingUpdate(hub, booking, userID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"booking": booking,
	})
}

func bookingID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid booking ID",
		})
		return 0, false
	}
	return uint(id), true
}

// writeBookingError maps service errors onto HTTP responses.
func writeBookingError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var conflictErr *services.ConflictError
	var transitionErr *services.InvalidTransitionError
	var transientErr *services.TransientStoreError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": validationErr.Error(),
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": "Those dates are no longer available",
			"error":   conflictErr.Error(),
		})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": transitionErr.Error(),
		})
	case errors.As(err, &transientErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "Temporary storage issue, please retry",
		})
	case errors.Is(err, services.ErrNotSignedIn):
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "You must be signed in",
		})
	case errors.Is(err, services.ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You are not a party to this booking",
		})
	case errors.Is(err, services.ErrBookingNotFound), errors.Is(err, services.ErrVehicleNotFound), errors.Is(err, services.ErrThreadNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Something went wrong",
		})
	}
}
