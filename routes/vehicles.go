package routes

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vehicle-rental-server/database"
	"vehicle-rental-server/middleware"
	"vehicle-rental-server/models"
)

type vehicleRequest struct {
	Title       string   `json:"title" binding:"required,min=2,max=255"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	NightlyRate float64  `json:"nightly_rate" binding:"required,gt=0"`
	Seats       int      `json:"seats"`
	// Older clients send capacity instead of seats.
	Capacity    int      `json:"capacity"`
	City        string   `json:"city"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Photos      []string `json:"photos"`
	Features    []string `json:"features"`
	IsListed    *bool    `json:"is_listed"`
}

func (r *vehicleRequest) seats() int {
	if r.Seats > 0 {
		return r.Seats
	}
	if r.Capacity > 0 {
		return r.Capacity
	}
	return 1
}

func (r *vehicleRequest) vehicleType() models.VehicleType {
	switch models.VehicleType(strings.ToLower(r.Type)) {
	case models.VehicleTypeBoat:
		return models.VehicleTypeBoat
	case models.VehicleTypeCamper:
		return models.VehicleTypeCamper
	case models.VehicleTypeATV:
		return models.VehicleTypeATV
	case models.VehicleTypeJetSki:
		return models.VehicleTypeJetSki
	default:
		return models.VehicleTypeOther
	}
}

// RegisterVehicleRoutes registers vehicle listing and availability routes
func RegisterVehicleRoutes(router *gin.RouterGroup) {
	vehicles := router.Group("/vehicles")
	{
		// Public routes
		vehicles.GET("", listVehicles)
		vehicles.GET("/:id", getVehicle)

		// Protected routes
		protected := vehicles.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("", createVehicle)
			protected.PUT("/:id", updateVehicle)
			protected.DELETE("/:id", deleteVehicle)
			protected.GET("/mine", listMyVehicles)
			protected.POST("/:id/blocked-ranges", addBlockedRange)
			protected.DELETE("/:id/blocked-ranges/:rangeId", removeBlockedRange)
		}
	}
}

func listVehicles(c *gin.Context) {
	query := database.DB.Preload("Owner").Where("is_listed = ?", true)

	if vehicleType := c.Query("type"); vehicleType != "" {
		query = query.Where("type = ?", strings.ToLower(vehicleType))
	}
	if city := c.Query("city"); city != "" {
		query = query.Where("city ILIKE ?", "%"+city+"%")
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	var vehicles []models.Vehicle
	if err := query.Order("created_at DESC").Limit(limit).Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch vehicles",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"vehicles": vehicles,
	})
}

func getVehicle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid vehicle ID",
		})
		return
	}

	var vehicle models.Vehicle
	if err := database.DB.Preload("Owner").Preload("BlockedRanges").First(&vehicle, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Vehicle not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch vehicle",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"vehicle": vehicle,
	})
}

func listMyVehicles(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var vehicles []models.Vehicle
	if err := database.DB.Preload("BlockedRanges").Where("owner_id = ?", userID).Order("created_at DESC").Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch vehicles",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"vehicles": vehicles,
	})
}

func createVehicle(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request data",
			"error":   err.Error(),
		})
		return
	}

	vehicle := models.Vehicle{
		OwnerID:     userID,
		Title:       strings.TrimSpace(req.Title),
		Type:        req.vehicleType(),
		Description: req.Description,
		NightlyRate: req.NightlyRate,
		Seats:       req.seats(),
		City:        req.City,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Photos:      req.Photos,
		Features:    req.Features,
		IsListed:    true,
	}
	if req.IsListed != nil {
		vehicle.IsListed = *req.IsListed
	}

	if err := database.DB.Create(&vehicle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create vehicle",
		})
		return
	}

	// Listing a vehicle makes the user a host.
	database.DB.Model(&models.User{}).Where("id = ? AND is_host = ?", userID, false).Update("is_host", true)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Vehicle created successfully",
		"vehicle": vehicle,
	})
}

func updateVehicle(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	vehicle, ok := ownedVehicle(c, userID)
	if !ok {
		return
	}

	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request data",
			"error":   err.Error(),
		})
		return
	}

	vehicle.Title = strings.TrimSpace(req.Title)
	vehicle.Type = req.vehicleType()
	vehicle.Description = req.Description
	vehicle.NightlyRate = req.NightlyRate
	vehicle.Seats = req.seats()
	vehicle.City = req.City
	vehicle.Latitude = req.Latitude
	vehicle.Longitude = req.Longitude
	vehicle.Photos = req.Photos
	vehicle.Features = req.Features
	if req.IsListed != nil {
		vehicle.IsListed = *req.IsListed
	}

	if err := database.DB.Save(vehicle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to update vehicle",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Vehicle updated successfully",
		"vehicle": vehicle,
	})
}

func deleteVehicle(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	vehicle, ok := ownedVehicle(c, userID)
	if !ok {
		return
	}

	// Keep the row for booking history, just delist it.
	vehicle.IsListed = false
	if err := database.DB.Save(vehicle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to delete vehicle",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Vehicle delisted successfully",
	})
}

func addBlockedRange(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	vehicle, ok := ownedVehicle(c, userID)
	if !ok {
		return
	}

	var req struct {
		Start  time.Time `json:"start" binding:"required"`
		End    time.Time `json:"end" binding:"required"`
		Reason string    `json:"reason"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request data",
			"error":   err.Error(),
		})
		return
	}

	if !req.End.After(req.Start) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "End must be after start",
		})
		return
	}

	blockedRange := models.BlockedRange{
		VehicleID: vehicle.ID,
		Start:     req.Start,
		End:       req.End,
		Reason:    strings.TrimSpace(req.Reason),
	}

	if err := database.DB.Create(&blockedRange).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to block dates",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"message":       "Dates blocked successfully",
		"blocked_range": blockedRange,
	})
}

func removeBlockedRange(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	vehicle, ok := ownedVehicle(c, userID)
	if !ok {
		return
	}

	rangeID, err := strconv.ParseUint(c.Param("rangeId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid range ID",
		})
		return
	}

	result := database.DB.Where("id = ? AND vehicle_id = ?", rangeID, vehicle.ID).Delete(&models.BlockedRange{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to unblock dates",
		})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Blocked range not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Dates unblocked successfully",
	})
}

// ownedVehicle loads the :id vehicle and checks the caller owns it. Writes the
// error response itself when the lookup fails.
func ownedVehicle(c *gin.Context, userID uint) (*models.Vehicle, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid vehicle ID",
		})
		return nil, false
	}

	var vehicle models.Vehicle
	if err := database.DB.First(&vehicle, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Vehicle not found",
			})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch vehicle",
		})
		return nil, false
	}

	if vehicle.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You do not own this vehicle",
		})
		return nil, false
	}

	return &vehicle, true
}
