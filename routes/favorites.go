package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vehicle-rental-server/database"
	"vehicle-rental-server/middleware"
	"vehicle-rental-server/models"
)

// RegisterFavoriteRoutes registers saved-vehicle routes
func RegisterFavoriteRoutes(router *gin.RouterGroup) {
	favorites := router.Group("/favorites")
	favorites.Use(middleware.AuthMiddleware())
	{
		favorites.GET("", listFavorites)
		favorites.POST("/:vehicleId", addFavorite)
		favorites.DELETE("/:vehicleId", removeFavorite)
	}
}

func listFavorites(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var favorites []models.Favorite
	if err := database.DB.Preload("Vehicle").Preload("Vehicle.Owner").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to fetch favorites",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"favorites": favorites,
	})
}

func addFavorite(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	vehicleID, ok := favoriteVehicleID(c)
	if !ok {
		return
	}

	var vehicle models.Vehicle
	if err := database.DB.First(&vehicle, vehicleID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Vehicle not found",
		})
		return
	}

	// Saving twice is a no-op thanks to the unique index.
	favorite := models.Favorite{UserID: userID, VehicleID: vehicleID}
	if err := database.DB.Where(&favorite).FirstOrCreate(&favorite).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to save favorite",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Vehicle saved",
		"favorite": favorite,
	})
}

func removeFavorite(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	vehicleID, ok := favoriteVehicleID(c)
	if !ok {
		return
	}

	if err := database.DB.Where("user_id = ? AND vehicle_id = ?", userID, vehicleID).
		Delete(&models.Favorite{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to remove favorite",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Vehicle removed from favorites",
	})
}

func favoriteVehicleID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("vehicleId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid vehicle ID",
		})
		return 0, false
	}
	return uint(id), true
}
