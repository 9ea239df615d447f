package routes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vehicle-rental-server/config"
	"vehicle-rental-server/middleware"
)

var allowedUploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// RegisterUploadRoutes registers media upload routes
func RegisterUploadRoutes(router *gin.RouterGroup) {
	uploads := router.Group("/uploads")
	uploads.Use(middleware.AuthMiddleware())
	{
		uploads.POST("/photo", uploadPhoto)
	}
}

func uploadPhoto(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "A file field is required",
		})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Unsupported file type",
		})
		return
	}

	cfg := config.AppConfig.Cloudinary
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		log.Printf("❌ Cloudinary environment variables not set")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Uploads are not configured",
		})
		return
	}

	cloudinaryURL := fmt.Sprintf("cloudinary://%s:%s@%s", cfg.APIKey, cfg.APISecret, cfg.CloudName)
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		log.Printf("❌ Failed to initialize Cloudinary: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Upload service initialization failed",
		})
		return
	}

	// Uploads that outlive the timeout are abandoned, not retried.
	ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.UploadTimeout)
	defer cancel()

	publicID := fmt.Sprintf("vehicle-rental/%d/%s", userID, uuid.NewString())
	result, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("⚠️ Cloudinary upload timed out for user %d", userID)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"success": false,
				"message": "Upload timed out, please try again",
			})
			return
		}
		log.Printf("❌ Cloudinary upload failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Upload failed",
		})
		return
	}

	log.Printf("✅ Photo uploaded by user %d: %s", userID, result.PublicID)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"url":       result.SecureURL,
			"public_id": result.PublicID,
			"width":     result.Width,
			"height":    result.Height,
		},
	})
}
