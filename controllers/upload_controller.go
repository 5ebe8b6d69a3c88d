// File: /controllers/upload_controller.go
package controllers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"trianglecal-api/config"
	"trianglecal-api/utils"
)

const maxImageSize = 5 << 20 // 5 MB

var allowedImageTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadController stores event images in an S3-compatible bucket and
// hands the public URL back to the author.
type UploadController struct {
	cfg    *config.Config
	client *minio.Client
}

func NewUploadController(cfg *config.Config) (*UploadController, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob storage client: %w", err)
	}
	return &UploadController{cfg: cfg, client: client}, nil
}

func (uc *UploadController) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		utils.SendValidationError(c, "An image file is required")
		return
	}
	if file.Size > maxImageSize {
		utils.SendValidationError(c, "Image must be 5 MB or smaller")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageTypes[ext] {
		utils.SendValidationError(c, "Image must be jpg, png or webp")
		return
	}

	src, err := file.Open()
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to read upload")
		return
	}
	defer src.Close()

	objectName := fmt.Sprintf("events/%s%s", uuid.New().String(), ext)
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = uc.client.PutObject(context.Background(), uc.cfg.MinioBucket, objectName, src, file.Size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to store image")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url": fmt.Sprintf("%s/%s", uc.cfg.MinioPublicURL, objectName),
	})
}
