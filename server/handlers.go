package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chaos-io/idphoto/photo"
	"github.com/chaos-io/idphoto/rembg"
	"github.com/chaos-io/idphoto/util"
)

const defaultBackgroundColor = "#FFFFFF"

type Handler struct {
	layout         *photo.Layout
	segmenter      rembg.Segmenter
	probe          *rembg.Probe
	maxUploadBytes int64
}

func NewHandler(layout *photo.Layout, segmenter rembg.Segmenter, probe *rembg.Probe, maxUploadBytes int64) *Handler {
	return &Handler{
		layout:         layout,
		segmenter:      segmenter,
		probe:          probe,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Background removal API is running",
		"method":  h.probe.Method(),
		"quality": h.probe.Quality(),
	})
}

// RemoveBackground 接收 multipart 字段 image，调用分割模型抠掉背景
func (h *Handler) RemoveBackground(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	img, err := photo.Decode(data)
	if err != nil {
		abortWithError(c, err)
		return
	}

	mask, err := h.segmenter.Segment(c.Request.Context(), img)
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := photo.ApplyMask(img, mask)
	dataURL, err := photo.EncodeDataURL(out)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"image":   dataURL,
		"method":  h.probe.Method(),
		"quality": h.probe.Quality(),
	})
}

type changeBackgroundRequest struct {
	Image           string `json:"image"`
	BackgroundColor string `json:"background_color"`
}

// ChangeBackground 把透明背景替换为指定纯色
func (h *Handler) ChangeBackground(c *gin.Context) {
	var req changeBackgroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image data provided"})
		return
	}
	if req.BackgroundColor == "" {
		req.BackgroundColor = defaultBackgroundColor
	}

	bg, err := photo.ParseHexColor(req.BackgroundColor)
	if err != nil {
		abortWithError(c, err)
		return
	}

	img, err := loadImage(c.Request.Context(), req.Image)
	if err != nil {
		abortWithError(c, err)
		return
	}

	// 蒙版来自图像自带的 alpha 通道
	out, err := photo.ReplaceBackground(img, photo.ExtractAlpha(img), bg)
	if err != nil {
		abortWithError(c, err)
		return
	}

	dataURL, err := photo.EncodeDataURL(out)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "image": dataURL})
}

type passportGridRequest struct {
	Image       string `json:"image"`
	Cols        *int   `json:"cols"`
	Rows        *int   `json:"rows"`
	PhotoWidth  *int   `json:"photo_width"`
	PhotoHeight *int   `json:"photo_height"`
}

func (r *passportGridRequest) spec() photo.GridSpec {
	spec := photo.DefaultGridSpec()
	if r.Cols != nil {
		spec.Cols = *r.Cols
	}
	if r.Rows != nil {
		spec.Rows = *r.Rows
	}
	if r.PhotoWidth != nil {
		spec.PhotoWidth = *r.PhotoWidth
	}
	if r.PhotoHeight != nil {
		spec.PhotoHeight = *r.PhotoHeight
	}
	return spec
}

// CreatePassportGrid 把源图平铺成证件照排版
func (h *Handler) CreatePassportGrid(c *gin.Context) {
	var req passportGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image data provided"})
		return
	}

	img, err := loadImage(c.Request.Context(), req.Image)
	if err != nil {
		abortWithError(c, err)
		return
	}

	grid, err := h.layout.BuildPassportGrid(img, req.spec())
	if err != nil {
		abortWithError(c, err)
		return
	}

	dataURL, err := photo.EncodeDataURL(grid)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "image": dataURL})
}

// loadImage 请求里的 image 字段既可以是 base64/data-URL，也可以是图片 URL
func loadImage(ctx context.Context, s string) (image.Image, error) {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		img, err := util.DownloadImage(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("%w: download image: %v", photo.ErrImageProcessing, err)
		}
		return img, nil
	}
	return photo.DecodeBase64(s)
}

// abortWithError 按错误分类映射 HTTP 状态码
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, photo.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, photo.ErrResourceLimit):
		status = http.StatusRequestEntityTooLarge
	}

	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("request_id", c.GetString("request_id")).Error("request processing failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
