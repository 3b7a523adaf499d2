package handler

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"

	"anoa.com/labeebacademy/internal/modules/video/dto"
	videoService "anoa.com/labeebacademy/internal/modules/video/service"
	"anoa.com/labeebacademy/pkg/response"
	"anoa.com/labeebacademy/pkg/validator"
	"github.com/gin-gonic/gin"
)

type VideoHandler struct {
	videoService videoService.VideoService
	spoolDir     string
}

func NewVideoHandler(videoService videoService.VideoService, spoolDir string) *VideoHandler {
	return &VideoHandler{
		videoService: videoService,
		spoolDir:     spoolDir,
	}
}

func (h *VideoHandler) GetAllVideos(c *gin.Context) {
	res, err := h.videoService.List(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VideoListResponse{Data: res})
}

func (h *VideoHandler) GetVideo(c *gin.Context) {
	res, err := h.videoService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *VideoHandler) SearchVideos(c *gin.Context) {
	var req dto.SearchVideoRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.videoService.Search(c.Request.Context(), req.Query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VideoListResponse{Data: res})
}

// UploadVideo accepts the multipart form and answers 202 with the running
// task. The file is copied to the spool directory first because gin drops
// its multipart temp files when the request ends.
func (h *VideoHandler) UploadVideo(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.UploadVideoInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video file is required"})
		return
	}

	file, err := h.spool(fileHeader)
	if err != nil {
		log.Printf("[video] failed to spool upload %q: %v", fileHeader.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read video file"})
		return
	}

	snap, err := h.videoService.Upload(c.Request.Context(), userID, input, file)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.UploadAcceptedResponse{
		Message: "Upload started",
		Task:    snap,
	})
}

func (h *VideoHandler) spool(fileHeader *multipart.FileHeader) (*dto.VideoFile, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(h.spoolDir, "upload-*")
	if err != nil {
		return nil, err
	}

	size, err := io.Copy(tmp, src)
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &dto.VideoFile{
		Reader:      tmp,
		FileName:    fileHeader.Filename,
		Size:        size,
		ContentType: contentType,
		Release: func() {
			tmp.Close()
			os.Remove(tmp.Name())
		},
	}, nil
}

func (h *VideoHandler) UpdateVideo(c *gin.Context) {
	var input dto.UpdateVideoInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.videoService.Edit(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	if err := h.videoService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseMessage(c, http.StatusOK, "Video deleted successfully")
}
