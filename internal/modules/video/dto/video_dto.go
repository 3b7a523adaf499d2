package dto

import (
	"io"

	"anoa.com/labeebacademy/internal/entity"
	uploadDto "anoa.com/labeebacademy/internal/modules/upload/dto"
)

type UploadVideoInput struct {
	Title       string `json:"title" form:"title" binding:"required,max=200"`
	Description string `json:"description" form:"description" binding:"required"`
}

type UpdateVideoInput struct {
	Title       string `json:"title" form:"title" binding:"required,max=200"`
	Description string `json:"description" form:"description" binding:"required"`
}

type SearchVideoRequest struct {
	Query string `form:"q"`
}

// VideoFile is the binary handed to the upload pipeline. Release, when set,
// runs once the pipeline no longer needs Reader.
type VideoFile struct {
	Reader      io.Reader
	FileName    string
	Size        int64
	ContentType string
	Release     func()
}

type VideoResponse struct {
	Message string        `json:"message"`
	Video   *entity.Video `json:"video"`
}

type VideoListResponse struct {
	Data []*entity.Video `json:"data"`
}

type UploadAcceptedResponse struct {
	Message string             `json:"message"`
	Task    uploadDto.Snapshot `json:"task"`
}
