package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"anoa.com/labeebacademy/internal/entity"
	searchService "anoa.com/labeebacademy/internal/modules/search/service"
	uploadDto "anoa.com/labeebacademy/internal/modules/upload/dto"
	uploadService "anoa.com/labeebacademy/internal/modules/upload/service"
	"anoa.com/labeebacademy/internal/modules/video/dto"
	"anoa.com/labeebacademy/internal/modules/video/repository"
	"anoa.com/labeebacademy/pkg/apperror"
	"anoa.com/labeebacademy/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const searchLimit = 100

type VideoService interface {
	List(ctx context.Context) ([]*entity.Video, error)
	Get(ctx context.Context, id string) (*entity.Video, error)
	Upload(ctx context.Context, uploader uuid.UUID, input dto.UploadVideoInput, file *dto.VideoFile) (uploadDto.Snapshot, error)
	Edit(ctx context.Context, id string, input dto.UpdateVideoInput) (*dto.VideoResponse, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]*entity.Video, error)
	SweepOrphans(ctx context.Context, retention time.Duration) (int, error)
}

type videoService struct {
	repo    repository.VideoRepository
	blobs   storage.BlobStorage
	tracker uploadService.Tracker
	index   searchService.VideoIndex
	now     func() time.Time
}

// NewVideoService wires the video manager. index may be nil, in which case
// search falls back to the database.
func NewVideoService(repo repository.VideoRepository, blobs storage.BlobStorage, tracker uploadService.Tracker, index searchService.VideoIndex) VideoService {
	return &videoService{
		repo:    repo,
		blobs:   blobs,
		tracker: tracker,
		index:   index,
		now:     time.Now,
	}
}

func parseVideoID(id string) (uuid.UUID, error) {
	videoID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid video id", apperror.ErrInvalidInput)
	}
	return videoID, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: video not found", apperror.ErrNotFound)
	}
	return err
}

func (s *videoService) List(ctx context.Context) ([]*entity.Video, error) {
	videos, err := s.repo.FindAll(ctx)
	return s.withURLs(ctx, videos, err)
}

func (s *videoService) Get(ctx context.Context, id string) (*entity.Video, error) {
	videoID, err := parseVideoID(id)
	if err != nil {
		return nil, err
	}

	video, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		return nil, notFound(err)
	}
	s.refreshURL(ctx, video)
	return video, nil
}

// refreshURL replaces the stored URL with one the blob store hands out now.
// StorageKey is the durable reference; stored URLs may have expired. The
// stored URL is kept when the store cannot produce one.
func (s *videoService) refreshURL(ctx context.Context, video *entity.Video) {
	if video.StorageKey == "" {
		return
	}
	url, err := s.blobs.URL(ctx, video.StorageKey)
	if err != nil {
		log.Printf("[video] failed to resolve url of %s: %v", video.StorageKey, err)
		return
	}
	video.VideoURL = url
}

func (s *videoService) withURLs(ctx context.Context, videos []*entity.Video, err error) ([]*entity.Video, error) {
	if err != nil {
		return nil, err
	}
	for _, v := range videos {
		s.refreshURL(ctx, v)
	}
	return videos, nil
}

// Upload starts the pipeline in the background and returns the running task.
func (s *videoService) Upload(ctx context.Context, uploader uuid.UUID, input dto.UploadVideoInput, file *dto.VideoFile) (uploadDto.Snapshot, error) {
	if file == nil || file.Reader == nil {
		return uploadDto.Snapshot{}, fmt.Errorf("%w: video file is required", apperror.ErrInvalidInput)
	}

	snap, err := s.tracker.Start(ctx, uploader, s.uploadJob(uploader, input, file))
	if err != nil {
		if file.Release != nil {
			file.Release()
		}
		return uploadDto.Snapshot{}, err
	}
	return snap, nil
}

// uploadJob writes the binary, then the metadata record, then the search
// document. Cancellation is checked between steps; a record is only written
// once the blob store handed back a URL.
func (s *videoService) uploadJob(uploader uuid.UUID, input dto.UploadVideoInput, file *dto.VideoFile) uploadService.Job {
	return func(ctx context.Context, report storage.ProgressFunc) (uploadService.Result, error) {
		if file.Release != nil {
			defer file.Release()
		}

		key := storage.VideoKey(s.now(), file.FileName)
		reader := storage.NewProgressReader(ctx, file.Reader, file.Size, report)

		url, err := s.blobs.Upload(ctx, storage.UploadInput{
			Key:         key,
			Reader:      reader,
			Size:        file.Size,
			ContentType: file.ContentType,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return uploadService.Result{}, ctxErr
			}
			return uploadService.Result{}, fmt.Errorf("failed to upload video: %w", err)
		}

		if err := ctx.Err(); err != nil {
			if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				log.Printf("[video] failed to remove blob %s of cancelled upload: %v", key, delErr)
			}
			return uploadService.Result{}, err
		}

		video := &entity.Video{
			Title:       input.Title,
			Description: input.Description,
			VideoURL:    url,
			StorageKey:  key,
			UploadedBy:  uploader,
		}
		if err := s.repo.Create(ctx, video); err != nil {
			return uploadService.Result{}, fmt.Errorf("failed to save video: %w", err)
		}

		s.indexBestEffort(video)

		return uploadService.Result{ID: video.ID, Message: "Video uploaded successfully!"}, nil
	}
}

func (s *videoService) indexBestEffort(video *entity.Video) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexVideo(video); err != nil {
		log.Printf("[video] failed to index video %s: %v", video.ID, err)
	}
}

// Edit overwrites title and description; everything else stays as uploaded.
func (s *videoService) Edit(ctx context.Context, id string, input dto.UpdateVideoInput) (*dto.VideoResponse, error) {
	videoID, err := parseVideoID(id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateDetails(ctx, videoID, input.Title, input.Description); err != nil {
		return nil, notFound(err)
	}

	video, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		return nil, notFound(err)
	}
	s.indexBestEffort(video)
	s.refreshURL(ctx, video)

	return &dto.VideoResponse{Message: "Video updated successfully!", Video: video}, nil
}

// Delete hides the record from every read. The blob stays where it is so
// URLs handed out earlier keep resolving.
func (s *videoService) Delete(ctx context.Context, id string) error {
	videoID, err := parseVideoID(id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, videoID); err != nil {
		return notFound(err)
	}

	if s.index != nil {
		if err := s.index.DeleteVideo(videoID.String()); err != nil {
			log.Printf("[video] failed to remove video %s from index: %v", videoID, err)
		}
	}
	return nil
}

func (s *videoService) Search(ctx context.Context, query string) ([]*entity.Video, error) {
	if query == "" {
		return s.List(ctx)
	}

	if s.index != nil {
		ids, err := s.index.SearchVideos(query, searchLimit)
		if err == nil {
			videos, err := s.inOrder(ctx, ids)
			return s.withURLs(ctx, videos, err)
		}
		log.Printf("[video] search index unavailable, falling back to database: %v", err)
	}

	videos, err := s.repo.Search(ctx, query)
	return s.withURLs(ctx, videos, err)
}

// inOrder loads ids and keeps the index's relevance order. Ids of deleted
// videos drop out.
func (s *videoService) inOrder(ctx context.Context, ids []uuid.UUID) ([]*entity.Video, error) {
	videos, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*entity.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	ordered := make([]*entity.Video, 0, len(videos))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered, nil
}

// SweepOrphans deletes the blobs of videos removed longer than retention ago
// and then forgets their rows.
func (s *videoService) SweepOrphans(ctx context.Context, retention time.Duration) (int, error) {
	videos, err := s.repo.FindDeletedBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, v := range videos {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		if err := s.blobs.Delete(ctx, v.StorageKey); err != nil {
			log.Printf("[video] failed to delete blob %s: %v", v.StorageKey, err)
			continue
		}
		if err := s.repo.Purge(ctx, v.ID); err != nil {
			log.Printf("[video] failed to purge video %s: %v", v.ID, err)
			continue
		}
		swept++
	}
	return swept, nil
}
