package service

import (
	"encoding/json"
	"html"
	"log"
	"strings"

	"anoa.com/labeebacademy/internal/entity"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const videosIndex = "videos"

type VideoIndex interface {
	IndexVideo(video *entity.Video) error
	DeleteVideo(id string) error
	SearchVideos(query string, limit int64) ([]uuid.UUID, error)
}

type meiliVideoIndex struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewVideoIndex(client meilisearch.ServiceManager) VideoIndex {
	s := &meiliVideoIndex{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndex()
	return s
}

func (s *meiliVideoIndex) initIndex() {
	searchable := []string{"title", "description"}
	if _, err := s.client.Index(videosIndex).UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("Failed to update videos searchable attributes: %v", err)
	}

	log.Println("Meilisearch videos index initialized")
}

type meiliVideoDoc struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *meiliVideoIndex) cleanContentForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)

	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliVideoIndex) IndexVideo(video *entity.Video) error {
	doc := meiliVideoDoc{
		ID:          video.ID.String(),
		Title:       s.cleanContentForIndex(video.Title),
		Description: s.cleanContentForIndex(video.Description),
	}

	task, err := s.client.Index(videosIndex).AddDocuments([]meiliVideoDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed video %s, task id: %d", video.ID, task.TaskUID)
	return nil
}

func (s *meiliVideoIndex) DeleteVideo(id string) error {
	_, err := s.client.Index(videosIndex).DeleteDocument(id)
	return err
}

// SearchVideos returns matching video ids in relevance order.
func (s *meiliVideoIndex) SearchVideos(query string, limit int64) ([]uuid.UUID, error) {
	resp, err := s.client.Index(videosIndex).Search(query, &meilisearch.SearchRequest{
		Limit:                limit,
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, err
	}
	var hits []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
