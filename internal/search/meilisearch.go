package search

import (
	"github.com/meilisearch/meilisearch-go"

	"leasing-sync/internal/models"
)

// SearchClient indexes active availabilities for the leasing search surface.
type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "availabilities",
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"unit_name",
		"property_code",
		"amenities",
		"leasing_agent",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"property_code",
		"status",
		"offered_rent",
		"available_date",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"offered_rent",
		"available_date",
		"updated_at",
	})
	if err != nil {
		return err
	}

	return nil
}

// IndexAvailabilities replaces the indexed documents with the given set.
// Inactive records are indexed too so stale documents are overwritten in
// place rather than lingering with old statuses.
func (s *SearchClient) IndexAvailabilities(availabilities []models.Availability) error {
	if len(availabilities) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).AddDocuments(availabilities)
	return err
}

// Search searches indexed availabilities with an optional filter expression.
func (s *SearchClient) Search(query string, filter string, limit int64) ([]map[string]interface{}, error) {
	if limit == 0 {
		limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit: limit,
	}
	if filter != "" {
		searchReq.Filter = filter
	}

	searchRes, err := s.client.Index(s.index).Search(query, searchReq)
	if err != nil {
		return nil, err
	}

	hits := make([]map[string]interface{}, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		if m, ok := hit.(map[string]interface{}); ok {
			hits = append(hits, m)
		}
	}
	return hits, nil
}
