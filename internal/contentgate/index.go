// internal/contentgate/index.go
package contentgate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"interview-prep-workers/internal/common/database"
	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "bankKey":  {"type": "keyword"},
      "roleKey":  {"type": "keyword"},
      "itemRole": {"type": "keyword"},
      "role":     {"type": "keyword"},
      "tags":     {"type": "keyword"},
      "position": {"type": "integer"},
      "question": {"type": "text"},
      "answer":   {"type": "text"}
    }
  }
}`

type indexedItem struct {
	BankKey  string `json:"bankKey"`
	RoleKey  string `json:"roleKey"`
	ItemRole string `json:"itemRole"`
	Role     string `json:"role"`
	Tags     string `json:"tags"`
	Position int    `json:"position"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Index mirrors the bank into Elasticsearch for full-text search. Searches are scoped
// to the items the bank resolves a role to.
type Index struct {
	es   *database.ElasticsearchClient
	name string
	bank *Bank
}

func NewIndex(es *database.ElasticsearchClient, name string, bank *Bank) *Index {
	return &Index{es: es, name: name, bank: bank}
}

func (ix *Index) Name() string {
	return ix.name
}

// Sync creates the index if needed and bulk-writes every bank item. Document ids are
// stable, so re-running replaces rather than duplicates.
func (ix *Index) Sync(ctx context.Context) (int, error) {
	bank := ix.bank
	if err := ix.es.EnsureIndex(ctx, ix.name, indexMapping); err != nil {
		return 0, errors.NewElasticsearchConnectionFailedError(err)
	}

	var body bytes.Buffer
	count := 0
	enc := json.NewEncoder(&body)
	for _, key := range bank.keys {
		for i, item := range bank.sets[key] {
			meta := map[string]interface{}{"index": map[string]interface{}{
				"_index": ix.name,
				"_id":    documentID(key, i+1),
			}}
			doc := indexedItem{
				BankKey:  key,
				RoleKey:  strings.ToLower(key),
				ItemRole: strings.ToLower(item.Role),
				Role:     item.Role,
				Tags:     strings.ToLower(item.Tags),
				Position: i + 1,
				Question: item.Prompt,
				Answer:   item.Answer,
			}
			if err := enc.Encode(meta); err != nil {
				return 0, err
			}
			if err := enc.Encode(doc); err != nil {
				return 0, err
			}
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}

	req := esapi.BulkRequest{Body: &body, Refresh: "true"}
	res, err := req.Do(ctx, ix.es.Client)
	if err != nil {
		return 0, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, errors.NewSearchQueryFailedError(ix.name, fmt.Errorf("bulk: %s", res.Status()))
	}

	var bulk struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return 0, errors.NewSearchQueryFailedError(ix.name, err)
	}
	if bulk.Errors {
		return 0, errors.NewSearchQueryFailedError(ix.name, stderrors.New("bulk request reported item errors"))
	}
	return count, nil
}

// SearchResult is the matched items split by tag, in relevance order.
type SearchResult struct {
	Visible
	Total int
}

// Search runs a full-text query over the items the bank resolves role to: the matched
// key's set, or the items carrying the role when no key matches.
func (ix *Index) Search(ctx context.Context, role, query string, size int, questionBankAccess int) (*SearchResult, error) {
	out := &SearchResult{
		Visible: Visible{
			Basic:        []models.ContentItem{},
			Advanced:     []models.ContentItem{},
			ShowAdvanced: questionBankAccess == 1,
		},
	}
	match, ok := ix.bank.Lookup(role)
	if !ok {
		return out, nil
	}
	scope := map[string]interface{}{"term": map[string]interface{}{"bankKey": match.Key}}
	if match.Key == "" {
		scope = map[string]interface{}{"term": map[string]interface{}{"itemRole": match.ItemRole}}
	}

	must := []interface{}{}
	if strings.TrimSpace(query) != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"question^2", "answer"},
				"type":   "best_fields",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": []interface{}{scope},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	if size <= 0 {
		size = 20
	}
	req := esapi.SearchRequest{
		Index: []string{ix.name},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, ix.es.Client)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewSearchTimeoutError(ix.name)
		}
		return nil, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, errors.NewIndexNotFoundError(ix.name)
	}
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, errors.NewSearchQueryFailedError(ix.name, fmt.Errorf("%s: %s", res.Status(), raw))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source indexedItem `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(ix.name, err)
	}

	out.Total = parsed.Hits.Total.Value
	for _, hit := range parsed.Hits.Hits {
		item := models.ContentItem{Role: hit.Source.Role, Tags: hit.Source.Tags, Prompt: hit.Source.Question, Answer: hit.Source.Answer}
		switch hit.Source.Tags {
		case models.DifficultyBasic:
			out.Basic = append(out.Basic, item)
		case models.DifficultyAdvanced:
			out.Advanced = append(out.Advanced, item)
		}
	}
	return out, nil
}

// documentID keeps keys that differ only in case or spacing apart.
func documentID(key string, position int) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s-%x-%d", slug(key), sum[:4], position)
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
