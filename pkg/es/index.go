// Package es implements the embedding index on Elasticsearch. It owns chunk
// id assignment, vector upserts, filtered MMR search and prefix deletion.
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"doc-qa-go/internal/config"
	"doc-qa-go/internal/model"
	"doc-qa-go/pkg/embedding"
	"doc-qa-go/pkg/log"
)

const (
	// DefaultTopK is the number of results a search returns.
	DefaultTopK = 10
	// DefaultFetchK is the candidate pool size fetched for MMR re-ranking.
	DefaultFetchK = 50

	mmrLambda = 0.5

	deleteAttempts  = 3
	readinessProbes = 8
)

// Index owns the Elasticsearch handle for one vector index. Embedding
// computation is delegated to the injected client but orchestrated here.
type Index struct {
	client     *elasticsearch.Client
	embedder   embedding.Client
	name       string
	dimensions int
	modelName  string
}

// esDocument is the flat document shape stored in Elasticsearch.
type esDocument struct {
	VectorID     string    `json:"vector_id"`
	FileID       string    `json:"file_id"`
	FileName     string    `json:"filename"`
	Page         *int      `json:"page,omitempty"`
	Row          *int      `json:"row,omitempty"`
	Column       *string   `json:"column,omitempty"`
	Sheet        string    `json:"sheet,omitempty"`
	ChunkIndex   int       `json:"chunk_index"`
	TextContent  string    `json:"text_content"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version,omitempty"`
}

// New builds the Elasticsearch client and returns an Index bound to the
// configured index name.
func New(cfg config.ElasticsearchConfig, embedder embedding.Client, modelName string) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Addresses},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Index{
		client:     client,
		embedder:   embedder,
		name:       cfg.IndexName,
		dimensions: cfg.Dimensions,
		modelName:  modelName,
	}, nil
}

// EnsureIndex creates the backing index with the fixed dimensionality and
// cosine similarity if it does not exist yet. Safe to call at every start.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	res, err := ix.client.Indices.Exists([]string{ix.name}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("index '%s' already exists", ix.name)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unexpected status checking index existence: %d", res.StatusCode)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector_id": { "type": "keyword" },
				"file_id": { "type": "keyword" },
				"filename": { "type": "keyword" },
				"page": { "type": "integer" },
				"row": { "type": "integer" },
				"column": { "type": "keyword" },
				"sheet": { "type": "keyword" },
				"chunk_index": { "type": "integer" },
				"text_content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"model_version": { "type": "keyword" }
			}
		}
	}`, ix.dimensions)

	res, err = ix.client.Indices.Create(
		ix.name,
		ix.client.Indices.Create.WithContext(ctx),
		ix.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index '%s': %w", ix.name, err)
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch returned an error creating index '%s': %s", ix.name, res.String())
	}

	log.Infof("index '%s' created", ix.name)
	return nil
}

// Upsert embeds the documents and writes one vector record per document.
// Chunk ids are assigned in list order as fileId + "#chunk_" + N, N starting
// at 1, so ids of a single ingestion are unique and contiguous.
func (ix *Index) Upsert(ctx context.Context, fileID string, docs []model.Document) error {
	for i, doc := range docs {
		vector, err := ix.embedder.CreateEmbedding(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i+1, err)
		}
		if ix.dimensions > 0 && len(vector) != ix.dimensions {
			return fmt.Errorf("embedding dimension mismatch for chunk %d: got %d, index expects %d", i+1, len(vector), ix.dimensions)
		}

		esDoc := esDocument{
			VectorID:     ChunkID(fileID, i+1),
			FileID:       fileID,
			FileName:     doc.Metadata.FileName,
			Page:         doc.Metadata.Page,
			Row:          doc.Metadata.Row,
			Column:       doc.Metadata.Column,
			Sheet:        doc.Metadata.Sheet,
			ChunkIndex:   doc.Metadata.ChunkIndex,
			TextContent:  doc.Text,
			Vector:       vector,
			ModelVersion: ix.modelName,
		}

		docBytes, err := json.Marshal(esDoc)
		if err != nil {
			return err
		}

		req := esapi.IndexRequest{
			Index:      ix.name,
			DocumentID: esDoc.VectorID,
			Body:       bytes.NewReader(docBytes),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, ix.client)
		if err != nil {
			return fmt.Errorf("failed to index chunk %d: %w", i+1, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elasticsearch rejected chunk %d: %s", i+1, res.Status())
		}
	}
	return nil
}

// ChunkID builds the composite chunk identifier for position n (1-based).
func ChunkID(fileID string, n int) string {
	return fmt.Sprintf("%s#chunk_%d", fileID, n)
}

// Search embeds the query, fetches a fetchK-sized candidate pool (optionally
// filtered by file id) and re-ranks it with maximal marginal relevance down
// to k records.
func (ix *Index) Search(ctx context.Context, query string, k, fetchK int, fileID string) ([]model.VectorRecord, error) {
	queryVector, err := ix.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	knn := map[string]interface{}{
		"field":          "vector",
		"query_vector":   queryVector,
		"k":              fetchK,
		"num_candidates": fetchK * 4,
	}
	if fileID != "" {
		knn["filter"] = map[string]interface{}{
			"term": map[string]interface{}{"file_id": fileID},
		}
	}
	body := map[string]interface{}{
		"knn":  knn,
		"size": fetchK,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode search body: %w", err)
	}

	res, err := ix.client.Search(
		ix.client.Search.WithContext(ctx),
		ix.client.Search.WithIndex(ix.name),
		ix.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source esDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	candidates := make([]esDocument, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		candidates = append(candidates, hit.Source)
	}

	selected := maximalMarginalRelevance(queryVector, candidates, k, mmrLambda)

	records := make([]model.VectorRecord, 0, len(selected))
	for _, doc := range selected {
		records = append(records, model.VectorRecord{
			ID:     doc.VectorID,
			Vector: doc.Vector,
			Text:   doc.TextContent,
			Metadata: model.Metadata{
				FileID:     doc.FileID,
				FileName:   doc.FileName,
				Page:       doc.Page,
				Row:        doc.Row,
				Column:     doc.Column,
				Sheet:      doc.Sheet,
				ChunkIndex: doc.ChunkIndex,
			},
		})
	}
	return records, nil
}

// ListIDsByPrefix returns every vector id starting with the given prefix.
func (ix *Index) ListIDsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"prefix": map[string]interface{}{
				"vector_id": map[string]interface{}{"value": prefix},
			},
		},
		"size":    10000,
		"_source": false,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := ix.client.Search(
		ix.client.Search.WithContext(ctx),
		ix.client.Search.WithIndex(ix.name),
		ix.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list vector ids: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		// A fresh deployment may not have the index yet; treat it as empty.
		if res.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("elasticsearch returned an error listing ids: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode id listing: %w", err)
	}

	ids := make([]string, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// DeleteByIDs bulk-deletes the given vector ids. The bulk call is idempotent,
// so transient failures are retried a bounded number of times.
func (ix *Index) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var body bytes.Buffer
	for _, id := range ids {
		action := map[string]interface{}{"delete": map[string]interface{}{"_id": id}}
		line, err := json.Marshal(action)
		if err != nil {
			return err
		}
		body.Write(line)
		body.WriteByte('\n')
	}
	payload := body.Bytes()

	var lastErr error
	for attempt := 1; attempt <= deleteAttempts; attempt++ {
		lastErr = ix.bulkDelete(ctx, payload)
		if lastErr == nil {
			return nil
		}
		log.Warnf("bulk delete attempt %d/%d failed: %v", attempt, deleteAttempts, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
		}
	}
	return fmt.Errorf("bulk delete failed after %d attempts: %w", deleteAttempts, lastErr)
}

func (ix *Index) bulkDelete(ctx context.Context, payload []byte) error {
	res, err := ix.client.Bulk(
		bytes.NewReader(payload),
		ix.client.Bulk.WithContext(ctx),
		ix.client.Bulk.WithIndex(ix.name),
		ix.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.New(res.String())
	}

	var bulkResponse struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResponse); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResponse.Errors {
		failed := 0
		for _, item := range bulkResponse.Items {
			for _, result := range item {
				// 404 means already gone, which is the desired end state.
				if result.Status >= 400 && result.Status != http.StatusNotFound {
					failed++
				}
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d deletes failed in bulk request", failed)
		}
	}
	return nil
}

// DeleteByFile removes every vector whose id starts with fileId + "#".
// A file with no stored vectors is a no-op.
func (ix *Index) DeleteByFile(ctx context.Context, fileID string) error {
	ids, err := ix.ListIDsByPrefix(ctx, fileID+"#")
	if err != nil {
		return fmt.Errorf("failed to list vectors of file %s: %w", fileID, err)
	}
	if len(ids) == 0 {
		return nil
	}
	log.Infof("deleting %d vectors of file %s", len(ids), fileID)
	return ix.DeleteByIDs(ctx, ids)
}

// CountByFile returns the number of stored vectors carrying the given file id.
func (ix *Index) CountByFile(ctx context.Context, fileID string) (int, error) {
	body := fmt.Sprintf(`{"query":{"term":{"file_id":%q}}}`, fileID)
	res, err := ix.client.Count(
		ix.client.Count.WithContext(ctx),
		ix.client.Count.WithIndex(ix.name),
		ix.client.Count.WithBody(strings.NewReader(body)),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, errors.New(res.String())
	}

	var countResponse struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResponse); err != nil {
		return 0, err
	}
	return countResponse.Count, nil
}

// AwaitSearchable polls the index until at least want chunks of the file are
// visible to search, backing off between probes. On timeout it logs the stale
// window and returns without error so the upload still completes.
func (ix *Index) AwaitSearchable(ctx context.Context, fileID string, want int) error {
	backoff := 200 * time.Millisecond
	for probe := 0; probe < readinessProbes; probe++ {
		count, err := ix.CountByFile(ctx, fileID)
		if err == nil && count >= want {
			return nil
		}
		if err != nil {
			log.Warnf("readiness probe for file %s failed: %v", fileID, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	log.Warnf("file %s still not fully searchable after readiness window; queries may briefly see stale results", fileID)
	return nil
}
