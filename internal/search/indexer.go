// Package search indexes canonical messages into Elasticsearch. Indexing is
// best-effort: a failure here never rolls back ingestion.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/leadbox/leadbox/internal/models"
)

const indexName = "emails"

// Indexer is a thin client for the Elasticsearch document API.
type Indexer struct {
	node       string
	httpClient *http.Client
}

// NewIndexer creates an indexer for the given Elasticsearch node URL.
func NewIndexer(node string) *Indexer {
	return &Indexer{
		node: node,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// document is the indexed shape of a message.
type document struct {
	AccountID   string    `json:"account_id"`
	MessageID   string    `json:"message_id"`
	UID         int64     `json:"uid"`
	Subject     string    `json:"subject"`
	FromAddress string    `json:"from_address"`
	FromName    string    `json:"from_name"`
	Folder      string    `json:"folder"`
	BodyText    string    `json:"body_text"`
	BodyHTML    string    `json:"body_html"`
	Category    *string   `json:"category"`
	ReceivedAt  time.Time `json:"received_at"`
	IsRead      bool      `json:"is_read"`
	IndexedAt   time.Time `json:"indexed_at"`
}

const indexMapping = `{
	"mappings": {
		"properties": {
			"account_id":   {"type": "keyword"},
			"message_id":   {"type": "keyword"},
			"uid":          {"type": "keyword"},
			"subject":      {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"from_address": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"from_name":    {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"folder":       {"type": "keyword"},
			"body_text":    {"type": "text"},
			"body_html":    {"type": "text"},
			"category":     {"type": "keyword"},
			"received_at":  {"type": "date"},
			"is_read":      {"type": "boolean"},
			"indexed_at":   {"type": "date"}
		}
	}
}`

// EnsureIndex creates the emails index with its mapping if it does not exist yet.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, i.indexURL(""), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodPut, i.indexURL(""), bytes.NewReader([]byte(indexMapping)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to create index: status %d: %s", resp.StatusCode, body)
	}

	return nil
}

// Upsert indexes (or re-indexes) one message document under its storage id.
func (i *Indexer) Upsert(ctx context.Context, messageID string, msg *models.Message) error {
	doc := document{
		AccountID:   msg.AccountID,
		MessageID:   msg.MessageID,
		UID:         msg.UID,
		Subject:     msg.Subject,
		FromAddress: msg.FromAddress,
		FromName:    msg.FromName,
		Folder:      msg.Folder,
		BodyText:    msg.BodyText,
		BodyHTML:    msg.BodyHTML,
		Category:    msg.Category,
		ReceivedAt:  msg.ReceivedAt,
		IsRead:      msg.IsRead,
		IndexedAt:   time.Now(),
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, i.indexURL("_doc/"+url.PathEscape(messageID)), bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to index message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to index message: status %d: %s", resp.StatusCode, body)
	}

	return nil
}

// Delete removes one message document from the index. Not used during
// ingestion, but kept for symmetry with Upsert so external deletion flows can
// keep the index consistent.
func (i *Indexer) Delete(ctx context.Context, messageID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, i.indexURL("_doc/"+url.PathEscape(messageID)), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to delete message: status %d: %s", resp.StatusCode, body)
	}

	return nil
}

func (i *Indexer) indexURL(suffix string) string {
	u := i.node + "/" + indexName
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}
