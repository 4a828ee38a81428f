// Package pipeline drives the ordered fan-out of one canonical message:
// persist, classify, index, notify. Each step is isolated so a collaborator
// failure never loses the stored message or blocks other messages.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leadbox/leadbox/internal/classify"
	"github.com/leadbox/leadbox/internal/db"
	"github.com/leadbox/leadbox/internal/metrics"
	"github.com/leadbox/leadbox/internal/models"
)

// MessageStore is the durable storage the pipeline reads and writes.
// FindMessage returns db.ErrMessageNotFound when absent; InsertMessage
// returns db.ErrDuplicateMessage on an identity conflict.
type MessageStore interface {
	FindMessage(ctx context.Context, accountID, messageID string) (*models.Message, error)
	InsertMessage(ctx context.Context, message *models.Message) error
	UpdateMessageCategory(ctx context.Context, id, category string, confidence float64) error
}

// Classifier categorizes an email by subject and body within a bounded time.
type Classifier interface {
	Classify(ctx context.Context, subject, body string) (*classify.Result, error)
}

// Indexer submits messages to the full-text search index.
type Indexer interface {
	Upsert(ctx context.Context, messageID string, msg *models.Message) error
}

// Notifier delivers interest notifications for positively classified messages.
type Notifier interface {
	NotifyInterest(ctx context.Context, msg *models.Message) error
}

// Pipeline fans a normalized message out to storage, classification,
// indexing, and notification.
type Pipeline struct {
	store      MessageStore
	classifier Classifier
	indexer    Indexer
	notifier   Notifier
	logger     *zap.Logger
}

// NewPipeline wires the fan-out steps together.
func NewPipeline(store MessageStore, classifier Classifier, indexer Indexer, notifier Notifier, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		classifier: classifier,
		indexer:    indexer,
		notifier:   notifier,
		logger:     logger,
	}
}

// Process ingests one normalized message. It is idempotent: a message whose
// (account id, message id) identity has already been ingested is skipped
// without error, whether the dedup check or the insert itself detects the
// duplicate. Only a storage failure on the insert step is returned; every
// later step absorbs its own failures.
func (p *Pipeline) Process(ctx context.Context, msg *models.Message) error {
	// Dedup gate. The check-then-insert is not atomic against a racing
	// trigger, so the insert below must also tolerate a duplicate.
	_, err := p.store.FindMessage(ctx, msg.AccountID, msg.MessageID)
	if err == nil {
		metrics.MessagesDuplicate.Inc()
		p.logger.Debug("message already ingested",
			zap.String("account_id", msg.AccountID),
			zap.String("message_id", msg.MessageID),
		)
		return nil
	}
	if !errors.Is(err, db.ErrMessageNotFound) {
		return fmt.Errorf("dedup check failed: %w", err)
	}

	// Step 1: persist. This is the only step whose failure aborts the chain.
	if err := p.store.InsertMessage(ctx, msg); err != nil {
		if errors.Is(err, db.ErrDuplicateMessage) {
			metrics.MessagesDuplicate.Inc()
			p.logger.Debug("lost insert race, message already ingested",
				zap.String("account_id", msg.AccountID),
				zap.String("message_id", msg.MessageID),
			)
			return nil
		}
		return fmt.Errorf("failed to persist message: %w", err)
	}

	metrics.MessagesIngested.Inc()
	p.logger.Info("ingested message",
		zap.String("account_id", msg.AccountID),
		zap.String("message_id", msg.MessageID),
		zap.String("subject", msg.Subject),
	)

	// Step 2+3: classify, then attach the result to the stored record.
	result, err := p.classifier.Classify(ctx, msg.Subject, msg.BodyText)
	if err != nil {
		metrics.PipelineStepFailures.WithLabelValues("classify").Inc()
		p.logger.Warn("classification failed, leaving category unset",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	} else {
		if err := p.store.UpdateMessageCategory(ctx, msg.ID, result.Category, result.Confidence); err != nil {
			metrics.PipelineStepFailures.WithLabelValues("update_category").Inc()
			p.logger.Warn("failed to store category",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		} else {
			msg.Category = &result.Category
			msg.CategoryConfidence = &result.Confidence
		}
	}

	// Step 4: search indexing, never rolls back the stored message.
	if err := p.indexer.Upsert(ctx, msg.ID, msg); err != nil {
		metrics.PipelineStepFailures.WithLabelValues("index").Inc()
		p.logger.Warn("failed to index message",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}

	// Step 5: interest notification.
	if msg.Category != nil && *msg.Category == models.CategoryInterested {
		if err := p.notifier.NotifyInterest(ctx, msg); err != nil {
			metrics.PipelineStepFailures.WithLabelValues("notify").Inc()
			p.logger.Warn("failed to notify",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}
