package whisper

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	"github.com/meilisearch/meilisearch-go"
)

type meilisearchTarget struct {
	client *meilisearch.Client
	index  *meilisearch.Index
	logger *slog.Logger
}

func (w *Whisperer) initMeilisearch() {
	target, err := newMeilisearchTarget(context.Background(), w.opts.Meilisearch, w.loggerOrDefault())
	if err != nil {
		w.loggerOrDefault().Warn("Failed to initialize Meilisearch", "error", err)
		return
	}
	if target == nil {
		return
	}
	w.RegisterSyncTarget(target)
}

func newMeilisearchTarget(ctx context.Context, cfg MeilisearchConfig, logger *slog.Logger) (SyncTarget, error) {
	host := strings.TrimSpace(cfg.Host)
	indexName := strings.TrimSpace(cfg.Index)
	if indexName == "" {
		return nil, nil
	}
	if host == "" {
		host = "http://localhost:7700"
	}

	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: strings.TrimSpace(cfg.APIKey),
	})
	index := client.Index(indexName)

	t := &meilisearchTarget{client: client, index: index, logger: logger}
	if err := t.ensureIndex(ctx, indexName); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *meilisearchTarget) ensureIndex(ctx context.Context, indexName string) error {
	_, err := t.client.GetIndex(indexName)
	if err != nil {
		var meiliErr *meilisearch.Error
		if errors.As(err, &meiliErr) && meiliErr.MeilisearchApiError.Code == "index_not_found" {
			task, createErr := t.client.CreateIndex(&meilisearch.IndexConfig{Uid: indexName})
			if createErr != nil {
				return createErr
			}
			if err := t.waitForTask(ctx, task); err != nil {
				return err
			}
		} else {
			return err
		}
	}

	desiredSearchable := []string{"name", "path", "title", "artist", "album"}
	if err := t.ensureSearchableAttributes(ctx, desiredSearchable); err != nil {
		return err
	}

	desiredFilterable := []string{"kind", "mime_type"}
	if err := t.ensureFilterableAttributes(ctx, desiredFilterable); err != nil {
		return err
	}

	return nil
}

func (t *meilisearchTarget) ensureSearchableAttributes(ctx context.Context, desired []string) error {
	currentPtr, err := t.index.GetSearchableAttributes()
	if err != nil {
		return err
	}
	if stringSlicesEqual(derefSlice(currentPtr), desired) {
		return nil
	}
	task, err := t.index.UpdateSearchableAttributes(&desired)
	if err != nil {
		return err
	}
	return t.waitForTask(ctx, task)
}

func (t *meilisearchTarget) ensureFilterableAttributes(ctx context.Context, desired []string) error {
	currentPtr, err := t.index.GetFilterableAttributes()
	if err != nil {
		return err
	}
	if stringSlicesEqual(derefSlice(currentPtr), desired) {
		return nil
	}
	task, err := t.index.UpdateFilterableAttributes(&desired)
	if err != nil {
		return err
	}
	return t.waitForTask(ctx, task)
}

func (t *meilisearchTarget) waitForTask(ctx context.Context, task *meilisearch.TaskInfo) error {
	if task == nil || task.TaskUID == 0 {
		return nil
	}
	_, err := t.client.WaitForTask(task.TaskUID, meilisearch.WaitParams{Context: ctx})
	return err
}

// ApplyRecordChanges satisfies the SyncTarget interface.
func (t *meilisearchTarget) ApplyRecordChanges(ctx context.Context, changes RecordChangeSet) error {
	if changes.IsEmpty() {
		return nil
	}

	if len(changes.Upserts) > 0 {
		docs := makeMeiliDocuments(changes.Upserts)
		task, err := t.index.AddDocuments(docs)
		if err != nil {
			return err
		}
		if err := t.waitForTask(ctx, task); err != nil {
			return err
		}
	}

	if len(changes.Deletions) > 0 {
		ids := make([]string, 0, len(changes.Deletions))
		for _, path := range changes.Deletions {
			ids = append(ids, fileDocumentID(path))
		}
		task, err := t.index.DeleteDocuments(ids)
		if err != nil {
			return err
		}
		if err := t.waitForTask(ctx, task); err != nil {
			return err
		}
	}

	return nil
}

func makeMeiliDocuments(records []FileRecord) []meiliFileDocument {
	docs := make([]meiliFileDocument, 0, len(records))
	for _, record := range records {
		docs = append(docs, meiliFileDocument{
			ID:     fileDocumentID(record.Path),
			Path:   record.Path,
			Name:   record.Name,
			Kind:   string(record.Kind),
			Size:   record.Size,
			MIME:   record.MIME,
			Title:  record.Metadata[TagTitle],
			Artist: record.Metadata[TagArtist],
			Album:  record.Metadata[TagAlbum],
			Date:   record.Metadata[TagDate],
		})
	}
	return docs
}

// fileDocumentID derives a Meilisearch-safe document id from a relative path.
func fileDocumentID(path string) string {
	sum := md5.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}

func derefSlice(ptr *[]string) []string {
	if ptr == nil {
		return nil
	}
	return *ptr
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// meiliFileDocument represents a file record stored in Meilisearch.
type meiliFileDocument struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Size   int64  `json:"size"`
	MIME   string `json:"mime_type"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Date   string `json:"date,omitempty"`
}
