package client

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/feichai0017/rag-tuner/internal/models"
)

// ResourceList manages the document list: fetching with filters,
// single selection, deletion and upload. Selection changes are
// announced to subscribers so stage controllers can switch over.
type ResourceList struct {
	client *Client

	mu       sync.Mutex
	items    []models.Document
	total    int
	search   string
	status   string
	selected int64
	onSelect []func(id int64)
}

func NewResourceList(c *Client) *ResourceList {
	return &ResourceList{client: c}
}

// OnSelect registers a callback fired on every selection change.
// The id is 0 when the selection is cleared.
func (rl *ResourceList) OnSelect(fn func(id int64)) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.onSelect = append(rl.onSelect, fn)
}

// Fetch reloads the list with the current filter.
func (rl *ResourceList) Fetch(ctx context.Context) error {
	rl.mu.Lock()
	query := url.Values{}
	if rl.search != "" {
		query.Set("search", rl.search)
	}
	if rl.status != "" {
		query.Set("status", rl.status)
	}
	rl.mu.Unlock()

	path := "/documents"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp struct {
		Items []models.Document `json:"items"`
		Total int               `json:"total"`
	}
	if err := rl.client.Get(ctx, path, &resp); err != nil {
		return err
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.items = resp.Items
	rl.total = resp.Total

	// drop the selection if it no longer exists
	if rl.selected != 0 && rl.find(rl.selected) == nil {
		rl.selected = 0
		rl.notify(0)
	}
	return nil
}

// Filter sets the search keyword and status filter, then refetches.
func (rl *ResourceList) Filter(ctx context.Context, search, status string) error {
	rl.mu.Lock()
	rl.search = search
	rl.status = status
	rl.mu.Unlock()
	return rl.Fetch(ctx)
}

// Items returns the current page of documents.
func (rl *ResourceList) Items() []models.Document {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	out := make([]models.Document, len(rl.items))
	copy(out, rl.items)
	return out
}

// Selected returns the selected document id, 0 when none.
func (rl *ResourceList) Selected() int64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.selected
}

// Select marks one document as the active resource.
func (rl *ResourceList) Select(id int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.find(id) == nil {
		return &APIError{Message: fmt.Sprintf("document %d is not in the list", id)}
	}
	if rl.selected == id {
		return nil
	}
	rl.selected = id
	rl.notify(id)
	return nil
}

// Delete removes the document optimistically, then syncs with the
// server. A failed delete refetches to restore the true state.
func (rl *ResourceList) Delete(ctx context.Context, id int64) error {
	rl.mu.Lock()
	kept := rl.items[:0]
	for _, d := range rl.items {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	rl.items = kept
	if rl.selected == id {
		rl.selected = 0
		rl.notify(0)
	}
	rl.mu.Unlock()

	if err := rl.client.Delete(ctx, fmt.Sprintf("/documents/%d", id)); err != nil {
		_ = rl.Fetch(ctx)
		return err
	}
	return rl.Fetch(ctx)
}

// Upload sends a new file, refreshes the list and selects the new
// document.
func (rl *ResourceList) Upload(ctx context.Context, filename string, content io.Reader) (*models.Document, error) {
	var doc models.Document
	if err := rl.client.Upload(ctx, "/documents/upload", filename, content, &doc); err != nil {
		return nil, err
	}
	if err := rl.Fetch(ctx); err != nil {
		return &doc, err
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.selected = doc.ID
	rl.notify(doc.ID)
	return &doc, nil
}

// find and notify must be called with the mutex held.
func (rl *ResourceList) find(id int64) *models.Document {
	for i := range rl.items {
		if rl.items[i].ID == id {
			return &rl.items[i]
		}
	}
	return nil
}

func (rl *ResourceList) notify(id int64) {
	for _, fn := range rl.onSelect {
		fn(id)
	}
}
