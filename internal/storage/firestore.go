// Package storage persists categories and news items in Cloud Firestore.
// Documents live under users/{userID}/categories/{categoryID}, with news
// items in a nested news subcollection.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("storage: not found")

// Summary is one generated digest section attached to a news item.
type Summary struct {
	Source  string `firestore:"source" json:"source"`
	Summary string `firestore:"summary" json:"summary"`
	URL     string `firestore:"url" json:"url"`
}

// NewsItem is the persisted shape of an enriched article.
type NewsItem struct {
	ID                  string    `firestore:"articleId" json:"articleId"`
	MainTitle           string    `firestore:"mainTitle" json:"mainTitle"`
	MainSource          string    `firestore:"mainSource" json:"mainSource"`
	MainURL             string    `firestore:"mainUrl" json:"mainUrl"`
	ImageURL            string    `firestore:"imageUrl" json:"imageUrl"`
	PublishedAt         time.Time `firestore:"publishedAt,serverTimestamp" json:"publishedAt"`
	Summaries           []Summary `firestore:"summaries" json:"summaries"`
	Keywords            []string  `firestore:"keywords" json:"keywords"`
	IsRealNews          bool      `firestore:"isRealNews" json:"isRealNews"`
	HasRealImage        bool      `firestore:"hasRealImage" json:"hasRealImage"`
	ImageSource         string    `firestore:"imageSource" json:"imageSource"`
	ImageRelevance      string    `firestore:"imageRelevance" json:"imageRelevance"`
	EnhancedByGemini    bool      `firestore:"enhancedByGemini" json:"enhancedByGemini"`
	OriginalDescription string    `firestore:"originalDescription" json:"originalDescription"`
}

// Category groups news items under a user-supplied prompt.
type Category struct {
	ID        string    `firestore:"-" json:"id"`
	Name      string    `firestore:"name" json:"name"`
	Prompt    string    `firestore:"prompt" json:"prompt"`
	Keywords  []string  `firestore:"keywords" json:"keywords"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp" json:"createdAt"`
}

// Client wraps the Firestore SDK with the document layout used here.
type Client struct {
	fs *firestore.Client
}

// NewClient connects to Firestore. credentialsFile may be empty, in which
// case application default credentials apply.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	fs, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: connect firestore: %w", err)
	}
	slog.Info("connected to firestore", "project", projectID)
	return &Client{fs: fs}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) categories(userID string) *firestore.CollectionRef {
	return c.fs.Collection("users").Doc(userID).Collection("categories")
}

func (c *Client) newsCollection(userID, categoryID string) *firestore.CollectionRef {
	return c.categories(userID).Doc(categoryID).Collection("news_items")
}

// CreateCategory stores a new category and returns it with the generated ID.
func (c *Client) CreateCategory(ctx context.Context, userID string, cat Category) (Category, error) {
	ref := c.categories(userID).NewDoc()
	cat.ID = ref.ID
	if _, err := ref.Set(ctx, cat); err != nil {
		return Category{}, fmt.Errorf("storage: create category: %w", err)
	}
	return cat, nil
}

// GetCategory loads one category, ErrNotFound when it does not exist.
func (c *Client) GetCategory(ctx context.Context, userID, categoryID string) (Category, error) {
	snap, err := c.categories(userID).Doc(categoryID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("storage: get category: %w", err)
	}
	var cat Category
	if err := snap.DataTo(&cat); err != nil {
		return Category{}, fmt.Errorf("storage: decode category: %w", err)
	}
	cat.ID = snap.Ref.ID
	return cat, nil
}

// ListCategories returns all of a user's categories.
func (c *Client) ListCategories(ctx context.Context, userID string) ([]Category, error) {
	iter := c.categories(userID).Documents(ctx)
	defer iter.Stop()

	var out []Category
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: list categories: %w", err)
		}
		var cat Category
		if err := snap.DataTo(&cat); err != nil {
			slog.Warn("skipping malformed category document", "id", snap.Ref.ID, "error", err)
			continue
		}
		cat.ID = snap.Ref.ID
		out = append(out, cat)
	}
	return out, nil
}

// UpdateCategoryKeywords overwrites the stored keyword list.
func (c *Client) UpdateCategoryKeywords(ctx context.Context, userID, categoryID string, keywords []string) error {
	_, err := c.categories(userID).Doc(categoryID).Update(ctx, []firestore.Update{
		{Path: "keywords", Value: keywords},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("storage: update keywords: %w", err)
	}
	return nil
}

// DeleteCategory removes a category and its news subcollection, returning
// the number of news documents removed with it.
func (c *Client) DeleteCategory(ctx context.Context, userID, categoryID string) (int, error) {
	if _, err := c.categories(userID).Doc(categoryID).Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("storage: load category for delete: %w", err)
	}

	deleted, err := c.ClearNewsItems(ctx, userID, categoryID)
	if err != nil {
		return deleted, err
	}
	if _, err := c.categories(userID).Doc(categoryID).Delete(ctx); err != nil {
		return deleted, fmt.Errorf("storage: delete category: %w", err)
	}
	return deleted, nil
}

// SaveNewsItem writes one news item under the category.
func (c *Client) SaveNewsItem(ctx context.Context, userID, categoryID string, item NewsItem) error {
	_, err := c.newsCollection(userID, categoryID).Doc(item.ID).Set(ctx, item)
	if err != nil {
		return fmt.Errorf("storage: save news item: %w", err)
	}
	return nil
}

// ListNewsItems returns the category's news, newest first.
func (c *Client) ListNewsItems(ctx context.Context, userID, categoryID string) ([]NewsItem, error) {
	iter := c.newsCollection(userID, categoryID).
		OrderBy("publishedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var out []NewsItem
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: list news items: %w", err)
		}
		var item NewsItem
		if err := snap.DataTo(&item); err != nil {
			slog.Warn("skipping malformed news document", "id", snap.Ref.ID, "error", err)
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// ClearNewsItems deletes every news document in the category and returns
// how many were removed.
func (c *Client) ClearNewsItems(ctx context.Context, userID, categoryID string) (int, error) {
	iter := c.newsCollection(userID, categoryID).Documents(ctx)
	defer iter.Stop()

	deleted := 0
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("storage: clear news items: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return deleted, fmt.Errorf("storage: delete news item %s: %w", snap.Ref.ID, err)
		}
		deleted++
	}
	return deleted, nil
}
