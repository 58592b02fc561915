package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sselimkoc/feedTune-sub004/internal/domain"
)

// ErrNotFound is returned when a row is absent or not owned by the caller.
var ErrNotFound = errors.New("not found")

func (d *Database) CreateUser(ctx context.Context, apiToken string) (int64, error) {
	apiToken = strings.TrimSpace(apiToken)
	if apiToken == "" {
		return 0, errors.New("api token is empty")
	}

	query := "insert into users (api_token) values (?)"

	res, err := d.db.ExecContext(ctx, query, apiToken)
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}

	return res.LastInsertId()
}

func (d *Database) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, "select count(*) from users").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}

	return count, nil
}

func (d *Database) GetUserByToken(ctx context.Context, apiToken string) (*domain.User, error) {
	apiToken = strings.TrimSpace(apiToken)
	if apiToken == "" {
		return nil, ErrNotFound
	}

	query := `select id, api_token, telegram_chat_id, created_at
	from users
	where api_token = ?`

	var u domain.User
	var chatID sql.NullInt64

	err := d.db.QueryRowContext(ctx, query, apiToken).
		Scan(&u.ID, &u.APIToken, &chatID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	if chatID.Valid {
		u.TelegramChatID = &chatID.Int64
	}

	return &u, nil
}

func (d *Database) GetUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	query := `select id, api_token, telegram_chat_id, created_at
	from users
	where id = ?`

	var u domain.User
	var chatID sql.NullInt64

	err := d.db.QueryRowContext(ctx, query, userID).
		Scan(&u.ID, &u.APIToken, &chatID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	if chatID.Valid {
		u.TelegramChatID = &chatID.Int64
	}

	return &u, nil
}

func (d *Database) AddFeed(ctx context.Context, feed *domain.Feed) (int64, error) {
	feed.URL = strings.TrimSpace(feed.URL)
	if feed.URL == "" {
		return 0, errors.New("feed URL is empty")
	}

	feed.Title = strings.TrimSpace(feed.Title)
	if feed.Title == "" {
		feed.Title = feed.URL
	}

	query := `insert into feeds (user_id, type, url, channel_id, title, description, image_url)
	values (?, ?, ?, ?, ?, ?, ?)`

	res, err := d.db.ExecContext(ctx, query,
		feed.UserID,
		string(feed.Type),
		feed.URL,
		feed.ChannelID,
		feed.Title,
		feed.Description,
		feed.ImageURL)
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}

	return res.LastInsertId()
}

func (d *Database) HasActiveFeed(ctx context.Context, userID int64, feedURL string) (bool, error) {
	query := `select count(*)
	from feeds
	where user_id = ? and url = ? and deleted_at is null`

	var count int64
	if err := d.db.QueryRowContext(ctx, query, userID, strings.TrimSpace(feedURL)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to execute query: %w", err)
	}

	return count > 0, nil
}

const feedColumns = `id, user_id, type, url, channel_id, title, description,
	image_url, is_active, deleted_at, created_at`

func (d *Database) scanFeed(row interface{ Scan(...any) error }) (*domain.Feed, error) {
	var f domain.Feed
	var feedType string
	var deletedAt sql.NullTime

	err := row.Scan(
		&f.ID,
		&f.UserID,
		&feedType,
		&f.URL,
		&f.ChannelID,
		&f.Title,
		&f.Description,
		&f.ImageURL,
		&f.IsActive,
		&deletedAt,
		&f.CreatedAt)
	if err != nil {
		return nil, err
	}

	f.Type = domain.FeedType(feedType)
	if deletedAt.Valid {
		f.DeletedAt = &deletedAt.Time
	}

	return &f, nil
}

func (d *Database) GetFeedByID(ctx context.Context, feedID int64, userID int64) (*domain.Feed, error) {
	query := "select " + feedColumns + `
	from feeds
	where id = ? and user_id = ? and deleted_at is null`

	f, err := d.scanFeed(d.db.QueryRowContext(ctx, query, feedID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	return f, nil
}

func (d *Database) GetUserFeeds(ctx context.Context, userID int64) ([]domain.Feed, error) {
	query := "select " + feedColumns + `
	from feeds
	where user_id = ? and deleted_at is null
	order by created_at desc`

	return d.queryFeeds(ctx, query, userID)
}

// GetActiveFeeds returns every non-deleted active feed across all users, for
// scheduled refresh passes.
func (d *Database) GetActiveFeeds(ctx context.Context) ([]domain.Feed, error) {
	query := "select " + feedColumns + `
	from feeds
	where is_active = 1 and deleted_at is null`

	return d.queryFeeds(ctx, query)
}

func (d *Database) queryFeeds(ctx context.Context, query string, args ...any) ([]domain.Feed, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"operation", "queryFeeds")
		}
	}()

	var feeds []domain.Feed
	for rows.Next() {
		f, scanErr := d.scanFeed(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan row: %w", scanErr)
		}

		f.URL = strings.TrimSpace(f.URL)
		f.Title = strings.TrimSpace(f.Title)

		feeds = append(feeds, *f)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return feeds, nil
}

func (d *Database) UpdateFeedMeta(
	ctx context.Context,
	feedID int64,
	title string,
	description string,
	imageURL string,
) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("feed title is empty")
	}

	query := "update feeds set title = ?, description = ?, image_url = ? where id = ?"

	_, err := d.db.ExecContext(ctx, query, title, description, imageURL, feedID)

	return err
}

func (d *Database) SoftDeleteFeed(ctx context.Context, feedID int64, userID int64) error {
	query := `update feeds
	set deleted_at = current_timestamp, is_active = 0
	where id = ? and user_id = ? and deleted_at is null`

	res, err := d.db.ExecContext(ctx, query, feedID, userID)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to fetch affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetFeedItemLinks returns the set of links already stored for a feed. The
// dedup gate uses it as a fast-path snapshot; the unique index on
// (feed_id, link) remains the real uniqueness guarantee.
func (d *Database) GetFeedItemLinks(ctx context.Context, feedID int64) (map[string]struct{}, error) {
	query := "select link from feed_items where feed_id = ?"

	rows, err := d.db.QueryContext(ctx, query, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"feedID", feedID,
				"operation", "GetFeedItemLinks")
		}
	}()

	links := make(map[string]struct{})
	for rows.Next() {
		var link string
		if err = rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		links[link] = struct{}{}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return links, nil
}

// InsertItems stores candidate items for a feed and returns how many were
// actually new. Inserts use "insert or ignore" against the (feed_id, link)
// unique index so a concurrent refresh of the same feed cannot duplicate
// rows; ignored duplicates simply do not count.
func (d *Database) InsertItems(
	ctx context.Context,
	feedID int64,
	items []domain.NormalizedItem,
) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `insert or ignore into feed_items
	(feed_id, title, link, description, published_at, published_inferred, thumbnail_url, item_type)
	values (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			d.log.ErrorContext(ctx, "Failed to close statement",
				"error", closeErr,
				"feedID", feedID,
				"operation", "InsertItems")
		}
	}()

	var newCount int64
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		res, execErr := stmt.ExecContext(ctx,
			feedID,
			item.Title,
			link,
			item.Description,
			item.PublishedAt.UTC(),
			item.PublishedInferred,
			item.Thumbnail,
			string(item.SourceType))
		if execErr != nil {
			return 0, fmt.Errorf("failed to execute statement: %w", execErr)
		}

		affected, affErr := res.RowsAffected()
		if affErr != nil {
			return 0, fmt.Errorf("failed to fetch affected rows: %w", affErr)
		}

		newCount += affected
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tx: %w", err)
	}

	return newCount, nil
}

// ItemFilter narrows item listings. Nil pointer fields are not applied.
type ItemFilter struct {
	FeedID    *int64
	Unread    *bool
	Favorite  *bool
	ReadLater *bool
	Limit     int64
}

const defaultItemLimit = 100

func (d *Database) GetItemsWithState(
	ctx context.Context,
	userID int64,
	filter ItemFilter,
) ([]domain.ItemWithState, error) {
	query := `select i.id, i.feed_id, i.title, i.link, i.description,
		i.published_at, i.published_inferred, i.thumbnail_url, i.item_type, i.created_at,
		coalesce(x.is_read, 0), coalesce(x.is_favorite, 0), coalesce(x.is_read_later, 0)
	from feed_items as i
	join feeds as f on f.id = i.feed_id
	left join interactions as x on x.item_id = i.id and x.user_id = ?
	where f.user_id = ? and f.deleted_at is null`

	args := []any{userID, userID}

	if filter.FeedID != nil {
		query += " and i.feed_id = ?"
		args = append(args, *filter.FeedID)
	}
	if filter.Unread != nil {
		if *filter.Unread {
			query += " and coalesce(x.is_read, 0) = 0"
		} else {
			query += " and coalesce(x.is_read, 0) = 1"
		}
	}
	if filter.Favorite != nil {
		query += " and coalesce(x.is_favorite, 0) = ?"
		args = append(args, *filter.Favorite)
	}
	if filter.ReadLater != nil {
		query += " and coalesce(x.is_read_later, 0) = ?"
		args = append(args, *filter.ReadLater)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultItemLimit
	}
	query += " order by i.published_at desc limit ?"
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"userID", userID,
				"operation", "GetItemsWithState")
		}
	}()

	var items []domain.ItemWithState
	for rows.Next() {
		var it domain.ItemWithState
		var itemType string
		var publishedAt time.Time

		if err = rows.Scan(
			&it.ID,
			&it.FeedID,
			&it.Title,
			&it.Link,
			&it.Description,
			&publishedAt,
			&it.PublishedInferred,
			&it.ThumbnailURL,
			&itemType,
			&it.CreatedAt,
			&it.IsRead,
			&it.IsFavorite,
			&it.IsReadLater); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		it.PublishedAt = publishedAt
		it.ItemType = domain.FeedType(itemType)
		items = append(items, it)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return items, nil
}

// OwnsItem reports whether the item belongs to one of the user's feeds.
func (d *Database) OwnsItem(ctx context.Context, userID int64, itemID int64) (bool, error) {
	query := `select count(*)
	from feed_items as i
	join feeds as f on f.id = i.feed_id
	where i.id = ? and f.user_id = ? and f.deleted_at is null`

	var count int64
	if err := d.db.QueryRowContext(ctx, query, itemID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to execute query: %w", err)
	}

	return count > 0, nil
}

// InteractionPatch is a partial interaction update; nil fields keep their
// stored value (or the zero default when the row is created lazily).
type InteractionPatch struct {
	IsRead      *bool
	IsFavorite  *bool
	IsReadLater *bool
}

func (d *Database) UpsertInteraction(
	ctx context.Context,
	userID int64,
	itemID int64,
	patch InteractionPatch,
) error {
	query := `insert into interactions (user_id, item_id, is_read, is_favorite, is_read_later)
	values (?1, ?2, coalesce(?3, 0), coalesce(?4, 0), coalesce(?5, 0))
	on conflict (user_id, item_id) do update
	set is_read = coalesce(?3, is_read),
		is_favorite = coalesce(?4, is_favorite),
		is_read_later = coalesce(?5, is_read_later)`

	_, err := d.db.ExecContext(ctx, query,
		userID,
		itemID,
		nullableBool(patch.IsRead),
		nullableBool(patch.IsFavorite),
		nullableBool(patch.IsReadLater))

	return err
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}

	return *b
}
