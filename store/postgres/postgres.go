/*
Package postgres provides a PostgreSQL implementation of forum.TxStore on gorm.

PURPOSE:
  Production store for deployments that outgrow a single SQLite file.
  Same contract as store/sqlite, expressed through gorm models and clauses.

LOCKING AND CONFLICTS:
  - GetUserForUpdate issues SELECT ... FOR UPDATE, so two spends of the
    same user serialize on the row instead of racing on the balance.
  - Inserts that may collide use ON CONFLICT (...) DO NOTHING and check
    RowsAffected. A unique violation would abort the whole Postgres
    transaction, which would make the token name retry impossible.
  - Like counters move with GREATEST(like_count + delta, 0) ... RETURNING.

SCHEMA:
  Managed by AutoMigrate from the row types below. The partial unique
  index on credit_tokens(owner_id) WHERE active enforces one active token
  per owner. The Owner/Topic association fields exist only to declare
  foreign keys; they are never loaded or written. A violated foreign key
  comes back as the matching NotFound error.

SEE ALSO:
  - forum/store.go: Interface definitions
  - store/sqlite: SQLite implementation
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/cookieboard/forum"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// =============================================================================
// MODELS
// =============================================================================

type userRow struct {
	ID            string `gorm:"primaryKey"`
	Email         string `gorm:"not null;default:''"`
	FullName      string `gorm:"not null;default:''"`
	CreditBalance *int64 `gorm:"check:chk_users_credit_balance,credit_balance IS NULL OR credit_balance >= 0"`
	CreatedAt     time.Time
}

func (userRow) TableName() string { return "users" }

type tokenRow struct {
	Name     string    `gorm:"primaryKey"`
	OwnerID  string    `gorm:"not null;index;uniqueIndex:idx_credit_tokens_one_active,where:active"`
	IssuedAt time.Time `gorm:"not null"`
	Banned   bool      `gorm:"not null"`
	Active   bool      `gorm:"not null"`

	Owner *userRow `gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE"`
}

func (tokenRow) TableName() string { return "credit_tokens" }

type topicRow struct {
	Seq       int64    `gorm:"primaryKey;autoIncrement"`
	AuthorID  string   `gorm:"not null;default:''"`
	Content   string   `gorm:"not null"`
	Category  string   `gorm:"not null;default:'';index"`
	ImageURLs []string `gorm:"type:text;serializer:json"`
	LikeCount int64    `gorm:"not null;check:chk_topics_like_count,like_count >= 0"`
	CreatedAt time.Time
}

func (topicRow) TableName() string { return "topics" }

type replyRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TopicSeq  int64     `gorm:"not null;index:idx_replies_topic,priority:1"`
	AuthorID  string    `gorm:"not null;default:''"`
	Content   string    `gorm:"not null"`
	QuoteOf   string
	ImageURLs []string `gorm:"type:text;serializer:json"`
	LikeCount int64    `gorm:"not null;check:chk_replies_like_count,like_count >= 0"`
	CreatedAt time.Time `gorm:"index:idx_replies_topic,priority:2"`

	Topic *topicRow `gorm:"foreignKey:TopicSeq;references:Seq;constraint:OnDelete:CASCADE"`
}

func (replyRow) TableName() string { return "replies" }

type likeRow struct {
	TargetID  string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (likeRow) TableName() string { return "like_records" }

type favoriteRow struct {
	TopicSeq  int64  `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey;index"`
	CreatedAt time.Time

	Topic *topicRow `gorm:"foreignKey:TopicSeq;references:Seq;constraint:OnDelete:CASCADE"`
}

func (favoriteRow) TableName() string { return "favorites" }

// =============================================================================
// STORE
// =============================================================================

// Store implements forum.TxStore on PostgreSQL.
type Store struct {
	queries
}

var _ forum.TxStore = (*Store)(nil)

// New connects to dsn and migrates the schema.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&userRow{}, &tokenRow{}, &topicRow{}, &replyRow{}, &likeRow{}, &favoriteRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{queries: queries{db: db}}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction; a non-nil error rolls it back.
func (s *Store) WithTx(ctx context.Context, fn func(store forum.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(queries{db: tx})
	})
}

type queries struct {
	db *gorm.DB
}

// take loads one row; a missing row is (false, nil).
func take(db *gorm.DB, dest any, query string, args ...any) (bool, error) {
	err := db.Where(query, args...).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// =============================================================================
// USER STORE
// =============================================================================

func (q queries) GetUser(ctx context.Context, id forum.UserID) (*forum.User, error) {
	return q.getUser(q.db.WithContext(ctx), id)
}

func (q queries) GetUserForUpdate(ctx context.Context, id forum.UserID) (*forum.User, error) {
	return q.getUser(q.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (q queries) getUser(db *gorm.DB, id forum.UserID) (*forum.User, error) {
	var row userRow
	found, err := take(db, &row, "id = ?", string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &forum.User{
		ID:            forum.UserID(row.ID),
		Email:         row.Email,
		FullName:      row.FullName,
		CreditBalance: row.CreditBalance,
		CreatedAt:     row.CreatedAt,
	}, nil
}

func (q queries) SaveUser(ctx context.Context, u forum.User) error {
	row := userRow{
		ID:            string(u.ID),
		Email:         u.Email,
		FullName:      u.FullName,
		CreditBalance: u.CreditBalance,
		CreatedAt:     u.CreatedAt,
	}
	err := q.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "credit_balance"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (q queries) SetCreditBalance(ctx context.Context, id forum.UserID, balance int64) error {
	res := q.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", string(id)).Update("credit_balance", balance)
	if res.Error != nil {
		return fmt.Errorf("failed to set credit balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return forum.ErrUserNotFound
	}
	return nil
}

// =============================================================================
// TOKEN STORE
// =============================================================================

func (q queries) TokenNameExists(ctx context.Context, name string) (bool, error) {
	var n int64
	if err := q.db.WithContext(ctx).Model(&tokenRow{}).Where("name = ?", name).Limit(1).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check token name: %w", err)
	}
	return n > 0, nil
}

func (q queries) InsertToken(ctx context.Context, t forum.CreditToken) error {
	row := tokenRow{
		Name:     t.Name,
		OwnerID:  string(t.OwnerID),
		IssuedAt: t.IssuedAt,
		Banned:   t.Banned,
		Active:   t.Active,
	}
	res := q.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&row)
	if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
		return forum.ErrUserNotFound
	}
	if res.Error != nil {
		return fmt.Errorf("failed to insert token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return forum.ErrDuplicateTokenName
	}
	return nil
}

func (q queries) GetToken(ctx context.Context, name string) (*forum.CreditToken, error) {
	var row tokenRow
	found, err := take(q.db.WithContext(ctx), &row, "name = ?", name)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if !found {
		return nil, nil
	}
	t := row.toToken()
	return &t, nil
}

func (q queries) ListTokens(ctx context.Context, owner forum.UserID) ([]forum.CreditToken, error) {
	var rows []tokenRow
	err := q.db.WithContext(ctx).Where("owner_id = ?", string(owner)).Order("issued_at, name").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	tokens := make([]forum.CreditToken, 0, len(rows))
	for _, r := range rows {
		tokens = append(tokens, r.toToken())
	}
	return tokens, nil
}

func (r tokenRow) toToken() forum.CreditToken {
	return forum.CreditToken{
		Name:     r.Name,
		IssuedAt: r.IssuedAt,
		Banned:   r.Banned,
		Active:   r.Active,
		OwnerID:  forum.UserID(r.OwnerID),
	}
}

func (q queries) DeactivateTokens(ctx context.Context, owner forum.UserID) error {
	err := q.db.WithContext(ctx).Model(&tokenRow{}).
		Where("owner_id = ? AND active", string(owner)).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate tokens: %w", err)
	}
	return nil
}

func (q queries) SetTokenActive(ctx context.Context, name string, active bool) error {
	res := q.db.WithContext(ctx).Model(&tokenRow{}).Where("name = ?", name).Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to set token active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return forum.ErrTokenNotFound
	}
	return nil
}

// =============================================================================
// CONTENT STORE
// =============================================================================

func (q queries) CreateTopic(ctx context.Context, t forum.Topic) (forum.Topic, error) {
	row := topicRow{
		AuthorID:  string(t.AuthorID),
		Content:   t.Content,
		Category:  t.Category,
		ImageURLs: t.ImageURLs,
		LikeCount: t.LikeCount,
		CreatedAt: t.CreatedAt,
	}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		return forum.Topic{}, fmt.Errorf("failed to create topic: %w", err)
	}
	return row.toTopic(), nil
}

func (q queries) GetTopic(ctx context.Context, seq int64) (*forum.Topic, error) {
	var row topicRow
	found, err := take(q.db.WithContext(ctx), &row, "seq = ?", seq)
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	if !found {
		return nil, nil
	}
	t := row.toTopic()
	return &t, nil
}

func (q queries) ListTopics(ctx context.Context, category string, skip, limit int) ([]forum.Topic, error) {
	db := q.db.WithContext(ctx)
	if category != "" {
		db = db.Where("category = ?", category)
	}
	var rows []topicRow
	if err := db.Order("seq DESC").Offset(skip).Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	topics := make([]forum.Topic, 0, len(rows))
	for _, r := range rows {
		topics = append(topics, r.toTopic())
	}
	return topics, nil
}

func (r topicRow) toTopic() forum.Topic {
	return forum.Topic{
		Seq:       r.Seq,
		AuthorID:  forum.UserID(r.AuthorID),
		Content:   r.Content,
		Category:  r.Category,
		ImageURLs: r.ImageURLs,
		LikeCount: r.LikeCount,
		CreatedAt: r.CreatedAt,
	}
}

func (q queries) CreateReply(ctx context.Context, r forum.Reply) error {
	row := replyRow{
		ID:        r.ID,
		TopicSeq:  r.TopicSeq,
		AuthorID:  string(r.AuthorID),
		Content:   r.Content,
		QuoteOf:   r.QuoteOf,
		ImageURLs: r.ImageURLs,
		LikeCount: r.LikeCount,
		CreatedAt: r.CreatedAt,
	}
	err := q.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return forum.ErrTopicNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to create reply: %w", err)
	}
	return nil
}

func (q queries) GetReply(ctx context.Context, id uuid.UUID) (*forum.Reply, error) {
	var row replyRow
	found, err := take(q.db.WithContext(ctx), &row, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reply: %w", err)
	}
	if !found {
		return nil, nil
	}
	r := row.toReply()
	return &r, nil
}

func (q queries) ListReplies(ctx context.Context, topicSeq int64, skip, limit int) ([]forum.Reply, error) {
	var rows []replyRow
	err := q.db.WithContext(ctx).
		Where("topic_seq = ?", topicSeq).
		Order("created_at, id").
		Offset(skip).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	replies := make([]forum.Reply, 0, len(rows))
	for _, r := range rows {
		replies = append(replies, r.toReply())
	}
	return replies, nil
}

func (r replyRow) toReply() forum.Reply {
	return forum.Reply{
		ID:        r.ID,
		TopicSeq:  r.TopicSeq,
		AuthorID:  forum.UserID(r.AuthorID),
		Content:   r.Content,
		QuoteOf:   r.QuoteOf,
		ImageURLs: r.ImageURLs,
		LikeCount: r.LikeCount,
		CreatedAt: r.CreatedAt,
	}
}

func targetRow(target forum.Target) (table, column string, key any, err error) {
	switch target.Kind {
	case forum.TargetReply:
		return "replies", "id", target.ReplyID, nil
	case forum.TargetTopic:
		return "topics", "seq", target.TopicSeq, nil
	}
	return "", "", nil, forum.ErrTargetNotFound
}

func (q queries) AdjustLikeCount(ctx context.Context, target forum.Target, delta int64) (int64, error) {
	table, column, key, err := targetRow(target)
	if err != nil {
		return 0, err
	}
	var counts []int64
	err = q.db.WithContext(ctx).Raw(
		fmt.Sprintf("UPDATE %s SET like_count = GREATEST(like_count + ?, 0) WHERE %s = ? RETURNING like_count", table, column),
		delta, key,
	).Scan(&counts).Error
	if err != nil {
		return 0, fmt.Errorf("failed to adjust like count: %w", err)
	}
	if len(counts) == 0 {
		return 0, forum.ErrTargetNotFound
	}
	return counts[0], nil
}

func (q queries) SetLikeCount(ctx context.Context, target forum.Target, n int64) error {
	table, column, key, err := targetRow(target)
	if err != nil {
		return err
	}
	res := q.db.WithContext(ctx).Table(table).Where(column+" = ?", key).Update("like_count", n)
	if res.Error != nil {
		return fmt.Errorf("failed to set like count: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return forum.ErrTargetNotFound
	}
	return nil
}

// =============================================================================
// LIKE STORE
// =============================================================================

func (q queries) LikeExists(ctx context.Context, targetID string, userID forum.UserID) (bool, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&likeRow{}).
		Where("target_id = ? AND user_id = ?", targetID, string(userID)).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return n > 0, nil
}

func (q queries) InsertLike(ctx context.Context, rec forum.LikeRecord) error {
	row := likeRow{TargetID: rec.TargetID, UserID: string(rec.UserID), CreatedAt: rec.CreatedAt}
	res := q.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("failed to insert like: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return forum.ErrAlreadyLiked
	}
	return nil
}

func (q queries) DeleteLike(ctx context.Context, targetID string, userID forum.UserID) error {
	res := q.db.WithContext(ctx).
		Where("target_id = ? AND user_id = ?", targetID, string(userID)).
		Delete(&likeRow{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete like: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return forum.ErrNotLiked
	}
	return nil
}

func (q queries) CountLikes(ctx context.Context, targetID string) (int64, error) {
	var n int64
	if err := q.db.WithContext(ctx).Model(&likeRow{}).Where("target_id = ?", targetID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return n, nil
}

func (q queries) LikeTargetIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := q.db.WithContext(ctx).Model(&likeRow{}).Distinct("target_id").Order("target_id").Pluck("target_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list like targets: %w", err)
	}
	return ids, nil
}

// =============================================================================
// FAVORITE STORE
// =============================================================================

func (q queries) FavoriteExists(ctx context.Context, topicSeq int64, userID forum.UserID) (bool, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&favoriteRow{}).
		Where("topic_seq = ? AND user_id = ?", topicSeq, string(userID)).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return n > 0, nil
}

func (q queries) InsertFavorite(ctx context.Context, f forum.Favorite) error {
	row := favoriteRow{TopicSeq: f.TopicSeq, UserID: string(f.UserID), CreatedAt: f.CreatedAt}
	res := q.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
		return forum.ErrTopicNotFound
	}
	if res.Error != nil {
		return fmt.Errorf("failed to insert favorite: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return forum.ErrAlreadyFavorited
	}
	return nil
}

func (q queries) DeleteFavorite(ctx context.Context, topicSeq int64, userID forum.UserID) error {
	res := q.db.WithContext(ctx).
		Where("topic_seq = ? AND user_id = ?", topicSeq, string(userID)).
		Delete(&favoriteRow{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete favorite: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return forum.ErrNotFavorited
	}
	return nil
}

func (q queries) ListFavorites(ctx context.Context, userID forum.UserID) ([]forum.Favorite, error) {
	var rows []favoriteRow
	err := q.db.WithContext(ctx).Where("user_id = ?", string(userID)).Order("topic_seq").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	favorites := make([]forum.Favorite, 0, len(rows))
	for _, r := range rows {
		favorites = append(favorites, forum.Favorite{
			TopicSeq:  r.TopicSeq,
			UserID:    forum.UserID(r.UserID),
			CreatedAt: r.CreatedAt,
		})
	}
	return favorites, nil
}
