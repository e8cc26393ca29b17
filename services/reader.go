package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"socialfeed/config"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PAGE_SIZE = 20
	MAX_PAGE_SIZE     = 100
	overFetchFactor   = 2 // часть id из кеша может оказаться удаленными постами
)

// PageRequest - запрос страницы ленты. Cursor - время создания последнего
// увиденного поста (RFC3339), Offset - для неглубоких страниц без курсора.
type PageRequest struct {
	UserID int64
	Limit  int
	Offset int
	Cursor string
}

// Page - страница ленты, одинаковая для кеша и БД
type Page struct {
	Items      []FeedItem `json:"items"`
	HasMore    bool       `json:"has_more"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func emptyPage() *Page {
	return &Page{Items: []FeedItem{}}
}

func FormatCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParseCursor(cursor string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cursor %q: %w", cursor, err)
	}
	return t.UTC(), nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > MAX_PAGE_SIZE {
		return DEFAULT_PAGE_SIZE
	}
	return limit
}

// FeedReader собирает страницу ленты: push-лента из кеша плюс посты
// знаменитостей, а при промахе - запрос к БД
type FeedReader struct {
	cfg       config.FeedConfig
	store     ListStore
	policy    *FanoutPolicy
	directory FollowDirectory
	content   ContentStore
	logger    *logrus.Entry
}

func NewFeedReader(cfg config.FeedConfig, store ListStore, policy *FanoutPolicy, directory FollowDirectory, content ContentStore, logger *logrus.Entry) *FeedReader {
	return &FeedReader{
		cfg:       cfg.WithDefaults(),
		store:     store,
		policy:    policy,
		directory: directory,
		content:   content,
		logger:    logger.WithField("component", "feed_reader"),
	}
}

// GetFeedPage никогда не возвращает ошибку: при отказе всех источников
// отдается пустая страница с HasMore=false
func (r *FeedReader) GetFeedPage(ctx context.Context, req PageRequest) *Page {
	req.Limit = normalizeLimit(req.Limit)
	if req.Offset < 0 {
		req.Offset = 0
	}
	log := r.logger.WithFields(logrus.Fields{"viewer_id": req.UserID, "limit": req.Limit, "offset": req.Offset})

	topics, topicsErr := r.directory.ListFollowedTopics(ctx, req.UserID)
	if topicsErr != nil {
		storeErrorsTotal.WithLabelValues("followed_topics").Inc()
		log.WithError(topicsErr).Warn("failed to load followed topics")
	}
	authors, authorsErr := r.directory.ListFollowedAuthors(ctx, req.UserID)
	if authorsErr != nil {
		storeErrorsTotal.WithLabelValues("followed_authors").Inc()
		log.WithError(authorsErr).Warn("failed to load followed authors")
	}

	cacheEligible := req.Cursor == "" &&
		topicsErr == nil && len(topics) == 0 &&
		int64(req.Offset) < r.cfg.MaxFeedSize
	if cacheEligible {
		if page, ok := r.cachePage(ctx, req, authors, authorsErr == nil, log); ok {
			feedReadsTotal.WithLabelValues(readPathCache).Inc()
			return page
		}
	}

	if topicsErr != nil || authorsErr != nil {
		feedReadsTotal.WithLabelValues(readPathEmpty).Inc()
		return emptyPage()
	}
	return r.durablePage(ctx, req, authors, topics, log)
}

// cachePage - путь через кеш. false означает промах: пусто или ошибка хранилища
func (r *FeedReader) cachePage(ctx context.Context, req PageRequest, authors []int64, authorsKnown bool, log *logrus.Entry) (*Page, bool) {
	window := int64(req.Limit * overFetchFactor)
	start := int64(req.Offset)
	raw, err := r.store.Range(ctx, feedKey(req.UserID), start, start+window-1)
	if err != nil {
		storeErrorsTotal.WithLabelValues("push_feed_range").Inc()
		log.WithError(err).Warn("push feed read failed, falling back to database")
		return nil, false
	}
	pushIDs := parseIDs(raw)

	// pull-источники добавляются только на первой странице, иначе они
	// повторялись бы на каждой следующей
	var pulled [][]int64
	if req.Offset == 0 {
		var pullFrom []int64
		if authorsKnown {
			celebrities, _, err := r.policy.SplitCelebrities(ctx, authors)
			if err != nil {
				storeErrorsTotal.WithLabelValues("celebrity_lookup").Inc()
				log.WithError(err).Warn("celebrity lookup failed, falling back to database")
				return nil, false
			}
			pullFrom = celebrities
		}
		// без push-ленты и знаменитостей кеш ничего не знает о подписках:
		// собственные посты одни не делают страницу полной, идем в БД
		if len(pushIDs) == 0 && len(pullFrom) == 0 {
			return nil, false
		}
		// свои посты читатель видит так же, как в выборке из БД
		pullFrom = append(pullFrom, req.UserID)

		pulled, err = r.pullAuthorFeeds(ctx, pullFrom, log)
		if err != nil {
			log.WithError(err).Warn("author feed pull failed, falling back to database")
			return nil, false
		}
	}

	merged := mergeFeedIDs(pushIDs, pulled)
	if len(merged) == 0 {
		return nil, false
	}

	items, err := r.content.FilterVisible(ctx, req.UserID, merged)
	if err != nil {
		storeErrorsTotal.WithLabelValues("filter_visible").Inc()
		log.WithError(err).Warn("visibility check failed, falling back to database")
		return nil, false
	}
	if len(items) == 0 {
		return nil, false
	}

	hasMore := len(items) > req.Limit || int64(len(raw)) == window
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}
	page := &Page{Items: items, HasMore: hasMore}
	if hasMore {
		// порядок в кеше приблизительный, поэтому курсор - самый старый пост страницы
		oldest := items[0].CreatedAt
		for _, item := range items[1:] {
			if item.CreatedAt.Before(oldest) {
				oldest = item.CreatedAt
			}
		}
		page.NextCursor = FormatCursor(oldest)
	}
	return page, true
}

// pullAuthorFeeds читает верх списков авторов одним батчем.
// Сбой отдельного списка пропускается, сбой всего батча - ошибка.
func (r *FeedReader) pullAuthorFeeds(ctx context.Context, authorIDs []int64, log *logrus.Entry) ([][]int64, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	batch := r.store.Batch()
	idx := make([]int, len(authorIDs))
	for i, authorID := range authorIDs {
		idx[i] = batch.Range(authorFeedKey(authorID), 0, r.cfg.CelebrityPullSize-1)
	}
	res, err := batch.Exec(ctx)
	if err != nil {
		storeErrorsTotal.WithLabelValues("author_feed_pull").Inc()
		return nil, err
	}

	pulled := make([][]int64, 0, len(authorIDs))
	for i, authorID := range authorIDs {
		raw, err := res.Strings(idx[i])
		if err != nil {
			storeErrorsTotal.WithLabelValues("author_feed_pull").Inc()
			log.WithError(err).WithField("author_id", authorID).Warn("skipping author feed")
			continue
		}
		pulled = append(pulled, parseIDs(raw))
	}
	return pulled, nil
}

// durablePage - выборка из БД: строгий порядок по времени, курсор или offset
func (r *FeedReader) durablePage(ctx context.Context, req PageRequest, authors, topics []int64, log *logrus.Entry) *Page {
	q := FeedQuery{
		ViewerID:  req.UserID,
		AuthorIDs: append([]int64{req.UserID}, authors...),
		TopicIDs:  topics,
		Limit:     req.Limit + 1,
	}
	if req.Cursor != "" {
		before, err := ParseCursor(req.Cursor)
		if err != nil {
			log.WithError(err).Warn("bad cursor")
			feedReadsTotal.WithLabelValues(readPathEmpty).Inc()
			return emptyPage()
		}
		q.Before = &before
	} else {
		q.Offset = req.Offset
	}

	rows, err := r.content.QueryFeed(ctx, q)
	if err != nil {
		storeErrorsTotal.WithLabelValues("durable_query").Inc()
		log.WithError(err).Error("durable feed query failed")
		feedReadsTotal.WithLabelValues(readPathEmpty).Inc()
		return emptyPage()
	}

	page := &Page{Items: rows}
	if len(rows) > req.Limit {
		page.Items = rows[:req.Limit]
		page.HasMore = true
		page.NextCursor = FormatCursor(page.Items[len(page.Items)-1].CreatedAt)
	}
	if page.Items == nil {
		page.Items = []FeedItem{}
	}
	feedReadsTotal.WithLabelValues(readPathDurable).Inc()
	return page
}

// mergeFeedIDs: сначала push-лента, затем pull-списки; дубликаты убираются,
// порядок первого появления сохраняется. Это приближение: посты знаменитостей
// не перемежаются с push-лентой по времени.
func mergeFeedIDs(push []int64, pulled [][]int64) []int64 {
	size := len(push)
	for _, p := range pulled {
		size += len(p)
	}
	seen := make(map[int64]struct{}, size)
	merged := make([]int64, 0, size)
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, id := range push {
		add(id)
	}
	for _, list := range pulled {
		for _, id := range list {
			add(id)
		}
	}
	return merged
}

func parseIDs(raw []string) []int64 {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
