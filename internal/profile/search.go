package profile

import (
	"context"

	"phPortfolio/internal/apperror"
	"phPortfolio/internal/database"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// SearchQuery 描述一次档案检索。空的文本过滤条件会被整体省略，
// 提供的条件之间是 AND 关系，全部为大小写不敏感的子串匹配。
type SearchQuery struct {
	Name     string
	Location string
	Skill    string
	Email    string
	Page     int
	Limit    int
	SortBy   string
	Order    string
}

// SearchResult 是偏移式分页的检索结果。
type SearchResult struct {
	Results []Record `json:"results"`
	Total   int64    `json:"total"`
	Page    int      `json:"page"`
	Pages   int      `json:"pages"`
}

type searchCondition struct {
	Expr string
	Arg  any
}

// normalizeSearchQuery 收敛分页与排序参数；排序字段走白名单。
func normalizeSearchQuery(q SearchQuery) SearchQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}
	if q.Limit > maxSearchLimit {
		q.Limit = maxSearchLimit
	}
	switch q.SortBy {
	case "updated_at", "created_at":
	default:
		q.SortBy = "updated_at"
	}
	switch q.Order {
	case "asc", "desc":
	default:
		q.Order = "desc"
	}
	return q
}

// buildSearchConditions 构造 WHERE 条件。
// 文本字段在 JSONB 的 personal 块上取值做 ILIKE；skill 对 skills 列整体做文本匹配。
func buildSearchConditions(q SearchQuery) []searchCondition {
	return buildDialectSearchConditions(q, "postgres")
}

// buildDialectSearchConditions 按方言生成等价的大小写不敏感子串匹配。
// sqlite 走 json_extract + LIKE（对 ASCII 默认不区分大小写），只服务测试环境。
func buildDialectSearchConditions(q SearchQuery, dialect string) []searchCondition {
	personalField := func(key string) string {
		if dialect == "sqlite" {
			return "json_extract(personal, '$." + key + "') LIKE ?"
		}
		return "personal->>'" + key + "' ILIKE ?"
	}
	skillsExpr := "skills::text ILIKE ?"
	if dialect == "sqlite" {
		skillsExpr = "CAST(skills AS TEXT) LIKE ?"
	}

	conditions := make([]searchCondition, 0, 4)
	if q.Name != "" {
		conditions = append(conditions, searchCondition{personalField("name"), "%" + q.Name + "%"})
	}
	if q.Location != "" {
		conditions = append(conditions, searchCondition{personalField("location"), "%" + q.Location + "%"})
	}
	if q.Email != "" {
		conditions = append(conditions, searchCondition{personalField("email"), "%" + q.Email + "%"})
	}
	if q.Skill != "" {
		conditions = append(conditions, searchCondition{skillsExpr, "%" + q.Skill + "%"})
	}
	return conditions
}

// pageCount 计算总页数（ceil），零结果时为 0。
func pageCount(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Search 执行过滤、排序与分页检索。
func (s *Store) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	q = normalizeSearchQuery(q)

	tx := s.db.WithContext(ctx).Model(&database.Profile{})
	for _, cond := range buildDialectSearchConditions(q, s.db.Dialector.Name()) {
		tx = tx.Where(cond.Expr, cond.Arg)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, apperror.Upstream("count profiles", err)
	}

	var models []database.Profile
	if err := tx.
		Order(q.SortBy + " " + q.Order).
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&models).Error; err != nil {
		return nil, apperror.Upstream("search profiles", err)
	}

	results := make([]Record, 0, len(models))
	for i := range models {
		record, err := decodeProfile(&models[i])
		if err != nil {
			return nil, err
		}
		results = append(results, *record)
	}

	return &SearchResult{
		Results: results,
		Total:   total,
		Page:    q.Page,
		Pages:   pageCount(total, q.Limit),
	}, nil
}
