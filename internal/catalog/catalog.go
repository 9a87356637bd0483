// Package catalog は商品カタログの絞り込み・並び替え・ページング・比較を提供する。
// すべて純粋関数で、入力のスライスは変更しない。
package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/storefront/internal/model"
)

// 並び順
const (
	SortDefault   = "default"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortNameAsc   = "name-asc"
	SortNameDesc  = "name-desc"
	SortNewest    = "newest"
)

const (
	// DefaultPerPage は1ページあたりのデフォルト表示件数。
	DefaultPerPage = 16
	// MaxCompare は比較できる商品の最大数。
	MaxCompare = 3
)

// Filter は商品一覧の絞り込み条件と並び順。ゼロ値は全件をカタログ順で返す。
type Filter struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Search   string
	SortBy   string
}

// ValidSort は並び順の指定が有効かを返す。空文字はデフォルト扱い。
func ValidSort(sortBy string) bool {
	switch sortBy {
	case "", SortDefault, SortPriceLow, SortPriceHigh, SortNameAsc, SortNameDesc, SortNewest:
		return true
	default:
		return false
	}
}

// Apply は条件に一致する商品を並び替えて返す。
func Apply(products []model.Product, f Filter) []model.Product {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.InStock && !p.InStock() {
			continue
		}
		if search != "" && !matches(p, search) {
			continue
		}
		out = append(out, p)
	}

	sortProducts(out, f.SortBy)
	return out
}

// matches は商品名・説明・カテゴリのいずれかに検索語を含むかを返す。searchは小文字化済み。
func matches(p model.Product, search string) bool {
	return strings.Contains(strings.ToLower(p.Name), search) ||
		strings.Contains(strings.ToLower(p.Description), search) ||
		strings.Contains(strings.ToLower(p.Category), search)
}

func sortProducts(products []model.Product, sortBy string) {
	var less func(a, b model.Product) bool
	switch sortBy {
	case SortPriceLow:
		less = func(a, b model.Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceHigh:
		less = func(a, b model.Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortNameAsc:
		less = func(a, b model.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortNameDesc:
		less = func(a, b model.Product) bool { return strings.ToLower(a.Name) > strings.ToLower(b.Name) }
	case SortNewest:
		// 作成日時のない商品は末尾
		less = func(a, b model.Product) bool {
			switch {
			case a.CreatedAt == nil:
				return false
			case b.CreatedAt == nil:
				return true
			default:
				return a.CreatedAt.After(*b.CreatedAt)
			}
		}
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

// PageInfo はページングの結果情報。
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Paginate は指定ページの商品を返す。
// pageは1からTotalPagesの範囲に丸め、perPageが0以下の場合はDefaultPerPageを使う。
// 商品が0件の場合はTotalPagesを1として空のスライスを返す。
func Paginate(products []model.Product, page, perPage int) ([]model.Product, PageInfo) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(products)
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return products[start:end], PageInfo{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// Categories は空でないカテゴリを初出順に重複なく返す。
func Categories(products []model.Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

// Compare は指定IDの商品を指定順に最大MaxCompare件返す。
// カタログにないIDと重複したIDは読み飛ばす。
func Compare(products []model.Product, ids []string) []model.Product {
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]model.Product, 0, MaxCompare)
	seen := make(map[string]bool)
	for _, id := range ids {
		if len(out) == MaxCompare {
			break
		}
		p, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, p)
	}
	return out
}

// Related は同じカテゴリの他の商品をカタログ順に最大limit件返す。limitが0以下なら全件。
func Related(products []model.Product, target model.Product, limit int) []model.Product {
	var out []model.Product
	for _, p := range products {
		if p.ID == target.ID || p.Category != target.Category {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
