package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// relatedLimit は商品詳細で返す関連商品の最大数。
const relatedLimit = 4

// CatalogReader は商品ハンドラーが参照するカタログ。store.Storeが満たす。
type CatalogReader interface {
	Products() []model.Product
	Product(id string) (model.Product, bool)
	IsLiked(productID string) bool
}

// ProductHandler は商品閲覧のHTTPハンドラー。
type ProductHandler struct {
	catalog CatalogReader
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(c CatalogReader) *ProductHandler {
	return &ProductHandler{catalog: c}
}

// --- レスポンス型 ---

type productListResponse struct {
	Products []model.Product  `json:"products"`
	PageInfo catalog.PageInfo `json:"pageInfo"`
}

type productDetailResponse struct {
	Product model.Product   `json:"product"`
	Liked   bool            `json:"liked"`
	Related []model.Product `json:"related"`
}

type productsResponse struct {
	Products []model.Product `json:"products"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

// ListProducts は絞り込み・並び替え・ページング済みの商品一覧を返す。
// GET /api/products?category=&min=&max=&inStock=&search=&sort=&page=&perPage=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := parseFilter(q)
	if err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}

	// 不正なページ指定はデフォルトに丸める
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))

	items, info := catalog.Paginate(catalog.Apply(h.catalog.Products(), filter), page, perPage)
	writeJSON(w, http.StatusOK, productListResponse{
		Products: nonNil(items),
		PageInfo: info,
	})
}

// GetProduct は商品詳細と関連商品を返す。
// GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, ok := h.catalog.Product(id)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewProductNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, productDetailResponse{
		Product: product,
		Liked:   h.catalog.IsLiked(id),
		Related: nonNil(catalog.Related(h.catalog.Products(), product, relatedLimit)),
	})
}

// ListCategories はカタログに存在するカテゴリの一覧を返す。
// GET /api/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := catalog.Categories(h.catalog.Products())
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: categories})
}

// Compare は指定した商品を比較用に並べて返す。
// GET /api/compare?ids=a,b,c
func (h *ProductHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	writeJSON(w, http.StatusOK, productsResponse{
		Products: nonNil(catalog.Compare(h.catalog.Products(), ids)),
	})
}

// parseFilter はクエリパラメータから絞り込み条件を組み立てる。
func parseFilter(q url.Values) (catalog.Filter, error) {
	f := catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sort"),
	}

	if !catalog.ValidSort(f.SortBy) {
		return f, fmt.Errorf("sortの値が不正です: %s", f.SortBy)
	}

	if v := q.Get("min"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, fmt.Errorf("minの値が不正です: %s", v)
		}
		f.MinPrice = &d
	}
	if v := q.Get("max"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, fmt.Errorf("maxの値が不正です: %s", v)
		}
		f.MaxPrice = &d
	}
	if v := q.Get("inStock"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("inStockの値が不正です: %s", v)
		}
		f.InStock = b
	}

	return f, nil
}

func nonNil(products []model.Product) []model.Product {
	if products == nil {
		return []model.Product{}
	}
	return products
}
