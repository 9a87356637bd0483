// Package review は商品レビューの取得・集計・投稿を提供する。
package review

import (
	"context"
	"log/slog"
	"math"
	"unicode/utf8"

	"github.com/hitoshi/storefront/internal/backend"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/security"
)

const (
	// MinRating は評価の最小値。
	MinRating = 1
	// MaxRating は評価の最大値。
	MaxRating = 5
	// MaxCommentLength はコメントの最大文字数（サニタイズ後のrune数）。
	MaxCommentLength = 2000
)

// Backend はレビュー機能が利用するバックエンドAPIの部分集合。
type Backend interface {
	ListReviews(ctx context.Context, productID string) ([]model.Review, error)
	SubmitReview(ctx context.Context, token string, review model.Review) error
}

// Session は現在のセッショントークンを提供する。store.Storeが満たす。
type Session interface {
	Token() string
}

// Result はレビュー一覧と集計結果。
type Result struct {
	Reviews []model.Review      `json:"reviews"`
	Summary model.ReviewSummary `json:"summary"`
}

// Service はレビューの取得と投稿を提供する。
type Service struct {
	backend   Backend
	session   Session
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(b Backend, session Session, sanitizer security.ContentSanitizerService, logger *slog.Logger) *Service {
	return &Service{
		backend:   b,
		session:   session,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Summarize はレビュー件数と平均評価を返す。平均は小数第1位で丸め、0件の場合は0。
func Summarize(reviews []model.Review) model.ReviewSummary {
	if len(reviews) == 0 {
		return model.ReviewSummary{}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return model.ReviewSummary{
		Count:   len(reviews),
		Average: math.Round(avg*10) / 10,
	}
}

// List は商品のレビュー一覧と集計結果を返す。
func (s *Service) List(ctx context.Context, productID string) (*Result, error) {
	reviews, err := s.backend.ListReviews(ctx, productID)
	if err != nil {
		s.logger.Warn("レビューの取得に失敗しました",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return nil, backend.ToAPIError(err)
	}
	return &Result{Reviews: reviews, Summary: Summarize(reviews)}, nil
}

// Submit はレビューを投稿する。
// 未ログイン、評価が範囲外、コメントが空または長すぎる場合は*model.APIErrorを返す。
func (s *Service) Submit(ctx context.Context, productID string, rating int, comment string) error {
	token := s.session.Token()
	if token == "" {
		return model.NewLoginRequiredError()
	}
	if rating < MinRating || rating > MaxRating {
		return model.NewInvalidRatingError(rating)
	}

	comment = s.sanitizer.Sanitize(comment)
	if comment == "" || utf8.RuneCountInString(comment) > MaxCommentLength {
		return &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "コメントは1文字以上2000文字以内で入力してください",
			Category: "validation",
			Action:   "コメントを修正して再度投稿してください。",
		}
	}

	err := s.backend.SubmitReview(ctx, token, model.Review{
		ProductID: productID,
		Rating:    rating,
		Comment:   comment,
	})
	if err != nil {
		s.logger.Warn("レビューの投稿に失敗しました",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return backend.ToAPIError(err)
	}

	s.logger.Info("レビューを投稿しました",
		slog.String("product_id", productID),
		slog.Int("rating", rating),
	)
	return nil
}
