package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/storefront/internal/backend"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/security"
)

type fakeBackend struct {
	reviews   []model.Review
	listErr   error
	submitted *model.Review
	submitTok string
	submitErr error
}

func (b *fakeBackend) ListReviews(context.Context, string) ([]model.Review, error) {
	return b.reviews, b.listErr
}

func (b *fakeBackend) SubmitReview(_ context.Context, token string, r model.Review) error {
	b.submitted = &r
	b.submitTok = token
	return b.submitErr
}

type fakeSession string

func (s fakeSession) Token() string { return string(s) }

func newService(b *fakeBackend, token string) *Service {
	return NewService(b, fakeSession(token), security.NewContentSanitizer(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	return apiErr.Code
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		count   int
		average float64
	}{
		{name: "0件", ratings: nil, count: 0, average: 0},
		{name: "1件", ratings: []int{4}, count: 1, average: 4},
		{name: "小数第1位で丸め", ratings: []int{5, 4, 4}, count: 3, average: 4.3},
		{name: "切り上げ", ratings: []int{5, 5, 4}, count: 3, average: 4.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reviews []model.Review
			for _, r := range tt.ratings {
				reviews = append(reviews, model.Review{Rating: r})
			}
			got := Summarize(reviews)
			if got.Count != tt.count || got.Average != tt.average {
				t.Errorf("Summarize() = %+v, want {%d %v}", got, tt.count, tt.average)
			}
		})
	}
}

func TestList(t *testing.T) {
	b := &fakeBackend{reviews: []model.Review{{Rating: 5}, {Rating: 2}}}
	res, err := newService(b, "").List(context.Background(), "p1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(res.Reviews) != 2 || res.Summary.Average != 3.5 {
		t.Errorf("result = %+v", res)
	}
}

func TestList_BackendFailure(t *testing.T) {
	b := &fakeBackend{listErr: &backend.StatusError{Endpoint: "/api/reviews/{productId}", StatusCode: 500}}
	_, err := newService(b, "").List(context.Background(), "p1")
	if code := apiErrorCode(t, err); code != model.ErrCodeBackendFailed {
		t.Errorf("code = %q, want %q", code, model.ErrCodeBackendFailed)
	}
}

func TestSubmit_SanitizesComment(t *testing.T) {
	b := &fakeBackend{}
	err := newService(b, "tok").Submit(context.Background(), "p1", 5, "  <b>Great</b> sofa<script>alert(1)</script> ")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if b.submitTok != "tok" {
		t.Errorf("token = %q, want tok", b.submitTok)
	}
	if b.submitted.Comment != "Great sofa" {
		t.Errorf("Comment = %q, want %q", b.submitted.Comment, "Great sofa")
	}
	if b.submitted.ProductID != "p1" || b.submitted.Rating != 5 {
		t.Errorf("submitted = %+v", b.submitted)
	}
}

func TestSubmit_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		rating   int
		comment  string
		wantCode string
	}{
		{name: "未ログイン", token: "", rating: 5, comment: "good", wantCode: model.ErrCodeLoginRequired},
		{name: "評価0", token: "tok", rating: 0, comment: "good", wantCode: model.ErrCodeInvalidRating},
		{name: "評価6", token: "tok", rating: 6, comment: "good", wantCode: model.ErrCodeInvalidRating},
		{name: "タグだけのコメント", token: "tok", rating: 3, comment: "<script>x</script>", wantCode: model.ErrCodeInvalidRequest},
		{name: "長すぎるコメント", token: "tok", rating: 3, comment: strings.Repeat("あ", MaxCommentLength+1), wantCode: model.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{}
			err := newService(b, tt.token).Submit(context.Background(), "p1", tt.rating, tt.comment)
			if code := apiErrorCode(t, err); code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			if b.submitted != nil {
				t.Error("backend should not be called on rejection")
			}
		})
	}
}

func TestSubmit_BackendRejects(t *testing.T) {
	b := &fakeBackend{submitErr: &backend.RemoteError{Endpoint: backend.EndpointReviews, Message: "already reviewed"}}
	err := newService(b, "tok").Submit(context.Background(), "p1", 4, "nice")
	if code := apiErrorCode(t, err); code != model.ErrCodeBackendFailed {
		t.Errorf("code = %q, want %q", code, model.ErrCodeBackendFailed)
	}
}
