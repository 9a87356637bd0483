package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/storefront/internal/model"
)

// ErrorResponseBody はローカルAPIが返すエラーボディ。
// ストアやバックエンドのエラーもすべてこの形に揃える。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

var internalError = &model.APIError{
	Code:     "INTERNAL_ERROR",
	Message:  "内部エラーが発生しました。",
	Category: "system",
	Action:   "しばらく待ってから再度お試しください。",
}

// WriteErrorResponse はstatusCodeを指定してエラーボディを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody(*apiErr))
}

// WriteAPIError はエラーコードから決まるステータスでエラーボディを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
}

// WriteError は任意のエラーを書き込む。
// *model.APIErrorを含まないエラーは内容をログにだけ残し、500を返す。
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteAPIError(w, apiErr)
		return
	}
	logger.Error("internal server error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}

// StatusForAPIError はエラーコードに対応するHTTPステータスを返す。
// 業務ルールによる拒否は409、入力不正は400、未認証は401、バックエンド障害は502。
func StatusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeProductNotFound, model.ErrCodeOutOfStock, model.ErrCodeStockExceeded, model.ErrCodeEmptyCart:
		return http.StatusConflict
	case model.ErrCodeLoginRequired, model.ErrCodeLoginFailed:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidAddress, model.ErrCodeInvalidPayment, model.ErrCodeInvalidRating, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeBackendFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteInternalServerError は詳細を伏せた500レスポンスを書き込む。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, internalError)
}
