package backend

import (
	"errors"
	"fmt"

	"github.com/hitoshi/storefront/internal/model"
)

// StatusError はバックエンドが2xx以外のステータスを返したことを表す。
type StatusError struct {
	Endpoint   string
	StatusCode int
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s returned status %d", e.Endpoint, e.StatusCode)
}

// RemoteError はバックエンドが success:false を返したことを表す。
// Messageにはバックエンドのメッセージがそのまま入る。
type RemoteError struct {
	Endpoint string
	Message  string
}

// Error はerrorインターフェースを実装する。
func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s reported failure", e.Endpoint)
	}
	return fmt.Sprintf("backend %s reported failure: %s", e.Endpoint, e.Message)
}

// IsUnauthorized はトークンが無効・期限切れであることを示すエラーかを判定する。
func IsUnauthorized(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 401 || se.StatusCode == 403
	}
	return false
}

// ToAPIError はバックエンド呼び出しのエラーを統一エラーに変換する。
// 既に*model.APIErrorの場合はそのまま返す。
func ToAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return model.NewBackendFailedError(remote.Message)
	}
	if IsUnauthorized(err) {
		return model.NewLoginRequiredError()
	}
	return model.NewBackendFailedError(err.Error())
}
