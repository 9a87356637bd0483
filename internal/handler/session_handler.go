package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/storefront/internal/backend"
	"github.com/hitoshi/storefront/internal/model"
)

// Authenticator はメールアドレスとパスワードからトークンを発行する。backend.Clientが満たす。
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (string, error)
	Register(ctx context.Context, creds model.Credentials) (string, error)
}

// SessionStore はセッションハンドラーが操作するストア。store.Storeが満たす。
type SessionStore interface {
	Token() string
	Login(ctx context.Context, token string) error
	Logout(ctx context.Context)
	User() *model.UserProfile
}

// SessionHandler はログイン・会員登録・ログアウトのHTTPハンドラー。
type SessionHandler struct {
	auth  Authenticator
	store SessionStore
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(auth Authenticator, s SessionStore) *SessionHandler {
	return &SessionHandler{auth: auth, store: s}
}

// --- リクエスト/レスポンス型 ---

// loginRequest はトークン直接指定かメールアドレス・パスワードのどちらかを受け付ける。
type loginRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool               `json:"authenticated"`
	User          *model.UserProfile `json:"user,omitempty"`
}

// Login はセッションを開始し、サーバーのカート・お気に入り・プロフィールを取り込む。
// POST /api/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	token := req.Token
	if token == "" {
		if req.Email == "" || req.Password == "" {
			writeInvalidRequest(w, "tokenまたはemailとpasswordを指定してください。")
			return
		}
		issued, err := h.auth.Login(r.Context(), model.Credentials{Email: req.Email, Password: req.Password})
		if err != nil {
			handleServiceError(w, authError(err))
			return
		}
		token = issued
	}

	h.startSession(w, r, token)
}

// Register は会員登録を行い、そのままセッションを開始する。
// POST /api/session/register
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeInvalidRequest(w, "name、email、passwordを指定してください。")
		return
	}

	token, err := h.auth.Register(r.Context(), model.Credentials{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, authError(err))
		return
	}

	h.startSession(w, r, token)
}

// Logout はセッションを終了する。カートとお気に入りは保持される。
// DELETE /api/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.store.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のセッションのユーザー情報を返す。
// GET /api/session/me
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: h.store.Token() != "",
		User:          h.store.User(),
	})
}

func (h *SessionHandler) startSession(w http.ResponseWriter, r *http.Request, token string) {
	if err := h.store.Login(r.Context(), token); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		User:          h.store.User(),
	})
}

// authError はトークン発行APIのエラーを利用者向けのエラーに変換する。
// バックエンドが success:false で拒否した場合はそのメッセージをログイン失敗として返す。
func authError(err error) *model.APIError {
	var remote *backend.RemoteError
	if errors.As(err, &remote) {
		return model.NewLoginFailedError(remote.Message)
	}
	return backend.ToAPIError(err)
}
