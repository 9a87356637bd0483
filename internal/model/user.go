package model

// UserProfile は現在のトークンに紐づくユーザー情報のスナップショット。
// 読み取り専用で、ログアウト時に破棄される。
type UserProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Credentials はバックエンドのログインAPIに渡す認証情報。
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
