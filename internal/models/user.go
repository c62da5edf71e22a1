package models

// AuthUser は外部 ID プロバイダで検証されたリクエスト単位のユーザー情報です。
type AuthUser struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	EmailConfirmed bool   `json:"email_confirmed"`
	Token          string `json:"-"`
}
