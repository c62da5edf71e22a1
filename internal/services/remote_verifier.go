package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-supa-todo/backend/internal/models"
)

// RemoteVerifier は ID プロバイダの /auth/v1/user にトークンを問い合わせて検証します。
// JWT シークレットを持たない構成で使います。
type RemoteVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteVerifier は新しいRemoteVerifierを作成します。client が nil なら10秒タイムアウトのクライアントを使います。
func NewRemoteVerifier(baseURL, apiKey string, client *http.Client) (*RemoteVerifier, error) {
	if baseURL == "" || apiKey == "" {
		return nil, errors.New("auth base URL and api key are required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteVerifier{baseURL: baseURL, apiKey: apiKey, client: client}, nil
}

type remoteUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *string        `json:"email_confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

// Verify はプロバイダにユーザー情報を問い合わせます。
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*models.AuthUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("could not build auth request: %w", err)
	}
	req.Header.Set("apikey", v.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth provider request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("auth provider returned status %d", resp.StatusCode)
	}

	var u remoteUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("could not decode auth user: %w", err)
	}
	if u.ID == "" {
		return nil, ErrInvalidToken
	}

	return &models.AuthUser{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       metadataString(u.UserMetadata, "full_name"),
		EmailConfirmed: u.EmailConfirmedAt != nil && *u.EmailConfirmedAt != "",
		Token:          token,
	}, nil
}
