package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"

	marketerDB "marketer-service/internal/marketer/db"
)

// OAuthConfig holds the env-sourced LinkedIn app credentials used for the
// authorization/callback flow. The per-call access token is always
// database-resident once obtained.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

// LinkedInOAuthConfigFromEnv reads LINKEDIN_CLIENT_ID, LINKEDIN_CLIENT_SECRET
// and LINKEDIN_REDIRECT_URI.
func LinkedInOAuthConfigFromEnv() OAuthConfig {
	return OAuthConfig{
		ClientID:     os.Getenv("LINKEDIN_CLIENT_ID"),
		ClientSecret: os.Getenv("LINKEDIN_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("LINKEDIN_REDIRECT_URI"),
		AuthURL:      "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:     "https://www.linkedin.com/oauth/v2/accessToken",
		UserInfoURL:  "https://api.linkedin.com/v2/userinfo",
	}
}

type AuthHandler struct {
	DB     *gorm.DB
	Config OAuthConfig
	Client *http.Client
}

func NewAuthHandler(db *gorm.DB, cfg OAuthConfig) *AuthHandler {
	return &AuthHandler{
		DB:     db,
		Config: cfg,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Login redirects the browser to LinkedIn's consent screen.
func (h *AuthHandler) Login(ctx context.Context, c *app.RequestContext) {
	if h.Config.ClientID == "" || h.Config.RedirectURI == "" {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "LinkedIn OAuth is not configured (LINKEDIN_CLIENT_ID / LINKEDIN_REDIRECT_URI)"})
		return
	}
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", h.Config.ClientID)
	query.Set("redirect_uri", h.Config.RedirectURI)
	query.Set("scope", "openid profile w_member_social")
	c.Redirect(consts.StatusFound, []byte(h.Config.AuthURL+"?"+query.Encode()))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type userInfoResponse struct {
	Sub string `json:"sub"`
}

// Callback exchanges the authorization code for an access token, resolves
// the member URN and upserts the stored credential.
func (h *AuthHandler) Callback(ctx context.Context, c *app.RequestContext) {
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadRequest, utils.H{"error": "LinkedIn authorization denied: " + c.Query("error_description")})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Missing authorization code"})
		return
	}

	token, err := h.exchangeCode(ctx, code)
	if err != nil {
		log.Printf("AuthHandler: token exchange failed: %v", err)
		c.JSON(http.StatusBadGateway, utils.H{"error": "Token exchange failed: " + err.Error()})
		return
	}

	memberURN, err := h.memberURN(ctx, token.AccessToken)
	if err != nil {
		log.Printf("AuthHandler: userinfo lookup failed: %v", err)
		c.JSON(http.StatusBadGateway, utils.H{"error": "Failed to resolve LinkedIn member: " + err.Error()})
		return
	}

	expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	cred := marketerDB.Credential{Provider: marketerDB.PlatformLinkedIn}
	err = h.DB.Where(marketerDB.Credential{Provider: marketerDB.PlatformLinkedIn}).
		Assign(marketerDB.Credential{
			AccessToken: token.AccessToken,
			ExpiresAt:   expiresAt,
			OwnerURN:    memberURN,
		}).
		FirstOrCreate(&cred).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to store credential: " + err.Error()})
		return
	}

	log.Printf("AuthHandler: LinkedIn credential stored for %s, expires %s", memberURN, expiresAt.Format(time.RFC3339))
	c.JSON(http.StatusOK, utils.H{
		"message":    "LinkedIn account connected",
		"expires_at": expiresAt,
	})
}

func (h *AuthHandler) exchangeCode(ctx context.Context, code string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", h.Config.ClientID)
	form.Set("client_secret", h.Config.ClientSecret)
	form.Set("redirect_uri", h.Config.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}
	return &token, nil
}

func (h *AuthHandler) memberURN(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.Config.UserInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("userinfo endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo response: %w", err)
	}
	if info.Sub == "" {
		return "", fmt.Errorf("userinfo response contained no subject")
	}
	return "urn:li:person:" + info.Sub, nil
}
