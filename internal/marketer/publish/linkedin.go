package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	marketerDB "marketer-service/internal/marketer/db"
)

const (
	DefaultLinkedInAPIURL = "https://api.linkedin.com"

	linkedInPostURLFormat = "https://www.linkedin.com/feed/update/%s"
)

// LinkedInPublisher posts task content as a LinkedIn UGC share using the
// stored OAuth credential. It fails fast when no valid credential is on
// record and maps remote rejections to descriptive errors.
type LinkedInPublisher struct {
	DB     *gorm.DB
	APIURL string
	Client *http.Client
	Now    func() time.Time
}

func NewLinkedInPublisher(db *gorm.DB) *LinkedInPublisher {
	return &LinkedInPublisher{
		DB:     db,
		APIURL: DefaultLinkedInAPIURL,
		Client: &http.Client{Timeout: 30 * time.Second},
		Now:    time.Now,
	}
}

type shareText struct {
	Text string `json:"text"`
}

type shareContent struct {
	ShareCommentary    shareText `json:"shareCommentary"`
	ShareMediaCategory string    `json:"shareMediaCategory"`
}

type ugcPostRequest struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

type ugcPostResponse struct {
	ID string `json:"id"`
}

func (p *LinkedInPublisher) Publish(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Content) == "" {
		return Result{}, fmt.Errorf("task %d has no content to publish", req.TaskID)
	}

	cred, err := p.credential()
	if err != nil {
		return Result{}, err
	}

	payload := ugcPostRequest{
		Author:         cred.OwnerURN,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]shareContent{
			"com.linkedin.ugc.ShareContent": {
				ShareCommentary:    shareText{Text: req.Content},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("linkedin: marshal ugc post payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.APIURL, "/")+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("linkedin: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("linkedin: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("linkedin: post rejected with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	// LinkedIn returns the new post URN both in the body and in the
	// x-restli-id header; prefer the body, fall back to the header.
	var posted ugcPostResponse
	respBody, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(respBody, &posted); err != nil || posted.ID == "" {
		posted.ID = resp.Header.Get("x-restli-id")
	}
	if posted.ID == "" {
		return Result{}, fmt.Errorf("linkedin: post accepted but no post id returned")
	}

	log.Printf("LinkedInPublisher: task ID %d published as %s", req.TaskID, posted.ID)
	return Result{
		PostID: posted.ID,
		URL:    fmt.Sprintf(linkedInPostURLFormat, posted.ID),
	}, nil
}

// credential loads the stored LinkedIn credential and rejects missing or
// expired tokens before any remote call is attempted.
func (p *LinkedInPublisher) credential() (*marketerDB.Credential, error) {
	var cred marketerDB.Credential
	if err := p.DB.Where("provider = ?", marketerDB.PlatformLinkedIn).First(&cred).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("no LinkedIn credential stored; connect the account first")
		}
		return nil, fmt.Errorf("linkedin: load credential: %w", err)
	}
	if cred.Expired(p.Now()) {
		return nil, fmt.Errorf("LinkedIn credential expired at %s; reconnect the account",
			cred.ExpiresAt.Format(time.RFC3339))
	}
	if cred.OwnerURN == "" {
		return nil, fmt.Errorf("LinkedIn credential has no member URN; reconnect the account")
	}
	return &cred, nil
}

var _ Publisher = (*LinkedInPublisher)(nil)
