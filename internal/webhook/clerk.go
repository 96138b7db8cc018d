package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	svix "github.com/svix/svix-webhooks/go"
)

// 身份提供方推送的事件种类；其余种类一律确认收到但不处理。
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
)

// ErrVerifyFailed 表示签名校验未通过。
var ErrVerifyFailed = errors.New("webhook signature verification failed")

// Event 是 Clerk Webhook 载荷的通用外壳。
type Event struct {
	Type string   `json:"type"`
	Data UserData `json:"data"`
}

// UserData 是 user.* 事件携带的账号快照。
type UserData struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	ImageURL       string         `json:"image_url"`
	Username       string         `json:"username"`
}

// EmailAddress 是账号邮箱列表中的一项。
type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail 返回列表中的第一个邮箱。
func (d UserData) PrimaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}

// FullName 拼接姓名，两段都为空时返回空串。
func (d UserData) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", d.FirstName, d.LastName))
}

// Verifier 校验 svix 签名并解码事件。
type Verifier struct {
	wh *svix.Webhook
}

// NewVerifier 用共享密钥构造校验器。
func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("webhook secret is required")
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("init webhook verifier: %w", err)
	}
	return &Verifier{wh: wh}, nil
}

// VerifyAndParse 校验签名头（svix-id / svix-timestamp / svix-signature）
// 并解码事件；签名不符返回 ErrVerifyFailed。
func (v *Verifier) VerifyAndParse(payload []byte, headers http.Header) (*Event, error) {
	if err := v.wh.Verify(payload, headers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	return &event, nil
}
