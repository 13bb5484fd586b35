package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultSandboxAPIURL = "https://api.nodemailer.com/user"
	DefaultSandboxWebURL = "https://ethereal.email"
	DefaultSMTPHost      = "smtp.ethereal.email"
	DefaultSMTPPort      = 587
)

// SandboxAccount is a throwaway Ethereal mailbox. Mail sent through it is captured
// and viewable on the web instead of being delivered.
type SandboxAccount struct {
	User string `json:"user"`
	Pass string `json:"pass"`
	SMTP struct {
		Host   string `json:"host"`
		Port   int    `json:"port"`
		Secure bool   `json:"secure"`
	} `json:"smtp"`
	Web string `json:"web"`
}

type sandboxResponse struct {
	SandboxAccount
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Sandbox creates one account on first use and hands out the same account afterwards.
type Sandbox struct {
	apiURL     string
	httpClient *http.Client

	mu      sync.Mutex
	account *SandboxAccount
}

func NewSandbox(apiURL string, httpClient *http.Client) *Sandbox {
	if apiURL == "" {
		apiURL = DefaultSandboxAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Sandbox{apiURL: apiURL, httpClient: httpClient}
}

func (s *Sandbox) Account(ctx context.Context) (*SandboxAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.account != nil {
		return s.account, nil
	}

	account, err := s.create(ctx)
	if err != nil {
		return nil, err
	}
	s.account = account
	return account, nil
}

func (s *Sandbox) create(ctx context.Context) (*SandboxAccount, error) {
	payload, err := json.Marshal(map[string]string{
		"requestor": "emailhub",
		"version":   "1.0.0",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create sandbox account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create sandbox account: unexpected status %d", resp.StatusCode)
	}

	var out sandboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sandbox account: %w", err)
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("create sandbox account: %s", out.Error)
	}

	account := out.SandboxAccount
	if account.SMTP.Host == "" {
		account.SMTP.Host = DefaultSMTPHost
	}
	if account.SMTP.Port == 0 {
		account.SMTP.Port = DefaultSMTPPort
	}
	if account.Web == "" {
		account.Web = DefaultSandboxWebURL
	}
	return &account, nil
}
