package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emailhub/internal/model"
	"emailhub/internal/refine"
	"emailhub/internal/service/email"
	"emailhub/pkg/logger"
)

type EmailService interface {
	Send(ctx context.Context, userID int, recipient, subject, body string) (*email.SendResult, error)
	ListEmails(ctx context.Context, userID int, userEmail string) ([]model.EmailRecord, error)
	ScoreDraft(subject, body string) int
	RefineDraft(ctx context.Context, subject, body string) refine.Result
}

type SendRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type SendResponse struct {
	SpamScore  int    `json:"spam_score"`
	Delivered  bool   `json:"delivered"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

// DraftRequest is accepted with either field missing; an empty request body is an
// empty draft.
type DraftRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type ScoreResponse struct {
	SpamScore int `json:"spam_score"`
}

type RefineResponse struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	SpamScore int    `json:"spam_score"`
	Provider  string `json:"provider"`
	Error     string `json:"error,omitempty"`
}

type EmailHandler struct {
	svc    EmailService
	logger *zap.Logger
}

func NewEmailHandler(svc EmailService, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{svc: svc, logger: logger}
}

// Send handles POST /api/email/send
func (h *EmailHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	res, err := h.svc.Send(ctx, c.GetInt(ctxUserID), req.Recipient, req.Subject, req.Body)
	if err != nil {
		logger.WithTrace(ctx, h.logger).Error("Send failed",
			zap.Int("user_id", c.GetInt(ctxUserID)),
			zap.String("recipient", req.Recipient),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send email"})
		return
	}

	c.JSON(http.StatusOK, SendResponse{
		SpamScore:  res.SpamScore,
		Delivered:  res.Delivered,
		PreviewURL: res.PreviewURL,
	})
}

// List handles GET /api/email
func (h *EmailHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	emails, err := h.svc.ListEmails(ctx, c.GetInt(ctxUserID), c.GetString(ctxUserEmail))
	if err != nil {
		logger.WithTrace(ctx, h.logger).Error("List emails failed",
			zap.Int("user_id", c.GetInt(ctxUserID)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch emails"})
		return
	}

	c.JSON(http.StatusOK, emails)
}

// Score handles POST /api/email/score
func (h *EmailHandler) Score(c *gin.Context) {
	req, ok := bindDraft(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ScoreResponse{SpamScore: h.svc.ScoreDraft(req.Subject, req.Body)})
}

// Refine handles POST /api/email/refine
func (h *EmailHandler) Refine(c *gin.Context) {
	req, ok := bindDraft(c)
	if !ok {
		return
	}

	res := h.svc.RefineDraft(c.Request.Context(), req.Subject, req.Body)
	c.JSON(http.StatusOK, RefineResponse{
		Subject:   res.Draft.Subject,
		Body:      res.Draft.Body,
		SpamScore: res.SpamScore,
		Provider:  res.Provider,
		Error:     res.Reason,
	})
}

func bindDraft(c *gin.Context) (DraftRequest, bool) {
	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return req, false
	}
	return req, true
}
