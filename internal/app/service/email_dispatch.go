package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/sifan077/MailPulse/internal/app/repository"
	"github.com/sifan077/MailPulse/internal/http/view"
	"github.com/sifan077/MailPulse/internal/infra/mail"
	"go.uber.org/zap"
)

// SendBatchInput is one send-email request.
type SendBatchInput struct {
	Subject     string   `json:"subject" validate:"max=998"`
	Body        string   `json:"body"`
	ImageURL    string   `json:"image_url" validate:"omitempty,url"`
	RedirectURL string   `json:"redirect_url" validate:"omitempty,url"`
	Emails      []string `json:"emails" validate:"required,min=1,max=500,dive,required,email"`
}

// SendResult is the outcome for one recipient.
type SendResult struct {
	Email      string `json:"email"`
	Success    bool   `json:"success"`
	TrackingID string `json:"tracking_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// EmailDispatcher creates a tracking record per recipient and sends the composed message.
type EmailDispatcher interface {
	SendBatch(ctx context.Context, input SendBatchInput, baseURL string, caller model.Caller) ([]SendResult, error)
}

// EmailDispatcherDeps wires the dispatcher.
type EmailDispatcherDeps struct {
	Records            repository.TrackingRepository
	Sender             mail.Sender
	From               string
	DefaultRedirectURL string
	Logger             *zap.Logger
}

type emailDispatcher struct {
	records         repository.TrackingRepository
	sender          mail.Sender
	from            string
	defaultRedirect string
	validate        *validator.Validate
	logger          *zap.Logger
}

// NewEmailDispatcher returns an EmailDispatcher.
func NewEmailDispatcher(deps EmailDispatcherDeps) EmailDispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &emailDispatcher{
		records:         deps.Records,
		sender:          deps.Sender,
		from:            deps.From,
		defaultRedirect: deps.DefaultRedirectURL,
		validate:        newValidator(),
		logger:          logger,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SendBatch processes recipients in order. A failure for one recipient is
// reported in its result and never affects the others. Only request
// validation fails the whole call.
func (d *emailDispatcher) SendBatch(ctx context.Context, input SendBatchInput, baseURL string, caller model.Caller) ([]SendResult, error) {
	if input.Emails != nil {
		emails := make([]string, len(input.Emails))
		for i, e := range input.Emails {
			emails[i] = strings.TrimSpace(e)
		}
		input.Emails = emails
	}
	if err := d.validate.Struct(&input); err != nil {
		return nil, toValidationError(err)
	}

	redirect := input.RedirectURL
	if redirect == "" {
		redirect = d.defaultRedirect
	}

	results := make([]SendResult, 0, len(input.Emails))
	for _, email := range input.Emails {
		results = append(results, d.sendOne(ctx, input, email, redirect, baseURL, caller))
	}
	return results, nil
}

func (d *emailDispatcher) sendOne(ctx context.Context, input SendBatchInput, email, redirect, baseURL string, caller model.Caller) SendResult {
	record := &model.TrackingRecord{
		TrackingID: NewTrackingID(),
		OwnerID:    caller.UserID,
		Recipient:  email,
		Subject:    input.Subject,
	}
	if err := d.records.Create(ctx, record); err != nil {
		emailsSent.WithLabelValues("failed").Inc()
		d.logger.Error("failed to create tracking record", zap.String("email", email), zap.Error(err))
		return SendResult{Email: email, Error: "failed to create tracking record"}
	}

	html, err := view.RenderEmailBody(view.EmailBodyData{
		BaseURL:     baseURL,
		TrackingID:  record.TrackingID,
		Body:        input.Body,
		ImageURL:    input.ImageURL,
		RedirectURL: redirect,
	})
	if err != nil {
		emailsSent.WithLabelValues("failed").Inc()
		d.logger.Error("failed to render email body", zap.String("tracking_id", record.TrackingID), zap.Error(err))
		return SendResult{Email: email, TrackingID: record.TrackingID, Error: "failed to render email body"}
	}

	if err := d.send(ctx, mail.Message{From: d.from, To: email, Subject: input.Subject, HTMLBody: html}); err != nil {
		emailsSent.WithLabelValues("failed").Inc()
		d.logger.Warn("failed to send tracked email",
			zap.String("email", email),
			zap.String("tracking_id", record.TrackingID),
			zap.Error(err),
		)
		return SendResult{Email: email, TrackingID: record.TrackingID, Error: err.Error()}
	}

	emailsSent.WithLabelValues("sent").Inc()
	return SendResult{Email: email, Success: true, TrackingID: record.TrackingID}
}

func (d *emailDispatcher) send(ctx context.Context, msg mail.Message) error {
	if d.sender == nil {
		return mail.ErrNotConfigured
	}
	return d.sender.Send(ctx, msg)
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
	}
	return fmt.Errorf("validate send request: %w", err)
}
