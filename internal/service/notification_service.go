package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"kidtasks/internal/engine"
	"kidtasks/internal/models"
)

// Milestones are the streak lengths that trigger a parent email
var Milestones = []int{3, 7, 14, 30, 60, 100, 365}

const sendTimeout = 15 * time.Second

// emailSender is the subset of the SES client used here
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// KidLookup resolves kid names for email text
type KidLookup interface {
	GetKidByID(ctx context.Context, kidID string) (*models.Kid, error)
}

// NotificationConfig configures milestone emails
type NotificationConfig struct {
	AWSRegion   string
	FromEmail   string
	FromName    string
	ParentEmail string
	Debug       bool
}

// NotificationService emails the parent when a kid reaches a streak milestone.
// It implements engine.StreakObserver; send failures are logged only.
type NotificationService struct {
	client  emailSender
	kids    KidLookup
	cfg     NotificationConfig
	enabled bool
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewNotificationService creates the service. It is disabled when no sender
// or no parent address is configured.
func NewNotificationService(ctx context.Context, cfg NotificationConfig, kids KidLookup, logger *slog.Logger) (*NotificationService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "notifications"))

	if cfg.FromEmail == "" || cfg.ParentEmail == "" {
		logger.Info("milestone email disabled: SES_FROM_EMAIL or PARENT_EMAIL not configured")
		return &NotificationService{kids: kids, cfg: cfg, logger: logger}, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("milestone email enabled",
		slog.String("from", cfg.FromEmail),
		slog.String("region", cfg.AWSRegion))
	return newNotificationService(sesv2.NewFromConfig(awsCfg), cfg, kids, logger), nil
}

func newNotificationService(client emailSender, cfg NotificationConfig, kids KidLookup, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{client: client, kids: kids, cfg: cfg, enabled: client != nil, logger: logger}
}

// IsEnabled returns whether the email service is enabled
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

// IsMilestone reports whether a streak of n days earns an email
func IsMilestone(n int) bool {
	return slices.Contains(Milestones, n)
}

// StreakUpdated sends the milestone email in the background
func (s *NotificationService) StreakUpdated(ctx context.Context, state models.StreakState, outcome engine.Outcome) {
	if !s.enabled || outcome == engine.OutcomeUnchanged || !IsMilestone(state.StreakCount) {
		return
	}

	// The request that completed the task may finish before SES answers
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := s.sendMilestone(sendCtx, state); err != nil {
			s.logger.Error("milestone email failed",
				slog.String("kid_id", state.KidID),
				slog.Int("streak", state.StreakCount),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until every pending email finished
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) sendMilestone(ctx context.Context, state models.StreakState) error {
	name := "Your kid"
	if s.kids != nil {
		kid, err := s.kids.GetKidByID(ctx, state.KidID)
		if err != nil {
			return err
		}
		if kid != nil {
			name = kid.Name
		}
	}

	subject := fmt.Sprintf("%s reached a %d day streak!", name, state.StreakCount)
	textBody := fmt.Sprintf(`%s finished every task for %d days in a row (through %s).

Longest streak so far: %d days.

---
This is an automated email from Kid Tasks. Please do not reply.
`, name, state.StreakCount, state.LastPerfectDate, state.LongestStreak)
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>%d day streak! 🎉</h1>
	<p><strong>%s</strong> finished every task for %d days in a row (through %s).</p>
	<p>Longest streak so far: %d days.</p>
	<p style="font-size: 12px; color: #666;">This is an automated email from Kid Tasks. Please do not reply.</p>
</body>
</html>
`, state.StreakCount, name, state.StreakCount, state.LastPerfectDate, state.LongestStreak)

	return s.sendEmail(ctx, s.cfg.ParentEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *NotificationService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}

	if s.cfg.Debug {
		s.logger.Debug("sending email",
			slog.String("from", fromAddress),
			slog.String("to", toEmail),
			slog.String("subject", subject),
			slog.Int("html_bytes", len(htmlBody)),
			slog.Int("text_bytes", len(textBody)))
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	attrs := []any{slog.String("to", toEmail), slog.String("subject", subject)}
	if result.MessageId != nil {
		attrs = append(attrs, slog.String("message_id", *result.MessageId))
	}
	s.logger.Info("email sent", attrs...)
	return nil
}
