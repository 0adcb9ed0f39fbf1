package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers through Amazon SES v2. Static credentials are optional; without
// them the default AWS credential chain applies.
type SESSender struct {
	api      sesAPI
	from     string
	renderer *Renderer
	logger   *slog.Logger
}

func NewSESSender(ctx context.Context, cfg SESConfig, renderer *Renderer, logger *slog.Logger) (*SESSender, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newSESSender(sesv2.NewFromConfig(awsCfg), cfg.From, renderer, logger), nil
}

func newSESSender(api sesAPI, from string, renderer *Renderer, logger *slog.Logger) *SESSender {
	return &SESSender{api: api, from: from, renderer: renderer, logger: logger}
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	rendered, err := s.renderer.Render(msg)
	if err != nil {
		return err
	}

	output, err := s.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(rendered.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(rendered.HTML)},
					Text: &types.Content{Data: aws.String(rendered.Text)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	if output == nil || output.MessageId == nil {
		return fmt.Errorf("ses send: empty message id")
	}

	s.logger.Info("invitation email accepted by SES", "to", msg.To, "kind", msg.Kind, "message_id", *output.MessageId)
	return nil
}
