package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/dashboard-backend/internal/config"
	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// Service sends templated outreach emails through SendGrid.
type Service struct {
	key     string
	appName string
	from    *sgmail.Email
	logger  *zap.Logger
}

func NewService(cfg config.EmailConfig, logger *zap.Logger) *Service {
	return &Service{
		key:     cfg.SendGridKey,
		appName: cfg.AppName,
		from:    sgmail.NewEmail(cfg.AppName, cfg.FromEmail),
		logger:  logger,
	}
}

// Enabled reports whether a SendGrid key is configured.
func (s *Service) Enabled() bool {
	return s.key != ""
}

// SendOutreach renders the named template and sends it to one user.
func (s *Service) SendOutreach(ctx context.Context, req entity.OutreachEmailRequest) error {
	if req.ToEmail == "" {
		return fmt.Errorf("%w: to_email", entity.ErrMissingField)
	}

	subject, body, err := Render(s.appName, req.Template, req.ToName, req.Subject, req.Body)
	if err != nil {
		return err
	}

	msg := sgmail.NewV3Mail()
	msg.SetFrom(s.from)

	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail(req.ToName, req.ToEmail))
	msg.AddPersonalizations(p)

	msg.AddContent(sgmail.NewContent("text/plain", body))

	sgReq := sendgrid.GetRequest(s.key, endpoint, host)
	sgReq.Method = http.MethodPost
	sgReq.Body = sgmail.GetRequestBody(msg)

	resp, err := sendgrid.MakeRequestWithContext(ctx, sgReq)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send email: sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}

	s.logger.Info("outreach email sent",
		zap.String("to", req.ToEmail),
		zap.String("template", req.Template),
	)

	return nil
}
