package smtp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/go-prayer-verify/internal/config"
	"github.com/wneessen/go-mail"
)

const codeSubject = "Your verification code"

var codeBody = template.Must(template.New("code").Parse(`Your verification code is {{.Code}}.

It expires in {{.Minutes}} minutes. If you did not request this code you can ignore this email.
`))

// Mailer delivers verification codes by email.
type Mailer interface {
	SendCode(ctx context.Context, to, code string, expiresAt time.Time) error
}

// sender is satisfied by *mail.Client.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type mailer struct {
	client sender
	from   string
	now    func() time.Time
}

// NewMailer builds a go-mail client from cfg. Authentication is enabled when a
// username is configured; SMTPTLS selects mandatory STARTTLS.
func NewMailer(cfg *config.Config) (Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	if cfg.SMTPTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &mailer{client: client, from: cfg.SMTPFrom, now: time.Now}, nil
}

func (m *mailer) SendCode(ctx context.Context, to, code string, expiresAt time.Time) error {
	msg, err := m.buildCodeMsg(to, code, expiresAt)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	slog.Info("verification email sent", "to", to)
	return nil
}

func (m *mailer) buildCodeMsg(to, code string, expiresAt time.Time) (*mail.Msg, error) {
	minutes := int(expiresAt.Sub(m.now()).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	var body bytes.Buffer
	if err := codeBody.Execute(&body, struct {
		Code    string
		Minutes int
	}{code, minutes}); err != nil {
		return nil, fmt.Errorf("render verification email: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(codeSubject)
	msg.SetBodyString(mail.TypeTextPlain, body.String())
	return msg, nil
}
