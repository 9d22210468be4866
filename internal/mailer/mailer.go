package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ignatzorin/taskbridge-backend/internal/goroutine"
	"github.com/ignatzorin/taskbridge-backend/internal/logger"
)

// SMTPMailer отправляет письма через SMTP. Отправка уходит в фоновую
// горутину: ошибка доставки логируется и никогда не влияет на операцию,
// которая письмо породила.
type SMTPMailer struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTPMailer создаёт почтовый клиент. Пустой host означает
// выключенную почту: письма только логируются.
func NewSMTPMailer(host, port, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Send ставит письмо в отправку и сразу возвращается.
func (m *SMTPMailer) Send(to, subject, body string) {
	log := logger.WithComponent("mailer").WithFields(map[string]interface{}{
		"to":      to,
		"subject": subject,
	})

	if m.host == "" {
		log.Info("почта выключена, письмо не отправлено")
		return
	}

	goroutine.SafeGo(func() {
		if err := m.deliver(to, subject, body); err != nil {
			log.WithError(err).Warn("не удалось отправить письмо")
			return
		}
		log.Debug("письмо отправлено")
	})
}

func (m *SMTPMailer) deliver(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}
