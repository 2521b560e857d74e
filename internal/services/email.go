package services

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/dimitrije/teamroom-api/internal/config"
)

// EmailService sends plain SMTP notifications. Sending is a no-op until SMTP is configured.
type EmailService struct {
	cfg  config.SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg, send: smtp.SendMail}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.From != ""
}

func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	return s.send(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

func (s *EmailService) SendAddedToTeamRoom(to, roomName, leaderName string) error {
	subject := fmt.Sprintf("You've been added to %s", roomName)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>New team room</h2>
			<p><strong>%s</strong> added you to <strong>%s</strong>.</p>
			<p>Open the app to vote on tools, rules and the weekly meeting.</p>
		</body>
		</html>
	`, html.EscapeString(leaderName), html.EscapeString(roomName))

	return s.Send(to, subject, body)
}

// SendSetupCompleted tells a member that every subject of the room's setup is confirmed.
func (s *EmailService) SendSetupCompleted(to, roomName string, confirmed []string) error {
	subject := fmt.Sprintf("%s is ready", roomName)
	var items strings.Builder
	for _, c := range confirmed {
		items.WriteString("<li>" + html.EscapeString(c) + "</li>")
	}
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Setup completed</h2>
			<p>The setup of <strong>%s</strong> is finished. Confirmed:</p>
			<ul>%s</ul>
		</body>
		</html>
	`, html.EscapeString(roomName), items.String())

	return s.Send(to, subject, body)
}
