package services

import (
	"net/smtp"
	"testing"

	"github.com/dimitrije/teamroom-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configuredSMTP() config.SMTPConfig {
	return config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     "587",
		Username: "user@example.com",
		Password: "password",
		From:     "noreply@example.com",
	}
}

func TestEmailService_IsConfigured(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*config.SMTPConfig)
		want   bool
	}{
		{"complete", func(*config.SMTPConfig) {}, true},
		{"missing host", func(c *config.SMTPConfig) { c.Host = "" }, false},
		{"missing username", func(c *config.SMTPConfig) { c.Username = "" }, false},
		{"missing password", func(c *config.SMTPConfig) { c.Password = "" }, false},
		{"missing from", func(c *config.SMTPConfig) { c.From = "" }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := configuredSMTP()
			tc.mutate(&cfg)
			assert.Equal(t, tc.want, NewEmailService(cfg).IsConfigured())
		})
	}
}

func TestEmailService_Send_NotConfigured(t *testing.T) {
	svc := NewEmailService(config.SMTPConfig{})
	svc.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called without SMTP config")
		return nil
	}

	assert.NoError(t, svc.Send("to@example.com", "Subject", "Body"))
	assert.NoError(t, svc.SendSetupCompleted("to@example.com", "Room", nil))
}

func TestEmailService_SendSetupCompleted(t *testing.T) {
	svc := NewEmailService(configuredSMTP())
	var gotAddr string
	var gotTo []string
	var gotMsg string
	svc.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := svc.SendSetupCompleted("member@example.com", "Team <Alpha>", []string{"tool", "rule", "meeting"})

	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"member@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Team <Alpha> is ready")
	assert.Contains(t, gotMsg, "Team &lt;Alpha&gt;")
	assert.Contains(t, gotMsg, "<li>meeting</li>")
}
