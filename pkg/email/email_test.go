package email

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSenderDisabledWithoutHost(t *testing.T) {
	assert.Nil(t, NewSender("", "587", "noreply@blogsphere.dev", "pw"))
	assert.Nil(t, NewSender("smtp.example.com", "587", "", "pw"))
}

func TestSendEmail(t *testing.T) {
	s := NewSender("smtp.example.com", "587", "noreply@blogsphere.dev", "pw")
	require.NotNil(t, s)

	var gotAddr string
	var gotTo []string
	var gotMsg string
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, s.SendEmail("ada@example.com", "Welcome", "Hello Ada"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Welcome\r\n")
	assert.Contains(t, gotMsg, "Hello Ada")

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }
	assert.ErrorContains(t, s.SendEmail("ada@example.com", "Welcome", "x"), "relay down")
}
