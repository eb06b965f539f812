package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sifan077/MailPulse/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestSMTPSender_BuildsMessage(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com"})

	var sent []*gomail.Message
	s.send = func(msgs ...*gomail.Message) error {
		sent = append(sent, msgs...)
		return nil
	}

	err := s.Send(context.Background(), Message{
		From:     "news@example.com",
		To:       "a@x.com",
		Subject:  "Hello",
		HTMLBody: "<p>hi</p>",
	})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"news@example.com"}, sent[0].GetHeader("From"))
	assert.Equal(t, []string{"a@x.com"}, sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Hello"}, sent[0].GetHeader("Subject"))
}

func TestNewDialer_TLSModes(t *testing.T) {
	d := newDialer(config.SMTPConfig{Host: "smtp.example.com"})
	assert.Equal(t, 587, d.Port)
	assert.False(t, d.SSL)
	assert.Nil(t, d.TLSConfig)

	d = newDialer(config.SMTPConfig{Host: "smtp.example.com", Port: 465})
	assert.True(t, d.SSL)

	d = newDialer(config.SMTPConfig{Host: "relay.internal", Port: 25, SkipVerify: true})
	assert.False(t, d.SSL)
	require.NotNil(t, d.TLSConfig)
	assert.True(t, d.TLSConfig.InsecureSkipVerify)
	assert.Equal(t, "relay.internal", d.TLSConfig.ServerName)
}

func TestSMTPSender_Errors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		err := NewSMTPSender(config.SMTPConfig{}).Send(context.Background(), Message{To: "a@x.com"})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("transport failure is wrapped", func(t *testing.T) {
		boom := errors.New("535 auth failed")
		s := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com"})
		s.send = func(...*gomail.Message) error { return boom }

		err := s.Send(context.Background(), Message{To: "a@x.com"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com"})
		s.send = func(...*gomail.Message) error {
			t.Fatal("must not dial")
			return nil
		}
		assert.ErrorIs(t, s.Send(ctx, Message{To: "a@x.com"}), context.Canceled)
	})
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	fake := &fakeSES{}
	s := &SESSender{client: fake}

	err := s.Send(context.Background(), Message{From: "news@example.com", To: "b@x.com", Subject: "S", HTMLBody: "<b>x</b>"})
	require.NoError(t, err)
	assert.Equal(t, "news@example.com", aws.ToString(fake.input.FromEmailAddress))
	assert.Equal(t, []string{"b@x.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "<b>x</b>", aws.ToString(fake.input.Content.Simple.Body.Html.Data))

	fake.err = errors.New("throttled")
	assert.ErrorIs(t, s.Send(context.Background(), Message{To: "b@x.com"}), fake.err)
}

func TestFromAddress(t *testing.T) {
	assert.Equal(t, "news@example.com", FromAddress(config.MailConfig{From: "news@example.com", SMTP: config.SMTPConfig{Username: "u@example.com"}}))
	assert.Equal(t, "u@example.com", FromAddress(config.MailConfig{SMTP: config.SMTPConfig{Username: "u@example.com"}}))
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.MailConfig{Provider: "fax"})
	assert.Error(t, err)
}
