// Package sms wraps the Twilio SDK surfaces this service touches: outbound
// messages, webhook signature validation, and TwiML reply bodies.
package sms

import (
	"fmt"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

// Sender sends outbound messages. Implemented by TwilioSender; tests use a
// recording fake.
type Sender interface {
	Send(to, body string, mediaURLs ...string) error
}

// WebhookValidator checks an inbound webhook signature against the shared
// auth token and the configured callback URL.
type WebhookValidator interface {
	Validate(url string, params map[string]string, signature string) bool
}

// TwilioSender sends via the Twilio REST API from a fixed number.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken}),
		from:   from,
	}
}

func (s *TwilioSender) Send(to, body string, mediaURLs ...string) error {
	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)
	if len(mediaURLs) > 0 {
		params.SetMediaUrl(mediaURLs)
	}
	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	return nil
}

// NewValidator returns Twilio's request validator behind the local
// interface.
func NewValidator(authToken string) WebhookValidator {
	v := twclient.NewRequestValidator(authToken)
	return &v
}

// Reply renders a single-message TwiML response body.
func Reply(body string) (string, error) {
	return twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: body}})
}
