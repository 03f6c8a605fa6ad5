package telephony

import (
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"voiceagent/internal/config"
)

// Dialer places outbound calls through the provider REST API. The answered
// call is driven by the same voice webhook as inbound calls.

var ErrDialer = errors.New("telephony: dialer error")

type Dialer struct {
	api         dialerAPI
	fromNumber  string
	voiceURL    string
	statusURL   string
	statusEvent []string
}

// dialerAPI is the slice of the provider client the dialer uses.
type dialerAPI interface {
	CreateCall(params *twilioapi.CreateCallParams) (*twilioapi.ApiV2010Call, error)
}

func NewDialer(cfg config.TwilioConfig) (*Dialer, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("telephony: twilio credentials are required")
	}
	if cfg.PhoneNumber == "" {
		return nil, errors.New("telephony: TWILIO_PHONE_NUMBER is required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Dialer{
		api:         client.Api,
		fromNumber:  cfg.PhoneNumber,
		voiceURL:    cfg.WebhookBaseURL + "/voice",
		statusURL:   cfg.WebhookBaseURL + "/status",
		statusEvent: []string{"initiated", "ringing", "answered", "completed"},
	}, nil
}

// Dial starts a call to the given number and returns the provider call SID.
// An empty fromNumber uses the configured caller id.
func (d *Dialer) Dial(toNumber, fromNumber string) (string, error) {
	if toNumber == "" {
		return "", fmt.Errorf("%w: to number is required", ErrDialer)
	}
	if fromNumber == "" {
		fromNumber = d.fromNumber
	}

	params := &twilioapi.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(fromNumber)
	params.SetUrl(d.voiceURL)
	params.SetStatusCallback(d.statusURL)
	params.SetStatusCallbackEvent(d.statusEvent)

	call, err := d.api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDialer, err)
	}
	if call == nil || call.Sid == nil || *call.Sid == "" {
		return "", fmt.Errorf("%w: provider returned no call sid", ErrDialer)
	}
	return *call.Sid, nil
}
