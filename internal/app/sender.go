package app

import (
	"context"

	"pushrelay/internal/config"
	"pushrelay/internal/push"
)

func fcmConfig(cfg *config.Config) push.FCMConfig {
	return push.FCMConfig{
		CredentialsPath: cfg.Firebase.CredentialsPath,
		ProjectID:       cfg.Firebase.ProjectID,
		Endpoint:        cfg.Firebase.Endpoint,
		ValidateOnly:    cfg.Firebase.ValidateOnly.Bool(),
		Timeout:         cfg.Firebase.SendTimeoutDuration(),
	}
}

// senderInit builds the FCM sender from cfg. The returned error is a *push.ConfigurationError.
func senderInit(cfg *config.Config) push.InitFunc {
	fc := fcmConfig(cfg)
	return func(ctx context.Context) (push.Sender, error) {
		s, err := push.NewFCM(ctx, fc)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// NewSender initializes the FCM sender synchronously. One-shot commands use it
// so credential problems fail the command instead of degrading.
func NewSender(ctx context.Context, cfg *config.Config) (push.Sender, error) {
	return senderInit(cfg)(ctx)
}
