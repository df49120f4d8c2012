package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type FCMConfig struct {
	// CredentialsPath is a service account JSON file. Empty means the client
	// options passed to NewFCM provide authentication.
	CredentialsPath string
	// ProjectID overrides the project_id found in the credentials file.
	ProjectID    string
	Endpoint     string
	ValidateOnly bool
	// Timeout bounds a single send; 0 leaves it to the caller's context.
	Timeout time.Duration
}

// FCMSender sends topic messages through the FCM HTTP v1 API.
type FCMSender struct {
	svc          *fcm.Service
	parent       string
	validateOnly bool
	timeout      time.Duration
}

// NewFCM builds the FCM client. It fails with a *ConfigurationError when the
// credentials file is unreadable or no project id can be determined.
func NewFCM(ctx context.Context, cfg FCMConfig, opts ...option.ClientOption) (*FCMSender, error) {
	s, err := newFCM(ctx, cfg, opts...)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	return s, nil
}

func newFCM(ctx context.Context, cfg FCMConfig, opts ...option.ClientOption) (*FCMSender, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)

	var base []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsPath); path != "" {
		pid, err := ProjectIDFromCredentials(path)
		if err != nil {
			return nil, err
		}
		if projectID == "" {
			projectID = pid
		}
		base = append(base, option.WithAuthCredentialsFile(option.ServiceAccount, path))
	}
	if projectID == "" {
		return nil, errors.New("fcm: project id is not configured")
	}
	if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
		base = append(base, option.WithEndpoint(ep))
	}

	svc, err := fcm.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("fcm: new service: %w", err)
	}
	return &FCMSender{
		svc:          svc,
		parent:       "projects/" + projectID,
		validateOnly: cfg.ValidateOnly,
		timeout:      cfg.Timeout,
	}, nil
}

func (s *FCMSender) Send(ctx context.Context, m Message) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req := &fcm.SendMessageRequest{
		ValidateOnly: s.validateOnly,
		Message: &fcm.Message{
			Topic: m.Topic,
			Notification: &fcm.Notification{
				Title: m.Title,
				Body:  m.Body,
			},
			Data: m.Data,
		},
	}
	resp, err := s.svc.Projects.Messages.Send(s.parent, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fcm send to topic %q: %w", m.Topic, err)
	}
	return resp.Name, nil
}

// StatusCode extracts the HTTP status of a provider error, or 0.
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// ProjectIDFromCredentials reads project_id from a service account file.
func ProjectIDFromCredentials(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("fcm: read credentials: %w", err)
	}
	var sa struct {
		Type      string `json:"type"`
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(b, &sa); err != nil {
		return "", fmt.Errorf("fcm: parse credentials %s: %w", path, err)
	}
	return strings.TrimSpace(sa.ProjectID), nil
}
