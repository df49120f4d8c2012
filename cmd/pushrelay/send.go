package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pushrelay/internal/app"
	"pushrelay/internal/config"
	"pushrelay/internal/dispatch"
	"pushrelay/internal/eventbus"
	"pushrelay/internal/push"
	logx "pushrelay/pkg/logx"
)

type sendFlags struct {
	title string
	body  string
	typ   string
	data  []string
}

func (f *sendFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", dispatch.DefaultTitle, "notification title")
	cmd.Flags().StringVar(&f.body, "body", dispatch.DefaultBody, "notification body")
	cmd.Flags().StringVar(&f.typ, "type", dispatch.DefaultType, "notification type")
	cmd.Flags().StringArrayVar(&f.data, "data", nil, "extra data as key=value (repeatable)")
}

func (f *sendFlags) request() (dispatch.Request, error) {
	extra, err := parseData(f.data)
	if err != nil {
		return dispatch.Request{}, err
	}
	return dispatch.Request{
		Title:   f.title,
		Body:    f.body,
		Type:    f.typ,
		Extra:   extra,
		Present: dispatch.FieldTitle | dispatch.FieldBody | dispatch.FieldType,
	}, nil
}

// parseData turns key=value pairs into the extra data map.
func parseData(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --data %q, want key=value", kv)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

func sendCommand(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one notification and print the result",
		Long: `Send a notification through the configured provider without starting the server.

Examples:
  pushrelay send user --id 42 --title "Hi" --data order=7
  pushrelay send users --id 1 --id 2 --body "Maintenance tonight"
  pushrelay send topic --topic news --type announcement`,
	}

	var (
		uf, mf, tf sendFlags
		userID     string
		userIDs    []string
		topic      string
	)

	user := &cobra.Command{
		Use:   "user",
		Short: "Send to a single user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := uf.request()
			if err != nil {
				return err
			}
			return runSend(cmd, *cfgPath, func(ctx context.Context, d *dispatch.Dispatcher) (any, bool, error) {
				res, err := d.ToUser(ctx, dispatch.StringID(userID), req)
				return res, res.Success, err
			})
		},
	}
	user.Flags().StringVar(&userID, "id", "", "user id")
	uf.register(user)

	users := &cobra.Command{
		Use:   "users",
		Short: "Send to several users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := mf.request()
			if err != nil {
				return err
			}
			ids := make([]dispatch.ID, 0, len(userIDs))
			for _, id := range userIDs {
				ids = append(ids, dispatch.StringID(id))
			}
			return runSend(cmd, *cfgPath, func(ctx context.Context, d *dispatch.Dispatcher) (any, bool, error) {
				results, err := d.ToUsers(ctx, ids, req)
				ok := true
				for _, r := range results {
					ok = ok && r.Success
				}
				return results, ok, err
			})
		},
	}
	users.Flags().StringArrayVar(&userIDs, "id", nil, "user id (repeatable)")
	mf.register(users)

	topicCmd := &cobra.Command{
		Use:   "topic",
		Short: "Send to a topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := tf.request()
			if err != nil {
				return err
			}
			return runSend(cmd, *cfgPath, func(ctx context.Context, d *dispatch.Dispatcher) (any, bool, error) {
				res, err := d.ToTopic(ctx, topic, req)
				return res, res.Success, err
			})
		},
	}
	topicCmd.Flags().StringVar(&topic, "topic", "", "topic name")
	tf.register(topicCmd)

	cmd.AddCommand(user, users, topicCmd)
	return cmd
}

type sendFunc func(ctx context.Context, d *dispatch.Dispatcher) (result any, ok bool, err error)

func runSend(cmd *cobra.Command, cfgPath string, fn sendFunc) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	// stdout carries the result; logs go to stderr.
	log := logx.NewJSON(logx.Stderr(), cfg.Log.Level)

	ctx := cmd.Context()
	sender, err := app.NewSender(ctx, cfg)
	if err != nil {
		return err
	}
	return sendWith(ctx, cmd.OutOrStdout(), sender, cfg, log, fn)
}

func sendWith(ctx context.Context, out io.Writer, sender push.Sender, cfg *config.Config, log logx.Logger, fn sendFunc) error {
	d := dispatch.New(sender, dispatch.Options{
		FanoutWorkers: cfg.Dispatch.FanoutWorkers,
		FanoutRPS:     cfg.Dispatch.FanoutRPS,
	}, log, eventbus.New())

	result, ok, err := fn(ctx, d)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !ok {
		return errReported
	}
	return nil
}
