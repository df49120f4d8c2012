package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushrelay/internal/config"
	"pushrelay/internal/dispatch"
	"pushrelay/internal/push"
	logx "pushrelay/pkg/logx"
)

func TestParseData(t *testing.T) {
	got, err := parseData([]string{"order=7", " k =a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"order": "7", "k": "a=b", "empty": ""}, got)

	got, err = parseData(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseData([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseData([]string{"=v"})
	assert.Error(t, err)
}

func TestSendWithPrintsResult(t *testing.T) {
	sender := push.SenderFunc(func(_ context.Context, m push.Message) (string, error) {
		if m.Topic == "user_2" {
			return "", errors.New("unregistered")
		}
		return "projects/p/messages/" + m.Topic, nil
	})
	ids := []dispatch.ID{dispatch.StringID("1"), dispatch.StringID("2")}

	var out bytes.Buffer
	err := sendWith(context.Background(), &out, sender, config.Default(), logx.Nop(),
		func(ctx context.Context, d *dispatch.Dispatcher) (any, bool, error) {
			results, err := d.ToUsers(ctx, ids, dispatch.Request{})
			return results, results[0].Success && results[1].Success, err
		})
	require.ErrorIs(t, err, errReported)

	var results []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, true, results[0]["success"])
	assert.Equal(t, "unregistered", results[1]["error"])
}

func TestSendWithValidationError(t *testing.T) {
	var out bytes.Buffer
	err := sendWith(context.Background(), &out, push.SenderFunc(func(context.Context, push.Message) (string, error) {
		t.Fatal("sender must not be called")
		return "", nil
	}), config.Default(), logx.Nop(), func(ctx context.Context, d *dispatch.Dispatcher) (any, bool, error) {
		res, err := d.ToTopic(ctx, "", dispatch.Request{})
		return res, res.Success, err
	})
	require.ErrorIs(t, err, dispatch.ErrValidation)
	assert.Zero(t, out.Len())
}

func TestEnvCommandListsVariables(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"env"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "SCHEDULER_INTERVAL")
}
