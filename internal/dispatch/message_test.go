package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 10, 30, 0, 123456000, time.UTC)

func TestBuildMessageUserChannel(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`42`, `"42"`, `"abc-7"`, `10`} {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(raw), &id))

		msg := BuildMessage(UserChannel(id), id, Request{}, fixedNow)
		assert.Equal(t, "user_"+id.String(), msg.Topic, raw)
		assert.Equal(t, id.String(), msg.Data["user_id"], raw)
	}
}

func TestBuildMessageDefaultsAndBaseFields(t *testing.T) {
	t.Parallel()

	msg := BuildMessage("user_1", StringID("1"), Request{}, fixedNow)
	assert.Equal(t, DefaultTitle, msg.Title)
	assert.Equal(t, DefaultBody, msg.Body)
	assert.Equal(t, map[string]string{
		"user_id":   "1",
		"type":      "general",
		"timestamp": "2024-05-01T10:30:00.123456Z",
		"message":   DefaultBody,
	}, msg.Data)
}

func TestBuildMessageKeepsExplicitEmptyFields(t *testing.T) {
	t.Parallel()

	req := Request{Body: "b", Present: FieldTitle | FieldType}
	msg := BuildMessage("user_1", StringID("1"), req, fixedNow)
	assert.Empty(t, msg.Title)
	assert.Equal(t, "b", msg.Body)
	assert.Empty(t, msg.Data["type"])

	msg = BuildMessage("user_1", StringID("1"), Request{Present: FieldBody}, fixedNow)
	assert.Equal(t, DefaultTitle, msg.Title)
	assert.Empty(t, msg.Body)
	assert.Empty(t, msg.Data["message"])
}

func TestBuildMessageTopicHasNoUserID(t *testing.T) {
	t.Parallel()

	msg := BuildMessage("announcements", ID{}, Request{Title: "Daily Update", Type: "announcement"}, fixedNow)
	assert.Equal(t, "announcements", msg.Topic)
	assert.NotContains(t, msg.Data, "user_id")
	assert.Equal(t, "announcement", msg.Data["type"])
}

func TestBuildMessageExtraOverwritesBase(t *testing.T) {
	t.Parallel()

	req := Request{
		Body: "You have a booking tomorrow at 10:00 AM",
		Extra: map[string]any{
			"message": "Reminder: You have a booking tomorrow",
			"type":    "booking",
		},
	}
	msg := BuildMessage("user_1", StringID("1"), req, fixedNow)
	assert.Equal(t, "Reminder: You have a booking tomorrow", msg.Data["message"])
	assert.Equal(t, "booking", msg.Data["type"])
	assert.Equal(t, "You have a booking tomorrow at 10:00 AM", msg.Body, "notification body is not affected")
}

func TestBuildMessageIsDeterministicExceptTimestamp(t *testing.T) {
	t.Parallel()

	req := Request{Title: "t", Body: "b", Type: "booking", Extra: map[string]any{"ref": 9}}
	a := BuildMessage("user_5", StringID("5"), req, fixedNow)
	b := BuildMessage("user_5", StringID("5"), req, fixedNow.Add(time.Minute))

	assert.Equal(t, a.Title, b.Title)
	assert.Equal(t, a.Body, b.Body)
	assert.NotEqual(t, a.Data["timestamp"], b.Data["timestamp"])
	delete(a.Data, "timestamp")
	delete(b.Data, "timestamp")
	assert.Equal(t, a.Data, b.Data)
}

func TestStringify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{true, "true"},
		{json.Number("12.50"), "12.50"},
		{float64(3), "3"},
		{1.5, "1.5"},
		{7, "7"},
		{map[string]any{"a": 1}, `{"a":1}`},
		{[]any{"x", 2}, `["x",2]`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Stringify(tc.in), "%#v", tc.in)
	}
}

func TestIDJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		text    string
		zero    bool
		reEmits string
	}{
		{`17`, "17", false, `17`},
		{`"17"`, "17", false, `"17"`},
		{`""`, "", true, `""`},
		{`null`, "null", true, `null`},
		{`1e3`, "1e3", false, `1e3`},
		{`0`, "0", true, `0`},
		{`-0.0`, "-0.0", true, `-0.0`},
		{`0.5`, "0.5", false, `0.5`},
		{`false`, "false", true, `false`},
		{`true`, "true", false, `true`},
		{`{ }`, "{}", true, `{}`},
		{`{"a": 1}`, `{"a":1}`, false, `{"a":1}`},
		{`[1, 2]`, `[1,2]`, false, `[1,2]`},
	}
	for _, tc := range cases {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(tc.raw), &id), tc.raw)
		assert.Equal(t, tc.text, id.String(), tc.raw)
		assert.Equal(t, tc.zero, id.IsZero(), tc.raw)
		out, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, tc.reEmits, string(out), tc.raw)
	}
}

func TestIDAddressable(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]bool{
		`7`:       true,
		`"u-7"`:   true,
		`0`:       false,
		`""`:      false,
		`null`:    false,
		`true`:    false,
		`{"a":1}`: false,
		`["x"]`:   false,
	} {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(raw), &id), raw)
		assert.Equal(t, want, id.Addressable(), raw)
	}
}
