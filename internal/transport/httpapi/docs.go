package httpapi

type endpointDoc struct {
	Method      string            `json:"method"`
	Description string            `json:"description"`
	Body        map[string]string `json:"body,omitempty"`
}

type docsResponse struct {
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Endpoints map[string]endpointDoc `json:"endpoints"`
}

var contentFields = map[string]string{
	"title": "string (optional), notification title",
	"body":  "string (optional), notification body",
	"type":  "string (optional), notification type, default general",
	"data":  "object (optional), extra data; values are sent as strings",
}

func withContent(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields)+len(contentFields))
	for k, v := range contentFields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

var catalog = docsResponse{
	Service: docsName,
	Version: docsVersion,
	Endpoints: map[string]endpointDoc{
		"/api/notify/user": {
			Method:      "POST",
			Description: "Send a notification to a single user",
			Body:        withContent(map[string]string{"user_id": "string or number (required)"}),
		},
		"/api/notify/users": {
			Method:      "POST",
			Description: "Send a notification to multiple users",
			Body:        withContent(map[string]string{"user_ids": "array (required), user ids"}),
		},
		"/api/notify/topic": {
			Method:      "POST",
			Description: "Send a notification to all subscribers of a topic",
			Body:        withContent(map[string]string{"topic": "string (required), topic name"}),
		},
		"/api/health": {
			Method:      "GET",
			Description: "Service health check",
		},
		"/api/docs": {
			Method:      "GET",
			Description: "This endpoint catalog",
		},
	},
}
