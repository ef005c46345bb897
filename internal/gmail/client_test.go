package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// fakeMailbox serves the subset of the Gmail API used by Client.
type fakeMailbox struct {
	mu       sync.Mutex
	labels   []*gmail.Label
	pages    []*gmail.ListMessagesResponse
	messages map[string]*gmail.Message
	queries  []string
	tokens   []string
	gets     []string
}

func (f *fakeMailbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/gmail/v1/users/me/"
	path := strings.TrimPrefix(r.URL.Path, prefix)
	switch {
	case path == "labels":
		writeJSON(w, &gmail.ListLabelsResponse{Labels: f.labels})

	case path == "messages":
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		token := r.URL.Query().Get("pageToken")
		f.tokens = append(f.tokens, token)
		page := 0
		if token != "" {
			for i := range f.pages {
				if i > 0 && f.pages[i-1].NextPageToken == token {
					page = i
				}
			}
		}
		if len(f.pages) == 0 {
			writeJSON(w, &gmail.ListMessagesResponse{})
			return
		}
		writeJSON(w, f.pages[page])

	case strings.HasPrefix(path, "messages/"):
		id := strings.TrimPrefix(path, "messages/")
		f.gets = append(f.gets, id+"?format="+r.URL.Query().Get("format"))
		msg, ok := f.messages[id]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, msg)

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, mb *fakeMailbox) *Client {
	t.Helper()

	srv := httptest.NewServer(mb)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.Client(), []option.ClientOption{
		option.WithEndpoint(srv.URL + "/"),
	})
	require.NoError(t, err)
	return client
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestClient_ListLabels(t *testing.T) {
	mb := &fakeMailbox{labels: []*gmail.Label{
		{Id: "INBOX", Name: "INBOX"},
		{Id: "Label_1", Name: "Receipts"},
	}}
	client := newTestClient(t, mb)

	labels, err := client.ListLabels(context.Background())
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "Receipts", labels[1].Name)
}

func TestClient_SpanStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	mb := &fakeMailbox{
		labels:   []*gmail.Label{{Id: "INBOX", Name: "INBOX"}},
		messages: map[string]*gmail.Message{},
	}
	client := newTestClient(t, mb)

	_, err := client.ListLabels(context.Background())
	require.NoError(t, err)
	_, err = client.GetMessage(context.Background(), "missing")
	require.Error(t, err)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
}

func TestClient_ListMessages_Pagination(t *testing.T) {
	mb := &fakeMailbox{pages: []*gmail.ListMessagesResponse{
		{Messages: []*gmail.Message{{Id: "m1"}, {Id: "m2"}}, NextPageToken: "p2"},
		{NextPageToken: "p3"},
		{Messages: []*gmail.Message{{Id: "m3"}}},
	}}
	client := newTestClient(t, mb)

	msgs, err := client.ListMessages(context.Background(), `label:"Receipts"`)
	require.NoError(t, err)

	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.Id
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
	assert.Equal(t, []string{"", "p2", "p3"}, mb.tokens)
	for _, q := range mb.queries {
		assert.Equal(t, `label:"Receipts"`, q)
	}
}

func TestClient_ListMessages_Empty(t *testing.T) {
	client := newTestClient(t, &fakeMailbox{})

	msgs, err := client.ListMessages(context.Background(), "label:X")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestClient_ForeachMessage_StopsOnError(t *testing.T) {
	mb := &fakeMailbox{pages: []*gmail.ListMessagesResponse{
		{Messages: []*gmail.Message{{Id: "m1"}, {Id: "m2"}}, NextPageToken: "p2"},
		{Messages: []*gmail.Message{{Id: "m3"}}},
	}}
	client := newTestClient(t, mb)

	stop := assert.AnError
	var seen []string
	err := client.ForeachMessage(context.Background(), "", func(m *gmail.Message) error {
		seen = append(seen, m.Id)
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"m1"}, seen)
	assert.Len(t, mb.tokens, 1)
}

func TestClient_GetMessage(t *testing.T) {
	mb := &fakeMailbox{messages: map[string]*gmail.Message{
		"m1": {Id: "m1", ThreadId: "t1"},
	}}
	client := newTestClient(t, mb)

	msg, err := client.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "t1", msg.ThreadId)
	assert.Equal(t, []string{"m1?format=full"}, mb.gets)

	_, err = client.GetMessage(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestWithUserID(t *testing.T) {
	svc, err := gmail.NewService(context.Background(), option.WithHTTPClient(http.DefaultClient))
	require.NoError(t, err)

	c := NewClientWithService(svc, WithUserID("someone@example.com"))
	assert.Equal(t, "someone@example.com", c.userID)

	c = NewClientWithService(svc)
	assert.Equal(t, DefaultUserID, c.userID)
}
