package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/channelintel/backend/internal/apperr"
	"github.com/channelintel/backend/internal/domain"
	"github.com/channelintel/backend/internal/ingest"
	"github.com/channelintel/backend/internal/summarizer"
)

type fakeStore struct {
	sources       []domain.Source
	messages      map[string]*domain.Message
	feedback      []string
	subscribers   []string
	upsertedURLs  []string
	listSourcesErr error
}

func (f *fakeStore) ListSources(context.Context) ([]domain.Source, error) {
	return f.sources, f.listSourcesErr
}

func (f *fakeStore) UpsertSource(_ context.Context, s *domain.Source) (string, error) {
	f.upsertedURLs = append(f.upsertedURLs, s.URL)
	return "id-" + s.URL, nil
}

func (f *fakeStore) GetMessageByID(_ context.Context, id string) (*domain.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, errNotFoundStub{}
	}

	return m, nil
}

func (f *fakeStore) TopicSummariesForPeriod(context.Context, domain.Period) ([]domain.TopicSummary, error) {
	return nil, nil
}

func (f *fakeStore) SaveFeedback(_ context.Context, email, message, kind string) error {
	f.feedback = append(f.feedback, email+"|"+message+"|"+kind)
	return nil
}

func (f *fakeStore) SaveSubscriber(_ context.Context, email, _ string) error {
	f.subscribers = append(f.subscribers, email)
	return nil
}

type errNotFoundStub struct{}

func (errNotFoundStub) Error() string { return "not found" }

func (errNotFoundStub) Unwrap() error { return apperr.ErrNotFound }

type fakeIngestor struct {
	ran  chan ingest.Request
	err  error
}

func (f *fakeIngestor) Run(_ context.Context, req ingest.Request) error {
	if f.ran != nil {
		f.ran <- req
	}

	return f.err
}

type fakeClusterer struct {
	groups []domain.ChannelTopicGroup
	err    error
}

func (f *fakeClusterer) Cluster(context.Context, string, []domain.Channel) ([]domain.ChannelTopicGroup, error) {
	return f.groups, f.err
}

type fakeSummarizer struct {
	resp summarizer.Response
	err  error
}

func (f *fakeSummarizer) Summarize(context.Context, summarizer.Request) (summarizer.Response, error) {
	return f.resp, f.err
}

type fakeInsights struct {
	insight domain.Insight
	err     error
}

func (f *fakeInsights) Generate(context.Context, domain.TopicSummary) (domain.Insight, error) {
	return f.insight, f.err
}

type fakeBus struct {
	ch chan domain.ProgressEvent
}

func (f *fakeBus) Subscribe(string) (<-chan domain.ProgressEvent, func()) {
	return f.ch, func() {}
}

func (f *fakeBus) Snapshot(string) (domain.ProgressEvent, bool) {
	return domain.ProgressEvent{}, false
}

func newTestServer() (*Server, *fakeStore) {
	store := &fakeStore{messages: map[string]*domain.Message{}}
	s := New(store, &fakeIngestor{}, &fakeClusterer{}, &fakeSummarizer{}, &fakeInsights{}, &fakeBus{ch: make(chan domain.ProgressEvent)}, Limits{}, nil)

	return s, store
}

func TestHandleListSourcesGroupsByCategory(t *testing.T) {
	s, store := newTestServer()
	store.sources = []domain.Source{
		{ID: "1", URL: "https://a", Name: "A", Kind: "telegram", Category: "markets"},
		{ID: "2", URL: "https://b", Name: "B", Kind: "rss", Category: "markets"},
		{ID: "3", URL: "https://c", Name: "C", Kind: "telegram"},
	}

	req := httptest.NewRequest(http.MethodGet, "/sources", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body sourcesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sources["markets"], 2)
	require.Len(t, body.Sources["uncategorized"], 1)
}

func TestHandleSummariesRejectsBadPeriod(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/summaries?period=3y", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSummariesNoMessagesFound(t *testing.T) {
	store := &fakeStore{messages: map[string]*domain.Message{}}
	sum := &fakeSummarizer{resp: summarizer.Response{NoMessagesFound: true}}
	s := New(store, &fakeIngestor{}, &fakeClusterer{}, sum, &fakeInsights{}, &fakeBus{ch: make(chan domain.ProgressEvent)}, Limits{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/summaries?period=1d", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body summariesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.NoMessagesFound)
	require.Empty(t, body.Topics)
}

func TestHandleInsightsAttachesResult(t *testing.T) {
	store := &fakeStore{messages: map[string]*domain.Message{}}
	ins := &fakeInsights{insight: domain.Insight{Topic: "rates", Stance: domain.StanceLong}}
	s := New(store, &fakeIngestor{}, &fakeClusterer{}, &fakeSummarizer{}, ins, &fakeBus{ch: make(chan domain.ProgressEvent)}, Limits{}, nil)

	body, _ := json.Marshal(insightsRequest{Topics: []topicSummaryDTO{{Topic: "rates"}}})
	req := httptest.NewRequest(http.MethodPost, "/insights", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp insightsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Topics, 1)
	require.NotNil(t, resp.Topics[0].Insight)
	require.Equal(t, "long", resp.Topics[0].Insight.Stance)
}

func TestHandleGetMessageNotFound(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/message/missing", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetMessageFound(t *testing.T) {
	s, store := newTestServer()
	store.messages["abc"] = &domain.Message{SourceURL: "https://a", Timestamp: time.Unix(0, 0), Text: "hello"}

	req := httptest.NewRequest(http.MethodGet, "/message/abc", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "hello", resp.Content)
}

func TestHandleUploadExportParsesChannels(t *testing.T) {
	s, _ := newTestServer()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "result.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(`[{"id":"1","name":"Chan A"},{"id":"2","name":"Chan B","left":true}]`))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-telegram-export", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp uploadExportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Channels, 2)
	require.True(t, resp.Channels[1].Left)
}

func TestHandleClusterChannelsRequiresChannels(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/cluster-channels", bytes.NewReader([]byte(`{"channels":[]}`)))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleClusterChannelsSucceeds(t *testing.T) {
	store := &fakeStore{messages: map[string]*domain.Message{}}
	cl := &fakeClusterer{groups: []domain.ChannelTopicGroup{
		{Topic: "rates", Language: "en", Channels: []domain.Channel{{ID: "1", Name: "A"}}},
	}}
	s := New(store, &fakeIngestor{}, cl, &fakeSummarizer{}, &fakeInsights{}, &fakeBus{ch: make(chan domain.ProgressEvent)}, Limits{}, nil)

	body, _ := json.Marshal(clusterChannelsRequest{Channels: []channelDTO{{ID: "1", Name: "A"}}})
	req := httptest.NewRequest(http.MethodPost, "/cluster-channels", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp clusterChannelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Topics, 1)
	require.Equal(t, "rates", resp.Topics[0].Topic)
}

func TestHandleSaveTelegramChannelsReturnsImmediately(t *testing.T) {
	store := &fakeStore{messages: map[string]*domain.Message{}}
	ran := make(chan ingest.Request, 1)
	ing := &fakeIngestor{ran: ran}
	s := New(store, ing, &fakeClusterer{}, &fakeSummarizer{}, &fakeInsights{}, &fakeBus{ch: make(chan domain.ProgressEvent)}, Limits{}, nil)

	body, _ := json.Marshal(saveTelegramChannelsRequest{
		Channels: []channelDTO{{ID: "1", URL: "https://a", Name: "A"}},
		Period:   domain.Period1Day,
	})
	req := httptest.NewRequest(http.MethodPost, "/save-telegram-channels", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp saveTelegramChannelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.Count)

	select {
	case got := <-ran:
		require.Equal(t, []string{"https://a"}, got.SourceURLs)
	case <-time.After(2 * time.Second):
		t.Fatal("ingestor was never invoked in the background")
	}
}

func TestHandleFeedbackValidatesType(t *testing.T) {
	s, store := newTestServer()

	body, _ := json.Marshal(feedbackRequest{Email: "a@b.com", Message: "hi", Type: "not-a-type"})
	req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, store.feedback)
}

func TestHandleFeedbackSucceeds(t *testing.T) {
	s, store := newTestServer()

	body, _ := json.Marshal(feedbackRequest{Email: "a@b.com", Message: "hi", Type: "bug"})
	req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.feedback, 1)
}

func TestHandleSubscribeDuplicateIsNotAnError(t *testing.T) {
	s, store := newTestServer()

	body, _ := json.Marshal(subscribeRequest{Email: "a@b.com"})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/subscribe", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	require.Len(t, store.subscribers, 2, "the fake doesn't dedup; the real Store's ON CONFLICT DO NOTHING does")
}

func TestHandleChannelProgressStreamsAndCloses(t *testing.T) {
	store := &fakeStore{messages: map[string]*domain.Message{}}
	bus := &fakeBus{ch: make(chan domain.ProgressEvent, 2)}
	s := New(store, &fakeIngestor{}, &fakeClusterer{}, &fakeSummarizer{}, &fakeInsights{}, bus, Limits{}, nil)

	bus.ch <- domain.ProgressEvent{ProcessedChannels: 1, TotalChannels: 2, CurrentChannel: "a"}
	close(bus.ch)

	req := httptest.NewRequest(http.MethodGet, "/channel-progress?requestId=r1", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), `"currentChannel":"a"`)
}

func TestHandleChannelProgressRequiresRequestID(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/channel-progress", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

var _ = io.Discard
