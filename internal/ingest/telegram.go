package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
)

// ErrChannelNotFound indicates the channel username could not be
// resolved to a Telegram peer.
var ErrChannelNotFound = errors.New("channel not found")

// ErrNotAChannel indicates the resolved peer is not a broadcast
// channel.
var ErrNotAChannel = errors.New("peer is not a channel")

const (
	historyPageSize  = 100
	maxHistoryPages  = 20
	floodWaitLogSlug = "flood wait"
)

// TelegramClient adapts a gotd/td session into the ingest.ChannelClient
// boundary, resolving a channel URL or @username to a peer then paging
// through MessagesGetHistory until the window's lower bound is passed.
type TelegramClient struct {
	client *telegram.Client
	logger *zerolog.Logger
}

// NewTelegramClient wraps an already-authenticated gotd/td client.
func NewTelegramClient(client *telegram.Client, logger *zerolog.Logger) *TelegramClient {
	return &TelegramClient{client: client, logger: logger}
}

// FetchChannelMessages implements ChannelClient.
func (t *TelegramClient) FetchChannelMessages(ctx context.Context, channelURL string, since, until time.Time) ([]FetchedMessage, error) {
	api := tg.NewClient(t.client)

	peer, err := t.resolvePeer(ctx, api, channelURL)
	if err != nil {
		return nil, err
	}

	var (
		out      []FetchedMessage
		offsetID int
	)

	for page := 0; page < maxHistoryPages; page++ {
		req := &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			Limit:    historyPageSize,
			OffsetID: offsetID,
		}

		history, err := api.MessagesGetHistory(ctx, req)
		if err != nil {
			if waited, ok := t.handleFloodWait(ctx, err); ok {
				if waited {
					page--
				}

				continue
			}

			return nil, fmt.Errorf("get history: %w", err)
		}

		msgs, done := t.collectPage(history, since, until, &out)
		if done || len(msgs) == 0 {
			break
		}

		offsetID = msgs[len(msgs)-1]
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	return out, nil
}

// collectPage extracts messages within [since, until) from one history
// page, appending to out, and returns the raw Telegram message IDs seen
// (for pagination) plus whether the page crossed below `since` so the
// caller should stop paging.
func (t *TelegramClient) collectPage(history tg.MessagesMessagesClass, since, until time.Time, out *[]FetchedMessage) ([]int, bool) {
	var messages []tg.MessageClass

	switch h := history.(type) {
	case *tg.MessagesMessages:
		messages = h.Messages
	case *tg.MessagesMessagesSlice:
		messages = h.Messages
	case *tg.MessagesChannelMessages:
		messages = h.Messages
	default:
		return nil, true
	}

	ids := make([]int, 0, len(messages))
	pastWindow := false

	for _, m := range messages {
		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}

		ids = append(ids, msg.ID)
		ts := time.Unix(int64(msg.Date), 0).UTC()

		if ts.Before(since) {
			pastWindow = true
			continue
		}

		if ts.After(until) || ts.Equal(until) {
			continue
		}

		*out = append(*out, FetchedMessage{
			MessageID: strconv.Itoa(msg.ID),
			Timestamp: ts,
			Text:      msg.Message,
		})
	}

	return ids, pastWindow
}

func (t *TelegramClient) handleFloodWait(ctx context.Context, err error) (waited, handled bool) {
	floodErr, ok := tgerr.As(err)
	if !ok || floodErr.Type != "FLOOD_WAIT" {
		return false, false
	}

	if t.logger != nil {
		t.logger.Warn().Int("seconds", floodErr.Argument).Msg(floodWaitLogSlug)
	}

	select {
	case <-ctx.Done():
		return false, true
	case <-time.After(time.Duration(floodErr.Argument) * time.Second):
	}

	return true, true
}

func (t *TelegramClient) resolvePeer(ctx context.Context, api *tg.Client, channelURL string) (tg.InputPeerClass, error) {
	username := usernameFromURL(channelURL)
	if username == "" {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelURL)
	}

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		return nil, fmt.Errorf("resolve username: %w", err)
	}

	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, username)
	}

	channel, ok := resolved.Chats[0].(*tg.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAChannel, username)
	}

	return &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}, nil
}

func usernameFromURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "@")

	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		s = s[:idx]
	}

	return s
}
