package stream

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// sendBuffer is each subscriber's channel capacity. A subscriber that falls
// this far behind is cut off and must resubscribe.
const sendBuffer = 64

// recentLimit bounds the per-participant ring of recent payloads.
const recentLimit = 32

// Hub fans race events out to websocket subscribers and, when Redis is
// configured, across instances. Publication never blocks on a subscriber.
type Hub struct {
	redis *redis.Client
	// instance tags redis payloads so this hub can skip its own echoes
	instance string

	mu    sync.Mutex
	races map[string]*raceFeed
}

// redisEnvelope wraps payloads on the redis channel. Origin lets a hub tell
// its own publications apart from another instance's.
type redisEnvelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// Client is one subscriber's live stream. Send is closed by the hub when the
// subscriber falls behind or unsubscribes.
type Client struct {
	RaceID string
	Send   chan []byte
}

type raceFeed struct {
	clients map[*Client]struct{}
	// latest payload per participant per kind, used for late-joiner replay
	latest  map[string]map[string][]byte
	ranking []byte
	ended   []byte
	recent  map[string][][]byte
}

func newRaceFeed() *raceFeed {
	return &raceFeed{
		clients: map[*Client]struct{}{},
		latest:  map[string]map[string][]byte{},
		recent:  map[string][][]byte{},
	}
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:    redisClient,
		instance: uuid.NewString(),
		races:    map[string]*raceFeed{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

// Subscribe registers a new client for a race and returns a replay of the
// latest known state per participant (position, off-route, arrival), the
// latest ranking, and the end-of-race event if the race already finished.
func (h *Hub) Subscribe(raceID string) ([][]byte, *Client) {
	client := &Client{
		RaceID: raceID,
		Send:   make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	feed := h.races[raceID]
	if feed == nil {
		feed = newRaceFeed()
		h.races[raceID] = feed
	}
	feed.clients[client] = struct{}{}

	return feed.replay(), client
}

// Unsubscribe removes a client and closes its channel, unless the hub already
// cut it off for falling behind.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed := h.races[client.RaceID]
	if feed == nil {
		return
	}
	if _, ok := feed.clients[client]; !ok {
		return
	}
	delete(feed.clients, client)
	close(client.Send)
}

// Publish records the event for replay and delivers it to every subscriber of
// the race. Subscribers with a full channel are closed and dropped rather
// than blocking the publisher.
func (h *Hub) Publish(raceID, kind, participant string, payload []byte) {
	h.mu.Lock()
	feed := h.races[raceID]
	if feed == nil {
		feed = newRaceFeed()
		h.races[raceID] = feed
	}
	feed.remember(kind, participant, payload)

	for client := range feed.clients {
		select {
		case client.Send <- payload:
		default:
			delete(feed.clients, client)
			close(client.Send)
		}
	}
	h.mu.Unlock()

	if h.redis != nil {
		wrapped, err := json.Marshal(redisEnvelope{Origin: h.instance, Payload: payload})
		if err == nil {
			err = h.redis.Publish(context.Background(), redisChannel(raceID), wrapped).Err()
		}
		if err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

// Clear drops a race's replay state. Called on session reset so late joiners
// never see standings from a discarded race.
func (h *Hub) Clear(raceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed := h.races[raceID]
	if feed == nil {
		return
	}
	feed.latest = map[string]map[string][]byte{}
	feed.recent = map[string][][]byte{}
	feed.ranking = nil
	feed.ended = nil
}

// Drop discards a race entirely: replay state, the feed itself, and every
// remaining subscriber. Called when a race is removed from the registry.
func (h *Hub) Drop(raceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed := h.races[raceID]
	if feed == nil {
		return
	}
	for client := range feed.clients {
		close(client.Send)
	}
	delete(h.races, raceID)
}

// Recent returns a copy of the bounded ring of recent payloads for one
// participant, newest last.
func (h *Hub) Recent(raceID, participant string) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed := h.races[raceID]
	if feed == nil {
		return nil
	}
	ring := feed.recent[participant]
	out := make([][]byte, len(ring))
	copy(out, ring)
	return out
}

func (f *raceFeed) remember(kind, participant string, payload []byte) {
	switch kind {
	case "ranking":
		f.ranking = payload
	case "race_ended":
		f.ended = payload
	default:
		byKind := f.latest[participant]
		if byKind == nil {
			byKind = map[string][]byte{}
			f.latest[participant] = byKind
		}
		byKind[kind] = payload

		ring := append(f.recent[participant], payload)
		if len(ring) > recentLimit {
			ring = ring[len(ring)-recentLimit:]
		}
		f.recent[participant] = ring
	}
}

// replayKinds is the per-participant replay order.
var replayKinds = []string{"position", "off_route", "arrival"}

func (f *raceFeed) replay() [][]byte {
	participants := make([]string, 0, len(f.latest))
	for id := range f.latest {
		participants = append(participants, id)
	}
	sort.Strings(participants)

	var out [][]byte
	for _, id := range participants {
		for _, kind := range replayKinds {
			if payload, ok := f.latest[id][kind]; ok {
				out = append(out, payload)
			}
		}
	}
	if f.ranking != nil {
		out = append(out, f.ranking)
	}
	if f.ended != nil {
		out = append(out, f.ended)
	}
	return out
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "race:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		raceID := raceIDFromChannel(msg.Channel)
		if raceID == "" {
			continue
		}

		payload := []byte(msg.Payload)
		var env redisEnvelope
		if err := json.Unmarshal(payload, &env); err == nil && env.Origin != "" {
			if env.Origin == h.instance {
				// our own publication echoing back; subscribers already got it
				continue
			}
			payload = env.Payload
		}

		h.mu.Lock()
		feed := h.races[raceID]
		if feed != nil {
			for client := range feed.clients {
				select {
				case client.Send <- payload:
				default:
					delete(feed.clients, client)
					close(client.Send)
				}
			}
		}
		h.mu.Unlock()
	}
}

func redisChannel(raceID string) string {
	return "race:" + raceID + ":events"
}

func raceIDFromChannel(ch string) string {
	// race:{raceID}:events
	const prefix = "race:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
