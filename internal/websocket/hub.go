package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/models"
)

const (
	writeWait     = 10 * time.Second
	subscribeWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client serializes writes; gorilla connections allow one writer at a time.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub pushes planner updates to every socket of the same planner. With a
// Redis client the updates travel over pub/sub so that all instances behind
// a load balancer see them; without one they are delivered in-process.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*client
	redisClient *redis.Client
	auth        *middleware.JWTAuth
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

func NewHub(redisClient *redis.Client, auth *middleware.JWTAuth) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		redisClient: redisClient,
		auth:        auth,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

func channelName(plannerID uuid.UUID) string {
	return "planner_updates:" + plannerID.String()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on the upgrade request; the token rides in the query.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	plannerID, err := h.auth.ParsePlannerToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	h.registerConnection(plannerID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(plannerID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(plannerID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[plannerID] = append(h.connections[plannerID], c)

	if h.redisClient != nil && len(h.connections[plannerID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[plannerID] = cancel
		pubsub := h.subscribe(ctx, plannerID)
		go h.relay(ctx, plannerID, pubsub)
	}

	log.Printf("WebSocket connected: planner %s (total: %d)", plannerID, len(h.connections[plannerID]))
}

func (h *Hub) unregisterConnection(plannerID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[plannerID]
	for i, existing := range conns {
		if existing == c {
			h.connections[plannerID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[plannerID]) == 0 {
		delete(h.connections, plannerID)
		if cancel, ok := h.cancelFuncs[plannerID]; ok {
			cancel()
			delete(h.cancelFuncs, plannerID)
		}
	}

	log.Printf("WebSocket disconnected: planner %s", plannerID)
}

// subscribe returns once Redis has confirmed the subscription, so an update
// published right after the socket registers is not lost.
func (h *Hub) subscribe(ctx context.Context, plannerID uuid.UUID) *redis.PubSub {
	pubsub := h.redisClient.Subscribe(ctx, channelName(plannerID))

	confirmCtx, cancel := context.WithTimeout(ctx, subscribeWait)
	defer cancel()
	if _, err := pubsub.Receive(confirmCtx); err != nil {
		log.Printf("WebSocket subscribe for planner %s not confirmed: %v", plannerID, err)
	}
	return pubsub
}

func (h *Hub) relay(ctx context.Context, plannerID uuid.UUID, pubsub *redis.PubSub) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(plannerID, []byte(msg.Payload))
		}
	}
}

// Publish delivers msg to every socket of the planner. Delivery is best
// effort: failures are logged and never reach the caller.
func (h *Hub) Publish(ctx context.Context, plannerID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocket publish: marshal %s: %v", msg.Type, err)
		return
	}

	if h.redisClient != nil {
		if err := h.redisClient.Publish(ctx, channelName(plannerID), string(data)).Err(); err != nil {
			log.Printf("WebSocket publish via Redis failed, delivering locally: %v", err)
			h.broadcast(plannerID, data)
		}
		return
	}

	h.broadcast(plannerID, data)
}

func (h *Hub) broadcast(plannerID uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := append([]*client(nil), h.connections[plannerID]...)
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			log.Printf("WebSocket write to planner %s failed: %v", plannerID, err)
		}
	}
}

// Connections reports how many sockets are open for a planner.
func (h *Hub) Connections(plannerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[plannerID])
}
