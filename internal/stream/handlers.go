package stream

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// heartbeatInterval keeps idle connections warm between race events.
const heartbeatInterval = 30 * time.Second

var heartbeatPayload = []byte(`{"type":"heartbeat"}`)

func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/:raceID", websocket.New(func(c *websocket.Conn) {
		raceID := c.Params("raceID")
		replay, client := hub.Subscribe(raceID)
		defer hub.Unsubscribe(client)

		for _, msg := range replay {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			heartbeat := time.NewTicker(heartbeatInterval)
			defer heartbeat.Stop()

			for {
				select {
				case msg, ok := <-client.Send:
					if !ok {
						return
					}
					if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				case <-heartbeat.C:
					if err := c.WriteMessage(websocket.TextMessage, heartbeatPayload); err != nil {
						return
					}
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		// closes client.Send so the writer drains out; safe to call again
		// via the deferred Unsubscribe
		hub.Unsubscribe(client)
		<-done
	}))
}
