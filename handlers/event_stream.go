package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"engagement-engine/events"
	"engagement-engine/middleware"

	"github.com/gofiber/fiber/v2"
)

const sseKeepAlive = 15 * time.Second

// StreamUserEventsSSE streams the authenticated user's progression events as they are published.
func StreamUserEventsSSE(hub *events.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		// SSE headers
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		done := c.Context().Done()
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			stream := hub.Subscribe(ctx, userID, 64)

			ticker := time.NewTicker(sseKeepAlive)
			defer ticker.Stop()

			// Initial keepalive (comment event)
			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case ev, ok := <-stream:
					if !ok {
						return
					}
					payload, err := json.Marshal(ev)
					if err != nil {
						log.Printf("SSE encode error for user %s: %v", userID, err)
						continue
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
					if err := w.Flush(); err != nil {
						// Client disconnected
						return
					}

				case <-ticker.C:
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}

				case <-done:
					// Server shutting down
					return
				}
			}
		})

		return nil
	}
}
