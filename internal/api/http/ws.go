package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	nethttp "net/http"

	"github.com/gorilla/websocket"

	"github.com/hankgpa/gpa-live/internal/course"
	"github.com/hankgpa/gpa-live/internal/ratelimit"
	syncx "github.com/hankgpa/gpa-live/internal/sync"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 32 * 1024
)

// clientMsg is the envelope a live channel sends. Exactly one message is
// processed at a time per channel; replies and pushes go through the writer
// goroutine.
type clientMsg struct {
	Type   string              `json:"type"` // add_course|delete_course|get_rules|update_rules
	Course *course.CourseInput `json:"course,omitempty"`
	ID     int64               `json:"id,omitempty"`
	Rules  []course.RuleRange  `json:"rules,omitempty"`
}

// WSHandler upgrades to a websocket, sends the initial course view and serves
// the live channel until the peer disconnects. allowedOrigins mirrors the
// CORS allow-list.
func (app *App) WSHandler(limiter *ratelimit.Limiter, allowedOrigins []string) nethttp.HandlerFunc {
	up := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser client
			}
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}

	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		owner := identityFromRequest(r)
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the response
			log.Printf("ws upgrade for %s: %v", owner, err)
			return
		}
		app.serveChannel(conn, owner, limiter)
	}
}

func (app *App) serveChannel(conn *websocket.Conn, owner string, limiter *ratelimit.Limiter) {
	events, cancel := app.Hub.Subscribe(owner)
	replies := make(chan syncx.Event, 16)
	done := make(chan struct{})

	// initial view goes out before the writer starts, so no hub push can
	// overtake it
	ctx := context.Background()
	if view, err := app.Store.ListCourses(ctx, owner, course.OrderCreatedDesc); err == nil {
		if !writeEvent(conn, syncx.Event{Type: syncx.EventInit, Courses: view}) {
			cancel()
			conn.Close()
			return
		}
	} else {
		log.Printf("ws init view for %s: %v", owner, err)
		writeEvent(conn, syncx.Event{Type: syncx.EventError, Message: "failed to load courses"})
	}

	// writer: after init, the only goroutine writing to conn. Draining both
	// the hub subscription and direct replies keeps per-channel ordering.
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		defer conn.Close()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if !writeEvent(conn, ev) {
					return
				}
			case ev := <-replies:
				if !writeEvent(conn, ev) {
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	defer func() {
		cancel()
		close(done)
	}()

	conn.SetReadLimit(maxMsgSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow(owner) {
			reply(replies, syncx.Event{Type: syncx.EventError, Message: "too many requests"})
			continue
		}
		var msg clientMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			reply(replies, syncx.Event{Type: syncx.EventError, Message: "bad message"})
			continue
		}
		app.handleChannelMsg(ctx, owner, msg, replies)
	}
}

// handleChannelMsg applies one channel message. Errors become error events on
// this channel only; successful mutations fan out through the hub.
func (app *App) handleChannelMsg(ctx context.Context, owner string, msg clientMsg, replies chan<- syncx.Event) {
	switch msg.Type {
	case "add_course":
		if msg.Course == nil {
			reply(replies, syncx.Event{Type: syncx.EventError, Message: "course payload required"})
			return
		}
		c, err := app.Store.AddCourse(ctx, owner, *msg.Course)
		if err != nil {
			reply(replies, syncx.Event{Type: syncx.EventError, Message: userMessage(err)})
			return
		}
		app.logMutation(ctx, owner, "CourseAdded", strconv.FormatInt(c.ID, 10), c)
		app.pushView(ctx, owner)

	case "delete_course":
		if msg.ID <= 0 {
			reply(replies, syncx.Event{Type: syncx.EventError, Message: "invalid course id"})
			return
		}
		if err := app.Store.DeleteCourse(ctx, owner, msg.ID); err != nil {
			reply(replies, syncx.Event{Type: syncx.EventError, Message: userMessage(err)})
			return
		}
		app.logMutation(ctx, owner, "CourseDeleted", strconv.FormatInt(msg.ID, 10), nil)
		app.Hub.Publish(owner, syncx.Event{Type: syncx.EventDeleted, ID: msg.ID})
		app.pushView(ctx, owner)

	case "get_rules":
		rules, err := app.Store.ListRules(ctx)
		if err != nil {
			reply(replies, syncx.Event{Type: syncx.EventError, Message: userMessage(err)})
			return
		}
		reply(replies, syncx.Event{Type: syncx.EventRules, Rules: rules})

	case "update_rules":
		changed, err := app.Store.ReplaceRules(ctx, msg.Rules)
		if err != nil {
			reply(replies, syncx.Event{Type: syncx.EventError, Message: userMessage(err)})
			return
		}
		app.logMutation(ctx, owner, "RulesReplaced", "", msg.Rules)
		for _, o := range changed {
			app.pushView(ctx, o)
		}
		// the caller's own view may be unchanged; confirm with fresh rules
		reply(replies, syncx.Event{Type: syncx.EventRules, Rules: currentRules(ctx, app)})

	default:
		reply(replies, syncx.Event{Type: syncx.EventError, Message: "unknown message type"})
	}
}

func currentRules(ctx context.Context, app *App) []course.RuleRange {
	rules, err := app.Store.ListRules(ctx)
	if err != nil {
		return nil
	}
	return rules
}

// userMessage hides persistence internals from the wire.
func userMessage(err error) string {
	if course.IsValidation(err) || errors.Is(err, course.ErrCourseNotFound) {
		return err.Error()
	}
	log.Printf("channel store error: %v", err)
	return "internal error"
}

// reply queues a direct event for the writer; drops when the writer is gone
// or backed up, mirroring the hub's non-blocking policy.
func reply(replies chan<- syncx.Event, ev syncx.Event) {
	select {
	case replies <- ev:
	default:
	}
}

func writeEvent(conn *websocket.Conn, ev syncx.Event) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev) == nil
}
