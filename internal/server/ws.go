package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"styleswap/internal/api"
	"styleswap/internal/api/jwt"
	"styleswap/internal/styleswap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// snapshot is the "sync" message: the user's credits and, once enrolled,
// their affiliate balance.
func snapshot(ctx context.Context, app *api.App, identity styleswap.Identity) ([]byte, error) {
	user, err := app.Accounts.CurrentUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	data := styleswap.WsResponseData{Target: styleswap.MessageTargetSync, User: user}
	affiliate, err := app.Affiliates.Get(ctx, identity.Id)
	switch {
	case err == nil:
		data.Affiliate = affiliate
	case !errors.Is(err, styleswap.ErrNotFound):
		return nil, err
	}
	return json.Marshal(data)
}

// wsHandler streams live updates to a signed-in user. The client sends "sync"
// to request a fresh snapshot; everything published on the user's
// notification channel is forwarded as is.
func wsHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.DefaultQuery("token", "")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		identity, err := jwt.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		app := c.MustGet("app").(*api.App)
		log := app.Log.With(zap.String("user_id", identity.Id))
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade", zap.Error(err))
			return
		}
		defer conn.Close()
		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		var mu sync.Mutex
		write := func(messageType int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteMessage(messageType, data)
		}
		pushSnapshot := func() error {
			data, err := snapshot(ctx, app, *identity)
			if err != nil {
				return err
			}
			return write(websocket.TextMessage, data)
		}
		if err := pushSnapshot(); err != nil {
			log.Warn("socket: initial sync", zap.Error(err))
			return
		}

		if rdb != nil {
			pubsub := rdb.Subscribe(ctx, styleswap.NotificationChannel(identity.Id))
			defer pubsub.Close()
			go func() {
				defer cancel()
				for msg := range pubsub.Channel() {
					if err := write(websocket.TextMessage, []byte(msg.Payload)); err != nil {
						return
					}
				}
			}()
		}

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go func() {
			defer cancel()
			for {
				messageType, p, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if messageType == websocket.TextMessage && string(p) == styleswap.MessageTargetSync {
					if err := pushSnapshot(); err != nil {
						log.Warn("socket: sync", zap.Error(err))
						return
					}
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := write(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
