package socketio

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/socket.io-go-redis/adapter"
	r_type "github.com/zishang520/socket.io-go-redis/types"
	"github.com/zishang520/socket.io/v2/socket"

	"lise-messenger/utils"
)

type Options struct {
	// Redis backs the socket.io adapter so rooms span instances; nil keeps the in-memory adapter.
	Redis     *redis.Client
	AccessKey string
	Debug     bool
}

// Init mounts the socket.io endpoint on app. Connections carrying a valid access token in the
// token query parameter join the room of their profile id and keep the token metadata as data.
func Init(app *fiber.App, opts Options) *socket.Server {
	log.DEBUG = opts.Debug

	options := socket.DefaultServerOptions()
	options.SetServeClient(true)
	options.SetAllowEIO3(true)
	options.SetPingInterval(25 * time.Second)
	options.SetPingTimeout(20 * time.Second)
	options.SetMaxHttpBufferSize(1000000)
	options.SetConnectTimeout(10 * time.Second)
	if opts.Redis != nil {
		options.SetAdapter(&adapter.RedisAdapterBuilder{
			Redis: r_type.NewRedisClient(context.Background(), opts.Redis),
			Opts:  &adapter.RedisAdapterOptions{},
		})
	}

	server := socket.NewServer(nil, options)

	server.Use(func(client *socket.Socket, next func(*socket.ExtendedError)) {
		token, auth := client.Conn().Request().Query().Get("token")

		if auth {
			claims, err := utils.CheckAndExtractTokenMetadata(token, opts.AccessKey)
			if err == nil && !claims.Otp {
				client.Join(socket.Room(claims.Id))
				client.SetData(claims)
			}
		}

		next(nil)
	})

	app.Get("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))
	app.Post("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))

	return server
}

// Identity returns the profile id of an authenticated socket, or "".
func Identity(client *socket.Socket) string {
	claims, ok := client.Data().(*utils.TokenMetadata)
	if !ok || claims == nil {
		return ""
	}
	return claims.Id
}
