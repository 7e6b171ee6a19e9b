package router

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zishang520/socket.io/v2/socket"

	"lise-messenger/messenger"
	"lise-messenger/session"
	"lise-messenger/socketio"
	"lise-messenger/utils"
)

// Events emitted to clients.
const (
	EventMessage          = "messenger_message"
	EventConversation     = "messenger_conversation"
	EventConversationList = "messenger_conversation_list"
	EventMessages         = "messenger_messages"
	EventSendMessage      = "messenger_send_message"
	EventEditMessage      = "messenger_edit_message"
	EventDeleteMessage    = "messenger_delete_message"
	EventUnsubscribed     = "messenger_unsubscribed"
	EventError            = "messenger_error"
)

const conversationsKey = "conversations"

type SocketError struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func socketError(event string, err error) SocketError {
	code := utils.CodeOf(err)
	message := "internal error"
	if code != utils.CodeBackendFailed && code != utils.CodeUnknown {
		message = err.Error()
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
	}
	return SocketError{Event: event, Code: string(code), Message: message}
}

// subscriptions tracks the live subscriptions of one socket by key.
// Subscribing twice under one key replaces the older subscription.
type subscriptions struct {
	mu   sync.Mutex
	subs map[string]interface{ Close() }
}

func newSubscriptions() *subscriptions {
	return &subscriptions{subs: make(map[string]interface{ Close() })}
}

func (s *subscriptions) put(key string, sub interface{ Close() }) {
	s.mu.Lock()
	old := s.subs[key]
	s.subs[key] = sub
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (s *subscriptions) drop(key string) bool {
	s.mu.Lock()
	sub, ok := s.subs[key]
	delete(s.subs, key)
	s.mu.Unlock()
	if ok {
		sub.Close()
	}
	return ok
}

// release forgets key if it still maps to sub, without closing it.
// It reports whether the entry was removed.
func (s *subscriptions) release(key string, sub interface{ Close() }) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.subs[key]; ok && cur == sub {
		delete(s.subs, key)
		return true
	}
	return false
}

func (s *subscriptions) closeAll() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]interface{ Close() })
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

func stringArg(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	v, _ := args[i].(string)
	return v
}

func intArg(args []any, i int) int {
	if i >= len(args) {
		return 0
	}
	switch v := args[i].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Socket wires the messenger events of every connection to the service.
func Socket(server *socket.Server, svc *messenger.Service, log zerolog.Logger) {
	server.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		profileID := socketio.Identity(client)
		if profileID == "" {
			client.Emit(EventError, socketError("connection", utils.ErrAuthenticationRequired))
			client.Disconnect(true)
			return
		}

		ctx := session.WithProfile(context.Background(), profileID)
		subs := newSubscriptions()
		clog := log.With().Str("profile_id", profileID).Str("socket_id", string(client.Id())).Logger()
		clog.Debug().Msg("socket.connect")

		client.On("disconnect", func(...any) {
			subs.closeAll()
			clog.Debug().Msg("socket.disconnect")
		})

		client.On("messenger_subscribe", func(args ...any) {
			conversationID := stringArg(args, 0)
			sub, err := svc.SubscribeToMessages(ctx, conversationID)
			if err != nil {
				client.Emit(EventError, socketError("messenger_subscribe", err))
				return
			}
			subs.put(conversationID, sub)
			go func() {
				for ev := range sub.Events() {
					client.Emit(EventMessage, ev)
				}
				// Still registered means the stream ended on its own: the profile left.
				if subs.release(conversationID, sub) {
					client.Emit(EventUnsubscribed, conversationID)
				}
			}()
		})

		client.On("messenger_unsubscribe", func(args ...any) {
			subs.drop(stringArg(args, 0))
		})

		client.On("messenger_subscribe_conversations", func(...any) {
			sub, err := svc.SubscribeToConversations(ctx)
			if err != nil {
				client.Emit(EventError, socketError("messenger_subscribe_conversations", err))
				return
			}
			subs.put(conversationsKey, sub)
			go func() {
				for ev := range sub.Events() {
					client.Emit(EventConversation, ev)
				}
			}()
		})

		client.On("messenger_conversation_list", func(...any) {
			rows, err := svc.ListConversations(ctx, profileID)
			if err != nil {
				client.Emit(EventError, socketError("messenger_conversation_list", err))
				return
			}
			client.Emit(EventConversationList, rows)
		})

		client.On("messenger_messages", func(args ...any) {
			msgs, err := svc.GetMessages(ctx, stringArg(args, 0), intArg(args, 1), intArg(args, 2))
			if err != nil {
				client.Emit(EventError, socketError("messenger_messages", err))
				return
			}
			client.Emit(EventMessages, msgs)
		})

		client.On("messenger_send_message", func(args ...any) {
			msg, err := svc.SendMessage(ctx, stringArg(args, 0), stringArg(args, 1))
			if err != nil {
				client.Emit(EventError, socketError("messenger_send_message", err))
				return
			}
			client.Emit(EventSendMessage, msg)
		})

		client.On("messenger_edit_message", func(args ...any) {
			res, err := svc.EditMessage(ctx, stringArg(args, 0), stringArg(args, 1))
			if err == nil {
				err = res.Err()
			}
			if err != nil {
				client.Emit(EventError, socketError("messenger_edit_message", err))
				return
			}
			client.Emit(EventEditMessage, res.Message)
		})

		client.On("messenger_delete_message", func(args ...any) {
			res, err := svc.DeleteMessage(ctx, stringArg(args, 0))
			if err == nil {
				err = res.Err()
			}
			if err != nil {
				client.Emit(EventError, socketError("messenger_delete_message", err))
				return
			}
			client.Emit(EventDeleteMessage, res.Message)
		})
	})
}
