package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"ruleboard/internal/client"
	"ruleboard/internal/config"
	"ruleboard/internal/protocol"
	"ruleboard/internal/rules"
)

// Connects to a rule board server, subscribes to the configured room and
// logs everything the board and notification channels deliver.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	tr := client.NewTransport(client.Options{
		URL:               cfg.Socket.URL,
		ReconnectDelay:    cfg.Socket.ReconnectDelay,
		MaxReconnectDelay: cfg.Socket.MaxReconnectDelay,
	})
	tr.OnStatus(func(status client.Status) {
		slog.Info("Connection status", "status", status)
	})

	session := client.NewSession(tr, cfg.Client.UserID, cfg.Client.DisplayName)
	board := client.NewBoard(tr, session, client.BoardHandlers{
		Subscribed: func(room string) {
			slog.Info("Subscribed", "room", room)
		},
		PresenceSnapshot: func(users []protocol.User) {
			slog.Info("Presence", "count", len(users))
		},
		UserJoined: func(user protocol.User) {
			slog.Info("User joined", "userId", user.UserID, "displayName", user.DisplayName)
		},
		UserLeft: func(userID string) {
			slog.Info("User left", "userId", userID)
		},
		RulesSnapshot: func(room string, list []rules.Rule) {
			slog.Info("Rules snapshot", "room", room, "rules", len(list))
		},
		EditStarted: func(ev protocol.EditEvent) {
			slog.Info("Edit started", "ruleId", ev.RuleID, "by", ev.DisplayName)
		},
		EditCancelled: func(ev protocol.EditEvent) {
			slog.Info("Edit cancelled", "ruleId", ev.RuleID, "by", ev.DisplayName)
		},
		RuleSaved: func(ev protocol.EditEvent) {
			slog.Info("Rule saved", "ruleId", ev.RuleID, "by", ev.DisplayName)
		},
		RoomCounts: func(counts map[string]int) {
			slog.Info("Room counts", "counts", counts)
		},
		Error: func(message string) {
			slog.Warn("Server error", "message", message)
		},
	})
	notifs := client.NewNotifications(tr, session, client.NotifHandlers{
		Pushed: func(n protocol.Notification) {
			slog.Info("Notification", "from", n.FromDisplayName, "text", n.Text)
		},
		Read: func(notifID, _, byDisplayName string) {
			slog.Info("Notification read", "notifId", notifID, "by", byDisplayName)
		},
	})
	defer notifs.Close()

	board.SetRoom(cfg.Client.Room)
	tr.Connect()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	tr.Disconnect()
	slog.Info("Client stopped")
}
