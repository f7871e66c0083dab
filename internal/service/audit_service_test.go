package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/fungi-catalog/internal/events"
)

func TestAuditService_LogsAuthEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	actor := int64(1)
	revoked := events.NewEvent(events.EventSessionsRevoked, 42, events.SessionsRevokedPayload{Reason: "admin"})
	revoked.ActorID = &actor
	_ = dispatcher.Publish(context.Background(), revoked)
	_ = dispatcher.Publish(context.Background(), events.NewEvent(events.EventLoginFailed, 0, events.LoginFailedPayload{Username: "ana"}))

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "sessions_revoked", entries[0].Message)
		assert.Equal(t, int64(42), entries[0].ContextMap()["user_id"])
		assert.Equal(t, int64(1), entries[0].ContextMap()["actor_id"])

		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
		assert.NotContains(t, entries[1].ContextMap(), "user_id")
	}
}

func TestAuditService_LoginEmitsEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := newFixture(t)
	NewAuditService(f.dispatcher, zap.New(core)).RegisterHandlers()

	f.register(t, "ana", "champignon")
	f.login(t, "ana", "champignon")

	assert.Equal(t, 1, logs.FilterMessage("user_registered").Len())
	assert.Equal(t, 1, logs.FilterMessage("user_logged_in").Len())
}
