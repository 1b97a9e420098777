package command

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linguaquest/gamification-engine/internal/domain/profile"
	"github.com/linguaquest/gamification-engine/internal/domain/shared"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence"
	"github.com/linguaquest/gamification-engine/internal/infrastructure/persistence/docstore"
)

func TestUseStreakFreeze_SpendsOneToken(t *testing.T) {
	ctx := context.Background()
	profiles := persistence.NewProfileRepository(docstore.NewMemoryStore())
	rec := &recorder{}
	handler := NewUseStreakFreezeHandler(profiles, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	p, err := profile.New("u1", "UTC", 3, time.Now().UTC())
	assert.NoError(t, err)
	p.StreakCount = 6
	assert.NoError(t, profiles.Create(ctx, p))

	result, err := handler.Handle(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 2, result.TokensRemaining)
	assert.Equal(t, 6, result.Profile.StreakCount, "spending a token never advances the streak")
	assert.Equal(t, []string{"u1"}, rec.invalidated)

	loaded, err := profiles.Get(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 2, loaded.FreezeTokens)
}

func TestUseStreakFreeze_InsufficientTokens(t *testing.T) {
	ctx := context.Background()
	profiles := persistence.NewProfileRepository(docstore.NewMemoryStore())
	handler := NewUseStreakFreezeHandler(profiles, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	p, err := profile.New("u1", "UTC", 0, time.Now().UTC())
	assert.NoError(t, err)
	p.StreakCount = 4
	assert.NoError(t, profiles.Create(ctx, p))
	before, err := profiles.Get(ctx, "u1")
	assert.NoError(t, err)

	_, err = handler.Handle(ctx, "u1")
	assert.ErrorIs(t, err, shared.ErrInsufficientTokens)

	// A failed spend leaves the profile byte-for-byte untouched.
	after, err := profiles.Get(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUseStreakFreeze_UnknownUser(t *testing.T) {
	profiles := persistence.NewProfileRepository(docstore.NewMemoryStore())
	handler := NewUseStreakFreezeHandler(profiles, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := handler.Handle(context.Background(), "ghost")
	assert.True(t, shared.IsNotFound(err))

	_, err = handler.Handle(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}
