package factory

import (
	busmemory "github.com/mcoot/lobbyengine/internal/bus/memory"
	"github.com/mcoot/lobbyengine/internal/dependencies/mocks"
	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/services/allocator"
	"github.com/mcoot/lobbyengine/internal/services/auth"
	"github.com/mcoot/lobbyengine/internal/services/bot"
	"github.com/mcoot/lobbyengine/internal/storage/memory"
	"github.com/mcoot/lobbyengine/internal/testutil"
)

// TestWebhookSecret signs allocator tokens in tests
const TestWebhookSecret = "test-webhook-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MemoryBus  *busmemory.Bus
}

// TestOption adjusts the test configuration before wiring
type TestOption func(*Config)

// WithAdminTokenHash turns on admin authentication
func WithAdminTokenHash(hash string) TestOption {
	return func(c *Config) { c.AuthConfig.AdminTokenHash = hash }
}

// WithModerators grants the moderator role to the given users
func WithModerators(ids ...string) TestOption {
	return func(c *Config) {
		for _, id := range ids {
			c.Moderators = append(c.Moderators, model.UserID(id))
		}
	}
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp(opts ...TestOption) *TestApp {
	mockClock := mocks.NewMockClock(testutil.Epoch)
	mockRandom := mocks.NewMockRandom()
	b := busmemory.New()

	cfg := Config{
		AuthConfig: auth.Config{
			WebhookSecret: TestWebhookSecret,
			WebhookLeeway: auth.DefaultConfig().WebhookLeeway,
		},
		AllocatorConfig: allocator.DefaultConfig(),
		BotConfig:       bot.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	app := newWithDependencies(dependencies{
		store:    memory.New(),
		archive:  memory.NewArchive(),
		bus:      b,
		clock:    mockClock,
		random:   mockRandom,
		strategy: bot.NewFirstChoiceStrategy(),
	}, cfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MemoryBus:  b,
	}
}
