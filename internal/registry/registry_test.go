package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/protocol"
	"github.com/mcoot/lobbyengine/internal/testutil"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	full   bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.frames = append(c.frames, data)
	return true
}

func (c *fakeConn) types() []protocol.MessageType {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.MessageType
	for _, f := range c.frames {
		msg, err := protocol.DecodeServer(f)
		if err != nil {
			panic(fmt.Sprintf("undecodable frame: %v", err))
		}
		out = append(out, msg.Type())
	}
	return out
}

type RegistrySuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = New([]model.UserID{"mod"}, []model.UserID{"boss"}, testutil.NopLogger())
}

func profile(id model.UserID) model.UserProfile {
	return model.UserProfile{UserID: id, Username: string(id), EloRating: 1200, Role: model.UserRoleAdmin}
}

func (s *RegistrySuite) TestRegisterAssignsConfiguredRole() {
	p, first := s.registry.Register(profile("alice"), &fakeConn{id: "c1"})
	s.True(first)
	s.Equal(model.UserRoleStandard, p.Role)

	p, _ = s.registry.Register(profile("mod"), &fakeConn{id: "c2"})
	s.Equal(model.UserRoleModerator, p.Role)

	p, _ = s.registry.Register(profile("boss"), &fakeConn{id: "c3"})
	s.Equal(model.UserRoleAdmin, p.Role)
}

func (s *RegistrySuite) TestMultipleHandlesPerUser() {
	c1, c2 := &fakeConn{id: "c1"}, &fakeConn{id: "c2"}
	_, first := s.registry.Register(profile("alice"), c1)
	s.True(first)
	_, first = s.registry.Register(profile("alice"), c2)
	s.False(first)

	s.registry.SendTo("alice", protocol.RegisterAck{UserID: "alice"})

	s.Equal([]protocol.MessageType{protocol.TypeRegisterAck}, c1.types())
	s.Equal([]protocol.MessageType{protocol.TypeRegisterAck}, c2.types())
}

func (s *RegistrySuite) TestUnregisterKeepsSession() {
	c1, c2 := &fakeConn{id: "c1"}, &fakeConn{id: "c2"}
	s.registry.Register(profile("alice"), c1)
	s.registry.Register(profile("alice"), c2)

	userID, remaining := s.registry.Unregister(c1)
	s.Equal(model.UserID("alice"), userID)
	s.Equal(1, remaining)

	s.Equal(1, s.registry.Connections())

	_, remaining = s.registry.Unregister(c2)
	s.Equal(0, remaining)
	s.Zero(s.registry.Connections())

	p, ok := s.registry.Profile("alice")
	s.True(ok)
	s.Equal("alice", p.Username)
}

func (s *RegistrySuite) TestUnregisterUnknownConn() {
	userID, remaining := s.registry.Unregister(&fakeConn{id: "ghost"})
	s.Empty(userID)
	s.Zero(remaining)
}

func (s *RegistrySuite) TestReRegisterMovesHandle() {
	c := &fakeConn{id: "c1"}
	s.registry.Register(profile("alice"), c)
	s.registry.Register(profile("bob"), c)

	p, ok := s.registry.UserFor(c)
	s.True(ok)
	s.Equal(model.UserID("bob"), p.UserID)

	// alice no longer holds c
	other := &fakeConn{id: "c2"}
	s.registry.Register(profile("alice"), other)
	userID, remaining := s.registry.Unregister(other)
	s.Equal(model.UserID("alice"), userID)
	s.Zero(remaining)
}

func (s *RegistrySuite) TestBroadcastToLobbyReachesBoundRoster() {
	a, b, outsider := &fakeConn{id: "a"}, &fakeConn{id: "b"}, &fakeConn{id: "o"}
	s.registry.Register(profile("alice"), a)
	s.registry.Register(profile("bob"), b)
	s.registry.Register(profile("eve"), outsider)

	s.registry.BindLobby("l1", []model.UserID{"alice", "bob", "bot-x"})
	s.registry.BroadcastToLobby("l1", protocol.MatchReset{LobbyID: "l1"})

	s.Len(a.types(), 1)
	s.Len(b.types(), 1)
	s.Empty(outsider.types())

	s.registry.UnbindLobby("l1")
	s.registry.BroadcastToLobby("l1", protocol.MatchReset{LobbyID: "l1"})
	s.Len(a.types(), 1)
}

func (s *RegistrySuite) TestSlowConnectionDoesNotBlockOthers() {
	slow, fast := &fakeConn{id: "slow", full: true}, &fakeConn{id: "fast"}
	s.registry.Register(profile("alice"), slow)
	s.registry.Register(profile("alice"), fast)

	s.registry.SendTo("alice", protocol.RegisterAck{UserID: "alice"})

	s.Empty(slow.types())
	s.Len(fast.types(), 1)
}
