package ws_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lobbyengine/internal/api/apierr"
	"github.com/mcoot/lobbyengine/internal/factory"
	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/protocol"
)

const readTimeout = 2 * time.Second

type HandlerSuite struct {
	suite.Suite
	app    *factory.TestApp
	server *httptest.Server
	ctx    context.Context
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.app = factory.NewTestApp(factory.WithModerators("mod"))
	s.server = httptest.NewServer(s.app.Router())
	s.ctx = context.Background()
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
	_ = s.app.Close()
}

func (s *HandlerSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *HandlerSuite) send(conn *websocket.Conn, msg protocol.ClientMessage) {
	data, err := protocol.EncodeClient(msg)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, data))
}

func (s *HandlerSuite) next(conn *websocket.Conn) protocol.ServerMessage {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, data, err := conn.ReadMessage()
	s.Require().NoError(err)
	msg, err := protocol.DecodeServer(data)
	s.Require().NoError(err)
	return msg
}

// expect reads frames until one of the wanted type arrives
func expect[T protocol.ServerMessage](s *HandlerSuite, conn *websocket.Conn) T {
	for {
		if msg, ok := s.next(conn).(T); ok {
			return msg
		}
	}
}

func (s *HandlerSuite) register(conn *websocket.Conn, userID string) *protocol.RegisterAck {
	s.send(conn, protocol.Register{UserID: model.UserID(userID), Username: userID, EloRating: 1200})
	return expect[*protocol.RegisterAck](s, conn)
}

// Test: registering answers with the user's role
func (s *HandlerSuite) TestRegisterAck() {
	conn := s.dial()

	ack := s.register(conn, "alice")
	s.Equal(model.UserID("alice"), ack.UserID)
	s.Equal(model.UserRoleStandard, ack.Role)

	s.Eventually(func() bool { return s.app.Connections() == 1 }, readTimeout, 10*time.Millisecond)
}

// Test: moderators are recognised at registration
func (s *HandlerSuite) TestRegisterModerator() {
	conn := s.dial()

	ack := s.register(conn, "mod")
	s.Equal(model.UserRoleModerator, ack.Role)
}

// Test: commands before REGISTER are rejected without closing the socket
func (s *HandlerSuite) TestCommandBeforeRegister() {
	conn := s.dial()

	s.send(conn, protocol.JoinQueue{UserID: "alice"})
	e := expect[*protocol.Error](s, conn)
	s.Equal(apierr.CodeInvalidRequest, e.Code)

	ack := s.register(conn, "alice")
	s.Equal(model.UserID("alice"), ack.UserID)
}

// Test: malformed and unknown frames produce ERROR and the connection stays usable
func (s *HandlerSuite) TestMalformedFrames() {
	conn := s.dial()

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	s.Equal(apierr.CodeInvalidRequest, expect[*protocol.Error](s, conn).Code)

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"DANCE"}`)))
	e := expect[*protocol.Error](s, conn)
	s.Contains(e.Message, "DANCE")

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"REGISTER","payload":{"userId":"x"}}`)))
	e = expect[*protocol.Error](s, conn)
	s.Contains(e.Message, "username")

	s.register(conn, "alice")
}

// Test: a binary frame closes the connection
func (s *HandlerSuite) TestBinaryFrameCloses() {
	conn := s.dial()
	s.register(conn, "alice")

	s.Require().NoError(conn.WriteMessage(websocket.BinaryMessage, []byte{0x01}))

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, _, err := conn.ReadMessage()
	s.Error(err)

	s.Eventually(func() bool { return s.app.Connections() == 0 }, readTimeout, 10*time.Millisecond)
}

// Test: joining twice reports ALREADY_QUEUED
func (s *HandlerSuite) TestJoinQueueTwice() {
	conn := s.dial()
	s.register(conn, "alice")

	s.send(conn, protocol.JoinQueue{UserID: "alice"})
	s.send(conn, protocol.JoinQueue{UserID: "alice"})

	e := expect[*protocol.Error](s, conn)
	s.Equal(apierr.CodeAlreadyQueued, e.Code)
	s.Equal(1, s.app.Queue.Len())
}

// Test: a handle may only act for the user it registered as
func (s *HandlerSuite) TestJoinQueueForSomeoneElse() {
	conn := s.dial()
	s.register(conn, "alice")

	s.send(conn, protocol.JoinQueue{UserID: "bob"})

	e := expect[*protocol.Error](s, conn)
	s.Equal(apierr.CodeInvalidRequest, e.Code)
	s.Zero(s.app.Queue.Len())
}

// Test: leaving the queue takes the user out of it
func (s *HandlerSuite) TestLeaveQueue() {
	conn := s.dial()
	s.register(conn, "alice")

	s.send(conn, protocol.JoinQueue{UserID: "alice"})
	s.send(conn, protocol.LeaveMatch{UserID: "alice"})
	s.send(conn, protocol.LeaveMatch{UserID: "alice"})

	e := expect[*protocol.Error](s, conn)
	s.Equal(apierr.CodeNotInLobby, e.Code)
	s.Zero(s.app.Queue.Len())
}

// Test: REQUEST_MATCH_STATE replies with the current snapshot
func (s *HandlerSuite) TestRequestMatchState() {
	l, err := s.app.Coordinator.CreateLobby(s.ctx, []model.UserProfile{
		{UserID: "host", Username: "Host", EloRating: 1500},
	}, model.LobbyOptions{})
	s.Require().NoError(err)

	conn := s.dial()
	s.register(conn, "watcher")

	s.send(conn, protocol.RequestMatchState{LobbyID: l.ID})
	update := expect[*protocol.LobbyUpdate](s, conn)
	s.Equal(l.ID, update.Lobby.ID)
	s.Equal(model.LobbyStatusWaitingReady, update.Lobby.Status)

	s.send(conn, protocol.RequestMatchState{LobbyID: "missing"})
	s.Equal(apierr.CodeLobbyNotFound, expect[*protocol.Error](s, conn).Code)
}

// Test: a user seated in a lobby gets its state on (re)registration
func (s *HandlerSuite) TestRegisterResumesLobby() {
	l, err := s.app.Coordinator.CreateLobby(s.ctx, []model.UserProfile{
		{UserID: "host", Username: "Host", EloRating: 1500},
	}, model.LobbyOptions{})
	s.Require().NoError(err)

	conn := s.dial()
	s.register(conn, "host")

	update := expect[*protocol.LobbyUpdate](s, conn)
	s.Equal(l.ID, update.Lobby.ID)
}

// Test: only moderators may reset a lobby
func (s *HandlerSuite) TestResetRequiresRole() {
	l, err := s.app.Coordinator.CreateLobby(s.ctx, []model.UserProfile{
		{UserID: "host", Username: "Host", EloRating: 1500},
	}, model.LobbyOptions{})
	s.Require().NoError(err)

	host := s.dial()
	s.register(host, "host")
	expect[*protocol.LobbyUpdate](s, host)

	s.send(host, protocol.ResetMatch{LobbyID: l.ID})
	s.Equal(apierr.CodeForbidden, expect[*protocol.Error](s, host).Code)

	mod := s.dial()
	s.register(mod, "mod")
	s.send(mod, protocol.ResetMatch{LobbyID: l.ID})

	reset := expect[*protocol.MatchReset](s, host)
	s.Equal(l.ID, reset.LobbyID)

	final, err := s.app.Coordinator.State(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Equal(model.LobbyStatusCancelled, final.Status)
	s.Equal("reset by mod", final.CancelReason)
}

// Test: a moderator without an active lobby must name one
func (s *HandlerSuite) TestResetWithoutLobby() {
	mod := s.dial()
	s.register(mod, "mod")

	s.send(mod, protocol.ResetMatch{})
	e := expect[*protocol.Error](s, mod)
	s.Equal(apierr.CodeInvalidRequest, e.Code)
	s.Contains(e.Message, "lobbyId")
}

// Test: ten players queueing over websockets are merged into a lobby
func (s *HandlerSuite) TestQueueFillsLobby() {
	conns := make([]*websocket.Conn, model.Quorum)
	for i := range conns {
		conns[i] = s.dial()
		id := fmt.Sprintf("p%d", i)
		s.register(conns[i], id)
		s.send(conns[i], protocol.JoinQueue{UserID: model.UserID(id)})
	}

	for _, conn := range conns {
		ready := expect[*protocol.MatchReady](s, conn)
		s.Len(ready.Captains, 2)
	}
	s.Zero(s.app.Queue.Len())
	s.Equal(1, s.app.ActiveActors())
}

// Test: shutting the handler down closes open sockets
func (s *HandlerSuite) TestCloseDisconnectsClients() {
	conn := s.dial()
	s.register(conn, "alice")

	s.app.WSHandler.Close()

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, _, err := conn.ReadMessage()
	s.Error(err)
}
