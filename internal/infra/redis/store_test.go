package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"quizparty/internal/domain"
)

type StoreSuite struct {
	suite.Suite
	mr    *miniredis.Miniredis
	store *Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr
	s.store = NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.mr.Close()
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) TestRoomCodeReservation() {
	code, err := s.store.GenerateRoomCode(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(code, 4)
	s.Require().True(s.mr.Exists("roomcode:" + code))

	// a reserved but unbound code does not resolve to a session
	_, err = s.store.GetSessionByCode(s.ctx, code)
	s.Require().ErrorIs(err, domain.ErrSessionNotFound)

	s.Require().NoError(s.store.ReleaseRoomCode(s.ctx, code))
	s.Require().False(s.mr.Exists("roomcode:" + code))
}

func (s *StoreSuite) TestSessionRoundTrip() {
	sess := &domain.Session{
		ID:       "s1",
		RoomCode: "4242",
		ModeID:   "classic_race",
		Status:   domain.SessionLobby,
		Snapshot: domain.Quiz{ID: "quiz-1", Questions: []domain.Question{{ID: "q1"}}},
	}
	s.Require().NoError(s.store.CreateSession(s.ctx, sess))

	got, err := s.store.GetSession(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Equal("4242", got.RoomCode)
	s.Require().Len(got.Snapshot.Questions, 1)

	byCode, err := s.store.GetSessionByCode(s.ctx, "4242")
	s.Require().NoError(err)
	s.Require().Equal("s1", byCode.ID)

	got.Status = domain.SessionInProgress
	s.Require().NoError(s.store.UpdateSession(s.ctx, got))
	again, err := s.store.GetSession(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Equal(domain.SessionInProgress, again.Status)

	_, err = s.store.GetSession(s.ctx, "missing")
	s.Require().ErrorIs(err, domain.ErrSessionNotFound)
}

func (s *StoreSuite) TestSessionKeysCarryTTL() {
	sess := &domain.Session{ID: "s1", RoomCode: "4242"}
	s.Require().NoError(s.store.CreateSession(s.ctx, sess))
	s.Require().Greater(s.mr.TTL("session:s1"), time.Duration(0))
	s.Require().Greater(s.mr.TTL("roomcode:4242"), time.Duration(0))
}

func (s *StoreSuite) TestJoinGuard() {
	p := &domain.Participant{ID: "p1", SessionID: "s1", UserID: "u1", DisplayName: "Ana"}
	s.Require().NoError(s.store.AddParticipant(s.ctx, p))

	dup := &domain.Participant{ID: "p2", SessionID: "s1", UserID: "u1"}
	s.Require().ErrorIs(s.store.AddParticipant(s.ctx, dup), domain.ErrAlreadyJoined)

	other := &domain.Participant{ID: "p3", SessionID: "s2", UserID: "u1"}
	s.Require().NoError(s.store.AddParticipant(s.ctx, other))

	// removal frees the user slot
	s.Require().NoError(s.store.RemoveParticipant(s.ctx, "s1", "p1"))
	s.Require().NoError(s.store.AddParticipant(s.ctx, &domain.Participant{ID: "p4", SessionID: "s1", UserID: "u1"}))
}

func (s *StoreSuite) TestParticipantRoundTrip() {
	p := &domain.Participant{ID: "p1", SessionID: "s1", UserID: "u1", DisplayName: "Ana"}
	s.Require().NoError(s.store.AddParticipant(s.ctx, p))

	p.Score = 140
	p.Streak = 1
	s.Require().NoError(s.store.UpdateParticipant(s.ctx, p))

	got, err := s.store.GetParticipant(s.ctx, "s1", "p1")
	s.Require().NoError(err)
	s.Require().Equal(140, got.Score)

	list, err := s.store.ListParticipants(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(list, 1)

	_, err = s.store.GetParticipant(s.ctx, "s1", "ghost")
	s.Require().ErrorIs(err, domain.ErrParticipantNotFound)
}

func (s *StoreSuite) TestAnswersAreAtMostOnce() {
	a := &domain.ParticipantAnswer{
		ID: "a1", SessionID: "s1", ParticipantID: "p1",
		QuestionIndex: 0, OptionIDs: []string{"o1"}, TimeTakenMs: 2000,
	}
	s.Require().NoError(s.store.SaveAnswer(s.ctx, a))
	s.Require().ErrorIs(s.store.SaveAnswer(s.ctx, &domain.ParticipantAnswer{
		ID: "a2", SessionID: "s1", ParticipantID: "p1", QuestionIndex: 0,
	}), domain.ErrAnswerExists)

	// the host's one-time completion overwrites in place
	a.Correct = true
	a.Points = 140
	s.Require().NoError(s.store.RecordResult(s.ctx, a))

	rows, err := s.store.ListAnswers(s.ctx, "s1", 0)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Require().True(rows[0].Correct)
	s.Require().Equal(140, rows[0].Points)

	empty, err := s.store.ListAnswers(s.ctx, "s1", 7)
	s.Require().NoError(err)
	s.Require().Empty(empty)
}
