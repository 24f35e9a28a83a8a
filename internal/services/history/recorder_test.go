package history

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/openface/internal/model"
)

// RecorderSuite runs the same checks against every Recorder
type RecorderSuite struct {
	suite.Suite
	newRecorder func() Recorder
	recorder    Recorder
	ctx         context.Context
	base        time.Time
}

func TestMemoryRecorder(t *testing.T) {
	suite.Run(t, &RecorderSuite{newRecorder: func() Recorder { return NewMemory() }})
}

func TestPostgresRecorder(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pg, err := NewPostgres(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pg.Close()

	suite.Run(t, &RecorderSuite{newRecorder: func() Recorder {
		if _, err := pg.pool.Exec(ctx, "TRUNCATE match_players, match_history"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return pg
	}})
}

func (s *RecorderSuite) SetupTest() {
	s.recorder = s.newRecorder()
	s.ctx = context.Background()
	s.base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RecorderSuite) summary(offset time.Duration, players ...model.PlayerID) *model.MatchSummary {
	standings := make([]model.Standing, len(players))
	for i, uid := range players {
		standings[i] = model.Standing{UID: uid, DisplayName: string(uid), Score: 10 - i*5, Place: i + 1}
	}
	return &model.MatchSummary{
		MatchID:     uuid.NewString(),
		Room:        "ABCDEF",
		Rounds:      5,
		Standings:   standings,
		StartedAt:   s.base.Add(offset - time.Hour),
		CompletedAt: s.base.Add(offset),
	}
}

func (s *RecorderSuite) TestRecordAndGet() {
	summary := s.summary(0, "alice", "bob")
	s.Require().NoError(s.recorder.Record(s.ctx, summary))

	got, err := s.recorder.Get(s.ctx, summary.MatchID)
	s.Require().NoError(err)
	s.Equal(summary.Room, got.Room)
	s.Equal(summary.Standings, got.Standings)
	s.True(summary.CompletedAt.Equal(got.CompletedAt))
}

func (s *RecorderSuite) TestGetMissing() {
	_, err := s.recorder.Get(s.ctx, uuid.NewString())
	s.ErrorIs(err, ErrMatchNotFound)
}

func (s *RecorderSuite) TestRecordTwiceReplaces() {
	summary := s.summary(0, "alice", "bob")
	s.Require().NoError(s.recorder.Record(s.ctx, summary))

	summary.Standings[0].Score = 42
	s.Require().NoError(s.recorder.Record(s.ctx, summary))

	got, err := s.recorder.Get(s.ctx, summary.MatchID)
	s.Require().NoError(err)
	s.Equal(42, got.Standings[0].Score)

	all, err := s.recorder.List(s.ctx, "", 0)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *RecorderSuite) TestListNewestFirstWithLimit() {
	for i := 0; i < 4; i++ {
		s.Require().NoError(s.recorder.Record(s.ctx, s.summary(time.Duration(i)*time.Minute, "alice", "bob")))
	}

	list, err := s.recorder.List(s.ctx, "", 3)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	for i := 1; i < len(list); i++ {
		s.True(list[i-1].CompletedAt.After(list[i].CompletedAt), fmt.Sprintf("entry %d out of order", i))
	}
}

func (s *RecorderSuite) TestListFiltersByPlayer() {
	s.Require().NoError(s.recorder.Record(s.ctx, s.summary(0, "alice", "bob")))
	s.Require().NoError(s.recorder.Record(s.ctx, s.summary(time.Minute, "carol", "bob")))

	list, err := s.recorder.List(s.ctx, "alice", 10)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(model.PlayerID("alice"), list[0].Standings[0].UID)

	list, err = s.recorder.List(s.ctx, "bob", 10)
	s.Require().NoError(err)
	s.Len(list, 2)
}
