package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/testutil"
)

const code model.RoomCode = "TIMERS"

type ManagerSuite struct {
	suite.Suite
	clock   *quartz.Mock
	manager *Manager
	ctx     context.Context
	start   time.Time
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.clock = quartz.NewMock(s.T())
	s.manager = New(s.clock, testutil.NopLogger())
	s.ctx = context.Background()
	s.start = s.clock.Now()
}

func (s *ManagerSuite) TearDownTest() {
	s.manager.Stop()
}

func (s *ManagerSuite) advance(d time.Duration) {
	s.clock.Advance(d).MustWait(s.ctx)
}

func recorder() (Fire, chan model.RoomCode) {
	fired := make(chan model.RoomCode, 8)
	return func(_ context.Context, code model.RoomCode) { fired <- code }, fired
}

func (s *ManagerSuite) requireFired(fired chan model.RoomCode) {
	select {
	case got := <-fired:
		s.Equal(code, got)
	case <-time.After(time.Second):
		s.FailNow("timer did not fire")
	}
}

func (s *ManagerSuite) requireQuiet(fired chan model.RoomCode) {
	select {
	case <-fired:
		s.FailNow("unexpected firing")
	default:
	}
}

func (s *ManagerSuite) TestScheduleFiresAtDeadline() {
	fire, fired := recorder()
	s.manager.Schedule(code, s.start.Add(10*time.Second), fire)

	deadline, ok := s.manager.Deadline(code)
	s.True(ok)
	s.Equal(s.start.Add(10*time.Second), deadline)

	s.advance(5 * time.Second)
	s.requireQuiet(fired)

	s.advance(5 * time.Second)
	s.requireFired(fired)

	_, ok = s.manager.Deadline(code)
	s.False(ok)
}

func (s *ManagerSuite) TestPastDeadlineFiresImmediately() {
	fire, fired := recorder()
	s.manager.Schedule(code, s.start.Add(-time.Second), fire)
	s.requireFired(fired)
}

func (s *ManagerSuite) TestScheduleReplacesPendingTimer() {
	first, firstFired := recorder()
	second, secondFired := recorder()

	s.manager.Schedule(code, s.start.Add(10*time.Second), first)
	s.manager.Schedule(code, s.start.Add(20*time.Second), second)

	s.advance(10 * time.Second)
	s.advance(10 * time.Second)
	s.requireFired(secondFired)
	s.requireQuiet(firstFired)
}

func (s *ManagerSuite) TestScheduleSameDeadlineKeepsTimer() {
	first, firstFired := recorder()
	second, secondFired := recorder()

	s.manager.Schedule(code, s.start.Add(10*time.Second), first)
	s.manager.Schedule(code, s.start.Add(10*time.Second), second)

	s.advance(10 * time.Second)
	s.requireFired(firstFired)
	s.requireQuiet(secondFired)
}

func (s *ManagerSuite) TestCancel() {
	fire, fired := recorder()
	s.manager.Schedule(code, s.start.Add(10*time.Second), fire)
	s.manager.Cancel(code)

	_, ok := s.manager.Deadline(code)
	s.False(ok)
	s.advance(10 * time.Second)
	s.requireQuiet(fired)
}

func (s *ManagerSuite) TestRemoveForgetsRoom() {
	fire, fired := recorder()
	s.manager.Schedule(code, s.start.Add(10*time.Second), fire)
	s.Contains(s.manager.Rooms(), code)

	s.manager.Remove(code)

	s.NotContains(s.manager.Rooms(), code)
	s.advance(10 * time.Second)
	s.requireQuiet(fired)
}

func (s *ManagerSuite) TestStaleFiringIsDiscarded() {
	stale, staleFired := recorder()
	fresh, freshFired := recorder()
	s.manager.Schedule(code, s.start.Add(10*time.Second), stale)

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- s.manager.Do(code, func() error {
			close(inside)
			<-release
			s.manager.Schedule(code, s.start.Add(30*time.Second), fresh)
			return nil
		})
	}()
	<-inside

	// The timer goes off while a transition holds the room
	advanced := make(chan struct{})
	go func() {
		s.clock.Advance(10 * time.Second).MustWait(s.ctx)
		close(advanced)
	}()
	close(release)
	s.Require().NoError(<-done)
	<-advanced
	s.requireQuiet(staleFired)

	s.advance(20 * time.Second)
	s.requireFired(freshFired)
}

func (s *ManagerSuite) TestDoSerializesPerRoom() {
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.manager.Do(code, func() error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	s.Equal(50, counter)
}

func (s *ManagerSuite) TestStop() {
	fire, fired := recorder()
	s.manager.Schedule(code, s.start.Add(10*time.Second), fire)

	s.manager.Stop()

	s.ErrorIs(s.manager.Do(code, func() error { return nil }), ErrStopped)
	_, ok := s.manager.Deadline(code)
	s.False(ok)
	s.advance(10 * time.Second)
	s.requireQuiet(fired)
}
