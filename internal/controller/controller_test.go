package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castkit/castkit/internal/domain"
	"github.com/castkit/castkit/internal/engine"
	"github.com/castkit/castkit/internal/log"
	"github.com/castkit/castkit/internal/store"
)

type stubSource struct {
	episodes []domain.Episode
	err      error
}

func (s *stubSource) Episodes(context.Context) ([]domain.Episode, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.episodes, nil
}

func threeEpisodes() []domain.Episode {
	return []domain.Episode{
		{ID: "ep-1", Title: "One", PodcastTitle: "Cast", AudioURL: "http://example.com/1.mp3", Duration: time.Hour},
		{ID: "ep-2", Title: "Two", PodcastTitle: "Cast", AudioURL: "http://example.com/2.mp3", Duration: time.Hour},
		{ID: "ep-3", Title: "Three", PodcastTitle: "Cast", AudioURL: "http://example.com/3.mp3", Duration: time.Hour},
	}
}

type fixture struct {
	ctrl      *Controller
	eng       *engine.Mock
	positions *store.PositionStore
	states    *store.StateStore
}

func newFixture(t *testing.T, src EpisodeSource, saveInterval time.Duration) *fixture {
	t.Helper()
	s, err := store.Open("", "podcast", log.NullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &fixture{
		eng:       engine.NewMock(),
		positions: store.NewPositionStore(s, 0),
		states:    store.NewStateStore(s),
	}
	f.ctrl = New(f.eng, src, f.positions, f.states, saveInterval, log.NullLogger())
	t.Cleanup(f.ctrl.Close)
	return f
}

func TestController_LoadEpisodesEmitsAndPrunes(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, 0)
	f.positions.Save("gone", time.Minute, 0)
	f.positions.Save("ep-2", time.Minute, 0)

	sub := f.ctrl.Subscribe()
	defer sub.Close()

	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))

	select {
	case ev := <-sub.Episodes:
		assert.Len(t, ev.Episodes, 3)
	case <-time.After(time.Second):
		t.Fatal("no episodes event")
	}

	_, ok := f.positions.Get("gone")
	assert.False(t, ok, "positions for vanished episodes are pruned")
	_, ok = f.positions.Get("ep-2")
	assert.True(t, ok)
}

func TestController_LoadEpisodesSurfacesSourceError(t *testing.T) {
	srcErr := errors.New("feed down")
	f := newFixture(t, &stubSource{err: srcErr}, 0)

	sub := f.ctrl.Subscribe()
	defer sub.Close()

	err := f.ctrl.LoadEpisodes(context.Background())
	require.ErrorIs(t, err, srcErr)

	select {
	case ev := <-sub.Error:
		assert.Equal(t, "episodes", ev.Op)
		assert.ErrorIs(t, ev.Err, srcErr)
	case <-time.After(time.Second):
		t.Fatal("no error event")
	}
}

func TestController_RestoresSavedSelectionWithoutAutoplay(t *testing.T) {
	src := &stubSource{episodes: threeEpisodes()}
	f := newFixture(t, src, 0)
	f.states.SaveState(domain.PlayerState{CurrentEpisodeIndex: 2, Volume: 0.8})
	f.positions.Save("ep-3", 5*time.Minute, time.Hour)

	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))

	i, ep, ok := f.ctrl.Current()
	require.True(t, ok)
	assert.Equal(t, 2, i)
	assert.Equal(t, "ep-3", ep.ID)
	assert.False(t, f.eng.IsPlaying(), "restore must not autoplay")

	calls := f.eng.LoadCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 5*time.Minute, calls[0].Start, "load seeds the saved resume position")
}

func TestController_StaleSavedIndexIgnored(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, 0)
	f.states.SaveState(domain.PlayerState{CurrentEpisodeIndex: 7, Volume: 0.8})

	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))

	_, _, ok := f.ctrl.Current()
	assert.False(t, ok)
	assert.Empty(t, f.eng.LoadCalls())
}

func TestController_PlayWithEmptyListIsNoop(t *testing.T) {
	f := newFixture(t, &stubSource{}, 0)
	f.ctrl.Play()
	assert.False(t, f.eng.IsPlaying())
	assert.Empty(t, f.eng.LoadCalls())
}

func TestController_PlayWithoutSelectionLoadsFirst(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, 0)
	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))

	f.ctrl.Play()

	i, ep, ok := f.ctrl.Current()
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, "ep-1", ep.ID)
	assert.True(t, f.eng.IsPlaying())
}

func TestController_PeriodicSaveWhilePlaying(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, 10*time.Millisecond)
	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))

	f.ctrl.LoadEpisode(1, true)
	f.eng.SetPosition(12 * time.Minute)

	require.Eventually(t, func() bool {
		got, ok := f.positions.Get("ep-2")
		return ok && got == 12*time.Minute
	}, time.Second, 5*time.Millisecond, "ticker should persist the position")
}

func TestController_PauseForcesImmediateSave(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, time.Hour)
	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))

	f.ctrl.LoadEpisode(0, true)
	f.eng.SetPosition(20 * time.Minute)
	f.ctrl.Pause()

	got, ok := f.positions.Get("ep-1")
	require.True(t, ok)
	assert.Equal(t, 20*time.Minute, got)
	assert.False(t, f.eng.IsPlaying())
}

func TestController_EndedClearsResumePosition(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, time.Hour)
	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))

	f.ctrl.LoadEpisode(0, true)
	f.eng.SetPosition(20 * time.Minute)
	f.ctrl.Pause()
	_, ok := f.positions.Get("ep-1")
	require.True(t, ok)

	f.eng.SimulateEnded()

	require.Eventually(t, func() bool {
		_, ok := f.positions.Get("ep-1")
		return !ok
	}, time.Second, 5*time.Millisecond, "finished episodes lose their resume position")
}

func TestController_IneligiblePositionNotSaved(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, time.Hour)
	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))

	f.ctrl.LoadEpisode(0, true)
	f.eng.SetPosition(5 * time.Second)
	f.ctrl.Pause()

	_, ok := f.positions.Get("ep-1")
	assert.False(t, ok, "positions inside the first 10s are noise")
}

func TestController_SwitchingEpisodesSavesOutgoingPosition(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, time.Hour)
	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))

	f.ctrl.LoadEpisode(0, true)
	f.eng.SetPosition(15 * time.Minute)

	f.ctrl.Next()

	got, ok := f.positions.Get("ep-1")
	require.True(t, ok)
	assert.Equal(t, 15*time.Minute, got)

	i, ep, _ := f.ctrl.Current()
	assert.Equal(t, 1, i)
	assert.Equal(t, "ep-2", ep.ID)
	assert.True(t, f.eng.IsPlaying(), "playback carries into the next episode")
}

func TestController_NextAtEndOfListIsNoop(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, 0)
	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))
	f.ctrl.LoadEpisode(2, false)

	f.ctrl.Next()

	i, _, _ := f.ctrl.Current()
	assert.Equal(t, 2, i)
}

func TestController_SetSpeedPersists(t *testing.T) {
	f := newFixture(t, &stubSource{}, 0)

	f.ctrl.SetSpeed(1.5)
	assert.Equal(t, 1.5, f.eng.Rate())

	speed, ok := f.states.LoadSpeed()
	require.True(t, ok)
	assert.Equal(t, 1.5, speed)
}

func TestController_SetVolumePersistsState(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, 0)
	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))
	f.ctrl.LoadEpisode(1, false)

	f.ctrl.SetVolume(0.4)

	state, ok := f.states.LoadState()
	require.True(t, ok)
	assert.Equal(t, 1, state.CurrentEpisodeIndex)
	assert.Equal(t, 0.4, state.Volume)
}

func TestController_ConstructionRestoresSpeedAndVolume(t *testing.T) {
	s, err := store.Open("", "podcast", log.NullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	states := store.NewStateStore(s)
	states.SaveSpeed(2.0)
	states.SaveState(domain.PlayerState{CurrentEpisodeIndex: -1, Volume: 0.25})

	eng := engine.NewMock()
	ctrl := New(eng, &stubSource{}, store.NewPositionStore(s, 0), states, 0, log.NullLogger())
	t.Cleanup(ctrl.Close)

	assert.Equal(t, 2.0, eng.Rate())
	assert.Equal(t, 0.25, eng.Volume())
}

func TestController_InvalidPersistedSpeedNotApplied(t *testing.T) {
	s, err := store.Open("", "podcast", log.NullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	states := store.NewStateStore(s)
	states.SaveSpeed(9.0) // written but out of range

	eng := engine.NewMock()
	ctrl := New(eng, &stubSource{}, store.NewPositionStore(s, 0), states, 0, log.NullLogger())
	t.Cleanup(ctrl.Close)

	assert.Equal(t, 1.0, eng.Rate(), "out-of-range speed reads back absent")
}

func TestController_CloseSavesFinalPosition(t *testing.T) {
	s, err := store.Open("", "podcast", log.NullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	positions := store.NewPositionStore(s, 0)
	eng := engine.NewMock()
	ctrl := New(eng, &stubSource{episodes: threeEpisodes()}, positions, store.NewStateStore(s), time.Hour, log.NullLogger())

	require.NoError(t, ctrl.LoadEpisodes(context.Background()))
	ctrl.LoadEpisode(0, true)
	eng.SetPosition(42 * time.Minute)

	ctrl.Close()

	got, ok := positions.Get("ep-1")
	require.True(t, ok)
	assert.Equal(t, 42*time.Minute, got)
}

func TestController_PlayErrorEmittedExactlyOnce(t *testing.T) {
	f := newFixture(t, &stubSource{episodes: threeEpisodes()}, 0)
	require.NoError(t, f.ctrl.LoadEpisodes(context.Background()))
	f.ctrl.LoadEpisode(0, false)

	sub := f.ctrl.Subscribe()
	defer sub.Close()

	playErr := errors.New("device busy")
	f.eng.SetPlayError(playErr)
	f.ctrl.Play()

	select {
	case ev := <-sub.Error:
		assert.Equal(t, "play", ev.Op)
		assert.ErrorIs(t, ev.Err, playErr)
	case <-time.After(time.Second):
		t.Fatal("no error event")
	}

	// The engine emits its own error event for the same failure; the
	// controller must not forward it on top of its own.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sub.Error, "one failure yields one controller event")
}

func TestController_NilLoggerDefaults(t *testing.T) {
	s, err := store.Open("", "podcast", log.NullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	eng := engine.NewMock()
	ctrl := New(eng, &stubSource{episodes: threeEpisodes()}, store.NewPositionStore(s, 0), store.NewStateStore(s), 0, nil)
	t.Cleanup(ctrl.Close)

	require.NoError(t, ctrl.LoadEpisodes(context.Background()))
	ctrl.LoadEpisode(0, false)

	_, ep, ok := ctrl.Current()
	require.True(t, ok)
	assert.Equal(t, "ep-1", ep.ID)
}
