package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/exercises"
	"github.com/2beens/ironlog/internal/gymlog/stats"
	"github.com/2beens/ironlog/internal/gymlog/workouts"
	"github.com/2beens/ironlog/internal/prefs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) exerciseStatsRequest(ctx context.Context, identifier string) stats.ExerciseStatsResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/gymlog/stats/exercise/%s", serverEndpoint, url.PathEscape(identifier)),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var statsResp stats.ExerciseStatsResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &statsResp))
	return statsResp
}

func (s *IntegrationTestSuite) dailyVolumeRequest(ctx context.Context, urlVals url.Values) stats.VolumeResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/gymlog/stats/volume?%s", serverEndpoint, urlVals.Encode()),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var volumeResp stats.VolumeResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &volumeResp))
	return volumeResp
}

func (s *IntegrationTestSuite) graphRequest(ctx context.Context, graphType, identifier string) stats.GraphResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf(
			"%s/gymlog/stats/graph/%s/exercise/%s",
			serverEndpoint, graphType, url.PathEscape(identifier),
		),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var graphResp stats.GraphResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &graphResp))
	return graphResp
}

func (s *IntegrationTestSuite) TestStats() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.cleanupGymlogData(ctx)

	// a deadlift block in early July with a rest gap after the third
	// session, plus a single squat session in the middle of it
	for _, workoutReq := range []workouts.AddWorkoutRequest{
		{Exercise: "Deadlift", Timestamp: "2025-07-01T10:00:00Z", Sets: intPtr(3), Reps: intPtr(5), Weight: floatPtr(140)},
		{Exercise: "Deadlift", Timestamp: "2025-07-02T10:00:00Z", Sets: intPtr(3), Reps: intPtr(5), Weight: floatPtr(150)},
		{Exercise: "Squat", Timestamp: "2025-07-02T17:00:00Z", Sets: intPtr(3), Reps: intPtr(5), Weight: floatPtr(100)},
		{Exercise: "Deadlift", Timestamp: "2025-07-03T10:00:00Z", Sets: intPtr(2), Reps: intPtr(3), Weight: floatPtr(160)},
		{Exercise: "Deadlift", Timestamp: "2025-07-08T10:00:00Z", Sets: intPtr(1), Reps: intPtr(8), Weight: floatPtr(120)},
	} {
		added := s.newWorkoutRequest(ctx, workoutReq)
		require.NotZero(t, added.Workout.ID)
	}

	t.Run("training summary", func(t *testing.T) {
		summary := s.exerciseStatsRequest(ctx, "deadlift")
		assert.Equal(t, "Deadlift", summary.ExerciseName)
		assert.Equal(t, 4, summary.TotalWorkouts)
		assert.True(t, summary.FirstWorkout.Equal(time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)))
		assert.True(t, summary.LastWorkout.Equal(time.Date(2025, 7, 8, 10, 0, 0, 0, time.UTC)))

		// volume: 3x5x140 + 3x5x150 + 2x3x160 + 1x8x120
		assert.InDelta(t, 6270, summary.TotalVolume, 0.001)
		// exactly one week between the first and the last session
		assert.InDelta(t, 4, summary.WorkoutsPerWeek, 0.001)

		// three days in a row, then a five day gap, the whole block
		// far enough in the past that no streak is running anymore
		assert.Equal(t, 0, summary.Streaks.Current)
		assert.Equal(t, 3, summary.Streaks.Longest)
		assert.Equal(t, 5, summary.Streaks.LongestGapDays)
		assert.Equal(t, 4, summary.Streaks.WorkoutDays)

		require.NotNil(t, summary.Bests.Weight)
		assert.InDelta(t, 160, *summary.Bests.Weight, 0.001)
		require.NotNil(t, summary.Bests.Reps)
		assert.InDelta(t, 8, *summary.Bests.Reps, 0.001)
		assert.Nil(t, summary.Bests.DurationMin)
		assert.Nil(t, summary.Bests.Distance)

		assert.Equal(t, stats.UnitsMetric, summary.Units)
		assert.Equal(t, "kg", summary.WeightUnit)
		assert.Equal(t, "km", summary.DistanceUnit)
	})

	t.Run("summary in imperial units", func(t *testing.T) {
		updated := s.patchPrefsRequest(ctx, prefs.Patch{Units: strPtr("imperial")})
		require.Equal(t, stats.UnitsImperial, updated.Units)
		defer func() {
			restored := s.patchPrefsRequest(ctx, prefs.Patch{Units: strPtr("metric")})
			require.Equal(t, stats.UnitsMetric, restored.Units)
		}()

		summary := s.exerciseStatsRequest(ctx, "deadlift")
		assert.Equal(t, stats.UnitsImperial, summary.Units)
		assert.Equal(t, "lbs", summary.WeightUnit)
		assert.Equal(t, "mi", summary.DistanceUnit)
		assert.InDelta(t, 13822.99, summary.TotalVolume, 0.1)
		require.NotNil(t, summary.Bests.Weight)
		assert.InDelta(t, 352.74, *summary.Bests.Weight, 0.01)
		// reps are reps in either system
		require.NotNil(t, summary.Bests.Reps)
		assert.InDelta(t, 8, *summary.Bests.Reps, 0.001)
	})

	t.Run("daily volume", func(t *testing.T) {
		all := s.dailyVolumeRequest(ctx, nil)
		assert.Equal(t, stats.UnitsMetric, all.Units)
		assert.Equal(t, "kg", all.WeightUnit)

		// newest day first, exercise names break the tie on july 2nd
		require.Len(t, all.Volumes, 5)
		julySecond := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
		assert.True(t, all.Volumes[0].Day.Equal(time.Date(2025, 7, 8, 0, 0, 0, 0, time.UTC)))
		assert.InDelta(t, 960, all.Volumes[0].Volume, 0.001)
		assert.True(t, all.Volumes[1].Day.Equal(time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)))
		assert.True(t, all.Volumes[2].Day.Equal(julySecond))
		assert.Equal(t, "Deadlift", all.Volumes[2].ExerciseName)
		assert.InDelta(t, 2250, all.Volumes[2].Volume, 0.001)
		assert.True(t, all.Volumes[3].Day.Equal(julySecond))
		assert.Equal(t, "Squat", all.Volumes[3].ExerciseName)
		assert.InDelta(t, 1500, all.Volumes[3].Volume, 0.001)
		assert.True(t, all.Volumes[4].Day.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
		assert.InDelta(t, 2100, all.Volumes[4].Volume, 0.001)

		deadliftOnly := s.dailyVolumeRequest(ctx, url.Values{"exercise": []string{"DEADLIFT"}})
		require.Len(t, deadliftOnly.Volumes, 4)
		for _, dayVolume := range deadliftOnly.Volumes {
			assert.Equal(t, "Deadlift", dayVolume.ExerciseName)
		}
	})

	t.Run("estimated one rep max graph", func(t *testing.T) {
		graph := s.graphRequest(ctx, "estimated-1rm", "deadlift")
		assert.Equal(t, "Deadlift", graph.Exercise)
		assert.Equal(t, stats.GraphTypeEstimated1RM, graph.GraphType)
		assert.Equal(t, "kg", graph.Unit)

		// one estimate per training day, oldest first
		require.Len(t, graph.Points, 4)
		assert.True(t, graph.Points[0].Day.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
		assert.InDelta(t, 163.33, graph.Points[0].Value, 0.01) // 140 x (1 + 5/30)
		assert.InDelta(t, 175, graph.Points[1].Value, 0.001)
		assert.InDelta(t, 176, graph.Points[2].Value, 0.001)
		assert.True(t, graph.Points[3].Day.Equal(time.Date(2025, 7, 8, 0, 0, 0, 0, time.UTC)))
		assert.InDelta(t, 152, graph.Points[3].Value, 0.001)

		maxReps := s.graphRequest(ctx, "max-reps", "deadlift")
		assert.Equal(t, "reps", maxReps.Unit)
		require.Len(t, maxReps.Points, 4)
		assert.InDelta(t, 8, maxReps.Points[3].Value, 0.001)
	})

	t.Run("cardio metrics", func(t *testing.T) {
		running := s.newExerciseRequest(ctx, exercises.AddExerciseRequest{
			Name: "Running",
			Type: "cardio",
		})
		require.True(t, running.LogDuration)
		require.True(t, running.LogDistance)

		s.newWorkoutRequest(ctx, workouts.AddWorkoutRequest{
			Exercise:    "Running",
			Timestamp:   "2025-07-05T08:00:00Z",
			DurationMin: intPtr(30),
			Distance:    floatPtr(5),
		})
		s.newWorkoutRequest(ctx, workouts.AddWorkoutRequest{
			Exercise:    "Running",
			Timestamp:   "2025-07-06T08:00:00Z",
			DurationMin: intPtr(25),
			Distance:    floatPtr(6.5),
		})

		summary := s.exerciseStatsRequest(ctx, "running")
		assert.Equal(t, 2, summary.TotalWorkouts)
		assert.Nil(t, summary.Bests.Weight)
		require.NotNil(t, summary.Bests.DurationMin)
		assert.InDelta(t, 30, *summary.Bests.DurationMin, 0.001)
		require.NotNil(t, summary.Bests.Distance)
		assert.InDelta(t, 6.5, *summary.Bests.Distance, 0.001)
		// without weights there is nothing to add up
		assert.InDelta(t, 0, summary.TotalVolume, 0.001)

		duration := s.graphRequest(ctx, "workout-duration", "running")
		assert.Equal(t, "min", duration.Unit)
		require.Len(t, duration.Points, 2)
		assert.InDelta(t, 30, duration.Points[0].Value, 0.001)
		assert.InDelta(t, 25, duration.Points[1].Value, 0.001)

		distance := s.graphRequest(ctx, "workout-distance", "running")
		assert.Equal(t, "km", distance.Unit)
		require.Len(t, distance.Points, 2)
		assert.InDelta(t, 5, distance.Points[0].Value, 0.001)
		assert.InDelta(t, 6.5, distance.Points[1].Value, 0.001)
	})

	t.Run("unknown graph type", func(t *testing.T) {
		req, err := http.NewRequestWithContext(
			ctx,
			"GET", fmt.Sprintf("%s/gymlog/stats/graph/bogus/exercise/deadlift", serverEndpoint),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "invalid graph type [bogus]", strings.TrimSpace(string(respBytes)))
	})

	t.Run("unknown exercise", func(t *testing.T) {
		req, err := http.NewRequestWithContext(
			ctx,
			"GET", fmt.Sprintf("%s/gymlog/stats/exercise/monkey-bars", serverEndpoint),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "exercise not found", strings.TrimSpace(string(respBytes)))

		// same story when filtering volumes by an unknown exercise
		volumeReq, err := http.NewRequestWithContext(
			ctx,
			"GET", fmt.Sprintf("%s/gymlog/stats/volume?exercise=monkey-bars", serverEndpoint),
			nil,
		)
		require.NoError(t, err)
		volumeReq.Header.Set("User-Agent", "test-agent")

		volumeResp, err := s.httpClient.Do(volumeReq)
		require.NoError(t, err)
		defer volumeResp.Body.Close()
		require.Equal(t, http.StatusNotFound, volumeResp.StatusCode)
	})

	t.Run("no workouts yet", func(t *testing.T) {
		ohp := s.newExerciseRequest(ctx, exercises.AddExerciseRequest{
			Name:    "Overhead Press",
			Type:    "resistance",
			Muscles: []string{"shoulders", "triceps"},
		})
		require.NotZero(t, ohp.ID)

		req, err := http.NewRequestWithContext(
			ctx,
			"GET", fmt.Sprintf("%s/gymlog/stats/exercise/%d", serverEndpoint, ohp.ID),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "no workouts logged for this exercise yet", strings.TrimSpace(string(respBytes)))
	})
}
