package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/2beens/ironlog/internal/gymlog/exercises"
	"github.com/2beens/ironlog/internal/gymlog/repo"
	"github.com/2beens/ironlog/internal/gymlog/workouts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) newExerciseRequest(ctx context.Context, exerciseReq exercises.AddExerciseRequest) repo.Exercise {
	exerciseJson, err := json.Marshal(exerciseReq)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/gymlog/exercises", serverEndpoint),
		bytes.NewReader(exerciseJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", testAppUserAgent)
	req.Header.Set("Authorization", testAppSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var addedExercise repo.Exercise
	require.NoError(s.T(), json.Unmarshal(respBytes, &addedExercise))
	return addedExercise
}

func (s *IntegrationTestSuite) getExerciseRequest(ctx context.Context, id int) repo.Exercise {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/gymlog/exercises/%d", serverEndpoint, id),
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

	var exercise repo.Exercise
	require.NoError(s.T(), json.Unmarshal(respBytes, &exercise))
	return exercise
}

func (s *IntegrationTestSuite) resolveExerciseRequest(ctx context.Context, identifier string) repo.Exercise {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/gymlog/exercises/resolve/%s", serverEndpoint, url.PathEscape(identifier)),
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

	var exercise repo.Exercise
	require.NoError(s.T(), json.Unmarshal(respBytes, &exercise))
	return exercise
}

func (s *IntegrationTestSuite) listExercisesRequest(ctx context.Context) exercises.ListResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/gymlog/exercises", serverEndpoint),
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

	var listResp exercises.ListResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &listResp))
	return listResp
}

func (s *IntegrationTestSuite) listMusclesRequest(ctx context.Context) exercises.MusclesResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/gymlog/exercises/muscles", serverEndpoint),
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

	var musclesResp exercises.MusclesResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &musclesResp))
	return musclesResp
}

func (s *IntegrationTestSuite) updateExerciseRequest(ctx context.Context, id int, exerciseReq exercises.AddExerciseRequest) exercises.UpdateExerciseResponse {
	exerciseJson, err := json.Marshal(exerciseReq)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"PUT", fmt.Sprintf("%s/gymlog/exercises/%d", serverEndpoint, id),
		bytes.NewReader(exerciseJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", testAppUserAgent)
	req.Header.Set("Authorization", testAppSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var updateResp exercises.UpdateExerciseResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &updateResp))
	return updateResp
}

func (s *IntegrationTestSuite) deleteExerciseRequest(ctx context.Context, id int) exercises.DeleteExerciseResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"DELETE", fmt.Sprintf("%s/gymlog/exercises/%d", serverEndpoint, id),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", testAppUserAgent)
	req.Header.Set("Authorization", testAppSecret)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var deleteResp exercises.DeleteExerciseResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &deleteResp))
	return deleteResp
}

// newAliasRequest goes through a browser session instead of the app
// secret, covering the token auth path on a gym log write
func (s *IntegrationTestSuite) newAliasRequest(ctx context.Context, sessionToken string, aliasReq exercises.AddAliasRequest) repo.Alias {
	aliasJson, err := json.Marshal(aliasReq)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/gymlog/exercises/alias", serverEndpoint),
		bytes.NewReader(aliasJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-IRONLOG-TOKEN", sessionToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var addedAlias repo.Alias
	require.NoError(s.T(), json.Unmarshal(respBytes, &addedAlias))
	return addedAlias
}

func (s *IntegrationTestSuite) listAliasesRequest(ctx context.Context, exerciseName string) exercises.AliasesResponse {
	urlVals := url.Values{}
	if exerciseName != "" {
		urlVals.Add("exercise", exerciseName)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/gymlog/exercises/alias?%s", serverEndpoint, urlVals.Encode()),
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

	var aliasesResp exercises.AliasesResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &aliasesResp))
	return aliasesResp
}

func (s *IntegrationTestSuite) deleteAliasRequest(ctx context.Context, sessionToken, name string) exercises.DeleteAliasResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"DELETE", fmt.Sprintf("%s/gymlog/exercises/alias/%s", serverEndpoint, url.PathEscape(name)),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-IRONLOG-TOKEN", sessionToken)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var deleteResp exercises.DeleteAliasResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &deleteResp))
	return deleteResp
}

func (s *IntegrationTestSuite) TestExercisesAndAliases() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.cleanupGymlogData(ctx)

	// alias writes below go through a browser session
	sessionToken := doLogin(ctx, t)

	deadlift := s.newExerciseRequest(ctx, exercises.AddExerciseRequest{
		Name:    "Deadlift",
		Type:    "resistance",
		Muscles: []string{"Back ", " Legs"},
	})
	require.NotZero(t, deadlift.ID)
	assert.Equal(t, repo.ExerciseTypeResistance, deadlift.Type)
	assert.Equal(t, []string{"back", "legs"}, deadlift.Muscles)
	assert.True(t, deadlift.LogWeight)
	assert.True(t, deadlift.LogReps)
	assert.False(t, deadlift.LogDuration)

	row := s.newExerciseRequest(ctx, exercises.AddExerciseRequest{
		Name:    "Barbell Row",
		Type:    "resistance",
		Muscles: []string{"back"},
	})
	require.NotZero(t, row.ID)

	running := s.newExerciseRequest(ctx, exercises.AddExerciseRequest{
		Name: "Running",
		Type: "cardio",
	})
	assert.False(t, running.LogWeight)
	assert.True(t, running.LogDuration)
	assert.True(t, running.LogDistance)

	t.Run("duplicate name rejected", func(t *testing.T) {
		exerciseJson, err := json.Marshal(exercises.AddExerciseRequest{
			Name: "deadlift",
			Type: "resistance",
		})
		require.NoError(t, err)

		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/gymlog/exercises", serverEndpoint),
			bytes.NewReader(exerciseJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", testAppUserAgent)
		req.Header.Set("Authorization", testAppSecret)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusConflict, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "exercise already exists", strings.TrimSpace(string(respBytes)))
	})

	// resolve works with the id, the name ignoring case, and aliases
	byID := s.resolveExerciseRequest(ctx, strconv.Itoa(deadlift.ID))
	assert.Equal(t, deadlift.ID, byID.ID)
	byName := s.resolveExerciseRequest(ctx, "DEADLIFT")
	assert.Equal(t, deadlift.ID, byName.ID)

	dlAlias := s.newAliasRequest(ctx, sessionToken, exercises.AddAliasRequest{
		Alias:    "dl",
		Exercise: "Deadlift",
	})
	assert.Equal(t, "dl", dlAlias.Name)
	assert.Equal(t, "Deadlift", dlAlias.ExerciseName)

	byAlias := s.resolveExerciseRequest(ctx, "DL")
	assert.Equal(t, deadlift.ID, byAlias.ID)

	// the alias target can be given by id too
	rowAlias := s.newAliasRequest(ctx, sessionToken, exercises.AddAliasRequest{
		Alias:    "bbrow",
		Exercise: strconv.Itoa(row.ID),
	})
	assert.Equal(t, "Barbell Row", rowAlias.ExerciseName)

	t.Run("duplicate alias rejected", func(t *testing.T) {
		aliasJson, err := json.Marshal(exercises.AddAliasRequest{
			Alias:    "DL",
			Exercise: "Barbell Row",
		})
		require.NoError(t, err)

		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/gymlog/exercises/alias", serverEndpoint),
			bytes.NewReader(aliasJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-IRONLOG-TOKEN", sessionToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusConflict, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "alias already exists", strings.TrimSpace(string(respBytes)))
	})

	t.Run("alias for unknown exercise", func(t *testing.T) {
		aliasJson, err := json.Marshal(exercises.AddAliasRequest{
			Alias:    "ohp",
			Exercise: "Overhead Press",
		})
		require.NoError(t, err)

		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/gymlog/exercises/alias", serverEndpoint),
			bytes.NewReader(aliasJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-IRONLOG-TOKEN", sessionToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "exercise not found", strings.TrimSpace(string(respBytes)))
	})

	// alias listing, sorted by name, optionally per exercise
	allAliases := s.listAliasesRequest(ctx, "")
	require.Len(t, allAliases.Aliases, 2)
	assert.Equal(t, "bbrow", allAliases.Aliases[0].Name)
	assert.Equal(t, "dl", allAliases.Aliases[1].Name)

	deadliftAliases := s.listAliasesRequest(ctx, "deadlift")
	require.Len(t, deadliftAliases.Aliases, 1)
	assert.Equal(t, "dl", deadliftAliases.Aliases[0].Name)

	// exercise listing is sorted by name
	listResp := s.listExercisesRequest(ctx)
	require.Equal(t, 3, listResp.Total)
	require.Len(t, listResp.Exercises, 3)
	assert.Equal(t, "Barbell Row", listResp.Exercises[0].Name)
	assert.Equal(t, "Deadlift", listResp.Exercises[1].Name)
	assert.Equal(t, "Running", listResp.Exercises[2].Name)

	// muscle groups are distinct and sorted
	musclesResp := s.listMusclesRequest(ctx)
	assert.Equal(t, []string{"back", "legs"}, musclesResp.Muscles)

	// one logged deadlift via its alias, for the rename cascade below
	loggedWorkout := s.newWorkoutRequest(ctx, workouts.AddWorkoutRequest{
		Exercise:  "dl",
		Timestamp: "2025-05-10T09:00:00Z",
		Sets:      intPtr(3),
		Reps:      intPtr(5),
		Weight:    floatPtr(140),
	})
	assert.Equal(t, "Deadlift", loggedWorkout.Workout.ExerciseName)

	updateResp := s.updateExerciseRequest(ctx, deadlift.ID, exercises.AddExerciseRequest{
		Name:    "Conventional Deadlift",
		Type:    "resistance",
		Muscles: []string{"back", "legs", "grip"},
	})
	assert.Equal(t, deadlift.ID, updateResp.UpdatedID)

	renamed := s.getExerciseRequest(ctx, deadlift.ID)
	assert.Equal(t, "Conventional Deadlift", renamed.Name)
	assert.Equal(t, []string{"back", "legs", "grip"}, renamed.Muscles)

	// the alias and the logged history follow the rename
	aliasTarget := s.resolveExerciseRequest(ctx, "dl")
	assert.Equal(t, "Conventional Deadlift", aliasTarget.Name)
	renamedWorkout := s.getWorkoutRequest(ctx, loggedWorkout.Workout.ID)
	assert.Equal(t, "Conventional Deadlift", renamedWorkout.ExerciseName)

	// deleting the definition takes its aliases with it, the logged
	// workouts stay
	deleteResp := s.deleteExerciseRequest(ctx, deadlift.ID)
	assert.Equal(t, deadlift.ID, deleteResp.DeletedID)

	afterDelete := s.listAliasesRequest(ctx, "")
	require.Len(t, afterDelete.Aliases, 1)
	assert.Equal(t, "bbrow", afterDelete.Aliases[0].Name)

	keptWorkout := s.getWorkoutRequest(ctx, loggedWorkout.Workout.ID)
	assert.Equal(t, "Conventional Deadlift", keptWorkout.ExerciseName)

	t.Run("resolve removed exercise", func(t *testing.T) {
		req, err := http.NewRequestWithContext(
			ctx,
			"GET", fmt.Sprintf("%s/gymlog/exercises/resolve/%s", serverEndpoint, url.PathEscape("Conventional Deadlift")),
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
	})

	deletedAlias := s.deleteAliasRequest(ctx, sessionToken, "bbrow")
	assert.Equal(t, "bbrow", deletedAlias.DeletedAlias)

	t.Run("delete unknown alias", func(t *testing.T) {
		req, err := http.NewRequestWithContext(
			ctx,
			"DELETE", fmt.Sprintf("%s/gymlog/exercises/alias/bbrow", serverEndpoint),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-IRONLOG-TOKEN", sessionToken)

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "alias not found", strings.TrimSpace(string(respBytes)))
	})
}
