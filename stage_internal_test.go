package sepadoc

import (
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"
)

func TestStageTransitions(t *testing.T) {
	testCases := []struct {
		from  StageState
		to    StageState
		valid bool
	}{
		{StageStateIdle, StageStateFetching, true},
		{StageStateIdle, StageStateGenerating, true},
		{StageStateIdle, StageStateSending, true},
		{StageStateIdle, StageStateCompleted, false},
		{StageStateFetching, StageStateGenerating, false},
		{StageStateFetching, StageStateCompleted, true},
		{StageStateGenerating, StageStateCancelled, true},
		{StageStateSending, StageStateFailed, true},
		{StageStateSending, StageStateIdle, false},
		{StageStateCompleted, StageStateIdle, true},
		{StageStateCancelled, StageStateFetching, false},
		{StageStateFailed, StageStateIdle, true},
		{StageStateUnknown, StageStateIdle, false},
	}

	for _, tc := range testCases {
		t.Run(tc.from.String()+"-"+tc.to.String(), func(t *testing.T) {
			err := validateStageTransition(tc.from, tc.to)
			if tc.valid {
				jtest.RequireNil(t, err)
				return
			}

			jtest.Require(t, ErrInvalidStageTransition, err)
		})
	}
}

func TestStageStates(t *testing.T) {
	for _, s := range []Stage{StageFetch, StageGenerate, StageSend} {
		require.True(t, s.Valid())
		require.True(t, s.activeState().Active())
	}
	require.False(t, StageUnknown.Valid())

	for _, ss := range stageStateOrder {
		require.True(t, ss.Valid())
		require.False(t, ss.Active() && ss.Finished())
	}

	require.Equal(t, StageStateCancelled, OutcomeCancelled.finalState())
	require.Equal(t, StageStateCompleted, OutcomeNoRecords.finalState())
	require.Equal(t, StageStateFailed, OutcomeFailed.finalState())
}

func TestPaginate(t *testing.T) {
	testCases := []struct {
		name      string
		height    int
		total     int
		perPage   int
		pageCount int
	}{
		{name: "default viewport", height: 422, total: 45, perPage: 20, pageCount: 3},
		{name: "exact fit", height: 82, total: 6, perPage: 3, pageCount: 2},
		{name: "tiny viewport", height: 5, total: 2, perPage: 1, pageCount: 2},
		{name: "empty", height: 422, total: 0, perPage: 20, pageCount: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := paginate(tc.height, tc.total)
			require.Equal(t, tc.perPage, p.ItemsPerPage)
			require.Equal(t, tc.pageCount, p.PageCount)
		})
	}

	start, end := paginate(82, 7).bounds(2)
	require.Equal(t, 6, start)
	require.Equal(t, 7, end)
}
