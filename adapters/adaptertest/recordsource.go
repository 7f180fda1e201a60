package adaptertest

import (
	"context"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/luno/sepadoc"
)

// DateAttribute is the attribute RunRecordSourceTest filters on.
const DateAttribute = "date_avis"

// RecordSourceFactory returns a source holding records. Implementations filter on DateAttribute.
type RecordSourceFactory func(t *testing.T, records []*sepadoc.Record) sepadoc.RecordSource

// RunRecordSourceTest checks the behaviour every RecordSource must share.
func RunRecordSourceTest(t *testing.T, factory RecordSourceFactory) {
	tests := []func(t *testing.T, factory RecordSourceFactory){
		testMissingDates,
		testFetchOrderAndRange,
		testFetchEmpty,
	}

	for _, test := range tests {
		test(t, factory)
	}
}

func fixture() []*sepadoc.Record {
	day := func(d int) sepadoc.Value {
		return sepadoc.DateValue(time.Date(2023, time.January, d, 0, 0, 0, 0, time.UTC))
	}

	return []*sepadoc.Record{
		sepadoc.NewRecord(1, map[string]sepadoc.Value{DateAttribute: day(3), "client": sepadoc.StringValue("Alpha")}),
		sepadoc.NewRecord(2, map[string]sepadoc.Value{DateAttribute: day(15), "client": sepadoc.StringValue("Bravo")}),
		sepadoc.NewRecord(3, map[string]sepadoc.Value{DateAttribute: day(28), "client": sepadoc.StringValue("Charlie")}),
	}
}

func testMissingDates(t *testing.T, factory RecordSourceFactory) {
	t.Run("Missing dates", func(t *testing.T) {
		source := factory(t, fixture())
		ctx := context.Background()
		start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC)

		testCases := []struct {
			name     string
			dr       sepadoc.DateRange
			expected error
		}{
			{name: "Neither", dr: sepadoc.DateRange{}, expected: sepadoc.ErrDatesNotSpecified},
			{name: "No start", dr: sepadoc.DateRange{End: end}, expected: sepadoc.ErrStartDateNotSpecified},
			{name: "No end", dr: sepadoc.DateRange{Start: start}, expected: sepadoc.ErrEndDateNotSpecified},
			{name: "Reversed", dr: sepadoc.DateRange{Start: end, End: start}, expected: sepadoc.ErrInvalidDateRange},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				records, err := source.Fetch(ctx, tc.dr)
				jtest.Require(t, tc.expected, err)
				require.Empty(t, records)
				require.Equal(t, sepadoc.KindConfiguration, sepadoc.KindOf(err))
			})
		}
	})
}

func testFetchOrderAndRange(t *testing.T, factory RecordSourceFactory) {
	t.Run("Fetch keeps source order and bounds", func(t *testing.T) {
		source := factory(t, fixture())

		records, err := source.Fetch(context.Background(), sepadoc.DateRange{
			Start: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2023, time.January, 20, 0, 0, 0, 0, time.UTC),
		})
		jtest.RequireNil(t, err)
		require.Len(t, records, 2)

		require.Equal(t, int64(1), records[0].ID)
		require.Equal(t, int64(2), records[1].ID)
		for _, r := range records {
			require.True(t, r.Selected)
			require.False(t, r.HasDocument())
		}

		client, err := records[1].FormattedAttribute("client")
		jtest.RequireNil(t, err)
		require.Equal(t, "Bravo", client)

		date, err := records[0].FormattedAttribute(DateAttribute)
		jtest.RequireNil(t, err)
		require.Equal(t, "03-01-2023", date)
	})
}

func testFetchEmpty(t *testing.T, factory RecordSourceFactory) {
	t.Run("Fetch outside every record", func(t *testing.T) {
		source := factory(t, fixture())

		records, err := source.Fetch(context.Background(), sepadoc.DateRange{
			Start: time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2022, time.January, 31, 0, 0, 0, 0, time.UTC),
		})
		jtest.RequireNil(t, err)
		require.Empty(t, records)
	})
}
