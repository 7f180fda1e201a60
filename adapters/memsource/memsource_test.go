package memsource_test

import (
	"context"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/adapters/adaptertest"
	"github.com/luno/sepadoc/adapters/memsource"
)

func TestSource(t *testing.T) {
	adaptertest.RunRecordSourceTest(t, func(t *testing.T, records []*sepadoc.Record) sepadoc.RecordSource {
		return memsource.New(records, memsource.WithDateAttribute(adaptertest.DateAttribute))
	})
}

func TestSourceError(t *testing.T) {
	s := memsource.New(nil)
	s.SetError(sepadoc.ErrSourceConnectivity)

	dr := sepadoc.DateRange{Start: time.Now().Add(-time.Hour), End: time.Now()}
	_, err := s.Fetch(context.Background(), dr)
	jtest.Require(t, sepadoc.ErrSourceConnectivity, err)
	require.Equal(t, []sepadoc.DateRange{dr}, s.Fetches())
}

func TestSourceCopiesRecords(t *testing.T) {
	r := sepadoc.NewRecord(1, map[string]sepadoc.Value{"client": sepadoc.StringValue("ACME")})
	s := memsource.New([]*sepadoc.Record{r})

	dr := sepadoc.DateRange{Start: time.Now().Add(-time.Hour), End: time.Now()}
	got, err := s.Fetch(context.Background(), dr)
	jtest.RequireNil(t, err)
	require.Len(t, got, 1)

	got[0].Selected = false
	got[0].Attributes["client"] = sepadoc.StringValue("changed")

	again, err := s.Fetch(context.Background(), dr)
	jtest.RequireNil(t, err)
	require.True(t, again[0].Selected)
	require.Equal(t, "ACME", again[0].Attributes["client"].Raw())
}
