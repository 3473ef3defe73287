package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/truckpark-cli/internal/model"
)

func TestFacilityFilter_Where(t *testing.T) {
	dollar := func(n int) string { return fmt.Sprintf("$%d", n) }

	tests := []struct {
		name     string
		filter   FacilityFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "empty",
			filter:   FacilityFilter{},
			wantSQL:  " ORDER BY data_source, source_id LIMIT $1 OFFSET $2",
			wantArgs: []any{DefaultLimit, 0},
		},
		{
			name:     "all fields",
			filter:   FacilityFilter{DataSource: "osm", State: "ks", Type: model.TypeRestArea, Limit: 50, Offset: 100},
			wantSQL:  " WHERE data_source = $1 AND state = $2 AND facility_type = $3 ORDER BY data_source, source_id LIMIT $4 OFFSET $5",
			wantArgs: []any{"osm", "KS", "rest_area", 50, 100},
		},
		{
			name:     "limit clamped",
			filter:   FacilityFilter{Limit: MaxLimit * 2, Offset: -5},
			wantSQL:  " ORDER BY data_source, source_id LIMIT $1 OFFSET $2",
			wantArgs: []any{MaxLimit, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.filter.where(dollar)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFacilityValues(t *testing.T) {
	spaces := 40
	f := model.Facility{
		DataSource:   "tpims",
		SourceID:     "KS-1",
		Name:         "Goodland Rest Area",
		Latitude:     39.35,
		Longitude:    -101.71,
		FacilityType: model.TypeRestArea,
		TruckSpaces:  &spaces,
		DedupKey:     model.NewDedupKey(39.35, -101.71, "Goodland Rest Area"),
		PossibleDuplicateOf: []model.Ref{
			{DataSource: "osm", SourceID: "123"},
		},
	}

	vals, err := facilityValues(&f, "run-1")
	assert.NoError(t, err)
	assert.Len(t, vals, len(facilityColumns)+1)
	assert.Equal(t, 40, vals[11])
	assert.Nil(t, vals[12])
	assert.Equal(t, "null", vals[17])
	assert.Equal(t, `[{"data_source":"osm","source_id":"123"}]`, vals[19])
	assert.Equal(t, "run-1", vals[len(vals)-1])

	f.PossibleDuplicateOf = nil
	vals, err = facilityValues(&f, "run-1")
	assert.NoError(t, err)
	assert.Equal(t, "[]", vals[19])
}
