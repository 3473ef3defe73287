package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  CSVOptions
		want  [][]string
	}{
		{
			name:  "plain",
			input: "id,lat,lon\n1,39.1,-94.5\n2,40.0,-95.0\n",
			want:  [][]string{{"id", "lat", "lon"}, {"1", "39.1", "-94.5"}, {"2", "40.0", "-95.0"}},
		},
		{
			name:  "pipe delimited",
			input: "id|name\n7|Flying J\n",
			opts:  CSVOptions{Delimiter: '|'},
			want:  [][]string{{"id", "name"}, {"7", "Flying J"}},
		},
		{
			name:  "cells untrimmed",
			input: " id , name \n 7 , Love's \n",
			want:  [][]string{{" id ", " name "}, {" 7 ", " Love's "}},
		},
		{
			name:  "lazy quotes",
			input: "id,name\n1,\"I-70 \"East\" Rest Area\"\n",
			opts:  CSVOptions{LazyQuotes: true},
			want:  [][]string{{"id", "name"}, {"1", `I-70 "East" Rest Area`}},
		},
		{
			name:  "ragged rows",
			input: "id,name,city\n1,Pilot\n",
			want:  [][]string{{"id", "name", "city"}, {"1", "Pilot"}},
		},
		{
			name:  "byte order mark",
			input: "\xEF\xBB\xBFid,name\n1,TA\n",
			want:  [][]string{{"id", "name"}, {"1", "TA"}},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(tt.input), tt.opts)
			rows, err := collectRows(t, rowCh, errCh)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestStreamCSV_MalformedRow(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("id,name\n1,\"unterminated\n"), CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: read row 2")
}

func TestStreamCSV_Cancelled(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id,lat,lon\n")
	for range 10000 {
		sb.WriteString("1,39.1,-94.5\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	rowCh, errCh := StreamCSV(ctx, strings.NewReader(sb.String()), CSVOptions{})

	count := 0
	for range rowCh {
		count++
		if count == 5 {
			cancel()
			break
		}
	}
	for range rowCh {
	}

	var gotErr error
	for err := range errCh {
		gotErr = err
	}
	if gotErr != nil {
		assert.Contains(t, gotErr.Error(), "context cancelled")
	}
	assert.Less(t, count, 10001)
}
