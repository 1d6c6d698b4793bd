package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportDistances(t *testing.T) {
	distances := map[string]float64{"tv": 0.25, "hellinger": 0.125, "rms": 0.5}

	var all bytes.Buffer
	reportDistances(&all, distances, "")
	out := all.String()
	require.Contains(t, out, "METRIC")
	require.Contains(t, out, "0.125")
	require.Less(t, bytes.Index(all.Bytes(), []byte("hellinger")), bytes.Index(all.Bytes(), []byte("rms")))
	require.Less(t, bytes.Index(all.Bytes(), []byte("rms")), bytes.Index(all.Bytes(), []byte("tv")))

	var one bytes.Buffer
	reportDistances(&one, distances, "tv")
	require.Contains(t, one.String(), "0.25")
	require.NotContains(t, one.String(), "hellinger")
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, log)

	_, err = newLogger("loud")
	require.Error(t, err)
}
