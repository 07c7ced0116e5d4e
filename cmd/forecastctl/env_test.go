package main

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1,2", " 3 ", ""})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseIDs([]string{"1,x"})
	assert.Error(t, err)
}

func TestParseAsOf(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("as-of", "", "")
	require.NoError(t, set.Parse([]string{"--as-of", "2024-12-31"}))

	got, err := parseAsOf(cli.NewContext(cli.NewApp(), set, nil))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), got)

	bad := flag.NewFlagSet("test", flag.ContinueOnError)
	bad.String("as-of", "", "")
	require.NoError(t, bad.Parse([]string{"--as-of", "31/12/2024"}))
	_, err = parseAsOf(cli.NewContext(cli.NewApp(), bad, nil))
	assert.Error(t, err)
}
