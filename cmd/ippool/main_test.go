package main

import (
	"context"
	"testing"
	"time"

	kingpin "github.com/alecthomas/kingpin/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spluca/ippool/config"
)

func parseFlags(t *testing.T, args ...string) *cliFlags {
	t.Helper()
	app := kingpin.New("ippool", "test")
	f := addFlags(app)
	_, err := app.Parse(args)
	require.NoError(t, err)
	return f
}

func TestFlagsOverrideOnlyWhatIsSet(t *testing.T) {
	f := parseFlags(t, "-p", "9000", "--network", "10.1.2", "-g", "10.1.2.1", "--range-end", "99", "-d")

	conf := config.Default
	conf.BasePath = "/custom"
	f.apply(&conf)

	assert.Equal(t, 9000, conf.ListenPort)
	assert.Equal(t, "10.1.2", conf.Network)
	assert.Equal(t, "10.1.2.1", conf.Gateway)
	assert.EqualValues(t, 2, conf.RangeStart)
	assert.EqualValues(t, 99, conf.RangeEnd)
	assert.True(t, conf.Debug)
	assert.Equal(t, "/custom", conf.BasePath)
	assert.Equal(t, "info", conf.LogLevel)
}

func TestFlagsNoneGiven(t *testing.T) {
	f := parseFlags(t)

	conf := config.Default
	f.apply(&conf)
	assert.Equal(t, config.Default, conf)
}

func TestRunStopsOnCancel(t *testing.T) {
	conf := config.Default
	conf.ListenAddress = "127.0.0.1"
	conf.ListenPort = 0
	conf.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, &conf) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunRejectsBadPool(t *testing.T) {
	conf := config.Default
	conf.Gateway = "172.16.0.10"

	assert.Error(t, run(context.Background(), &conf))
}
