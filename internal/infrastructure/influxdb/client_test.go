package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/switchbot-mqtt/internal/infrastructure/config"
	"github.com/nerrad567/switchbot-mqtt/internal/infrastructure/influxdb"
)

// fakeInflux answers pings and records line protocol bodies.
type fakeInflux struct {
	mu     sync.Mutex
	writes []string
	status int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/write") {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		status := f.status
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeInflux) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "\n")
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "home",
		Bucket:        "switchbot",
		BatchSize:     1,
		FlushInterval: 1,
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	client, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
	if client != nil {
		t.Error("Connect() returned a client while disabled")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := influxdb.Connect(context.Background(), testConfig("http://127.0.0.1:59999"))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteDeviceInfo(t *testing.T) {
	server := &fakeInflux{}
	ts := httptest.NewServer(server)
	defer ts.Close()

	client, err := influxdb.Connect(context.Background(), testConfig(ts.URL))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.HealthCheck(context.Background()))

	pos := 40
	client.WriteDeviceInfo("aa:bb:cc:dd:ee:ff", "curtain", 87, &pos)
	client.WriteDeviceInfo("11:22:33:44:55:66", "switch", 92, nil)
	client.Flush()

	assert.Eventually(t, func() bool {
		body := server.body()
		return strings.Contains(body, "class=curtain") && strings.Contains(body, "class=switch")
	}, 5*time.Second, 20*time.Millisecond)

	body := server.body()
	assert.Contains(t, body, "switchbot_device_info,address=aa:bb:cc:dd:ee:ff,class=curtain battery=87i,position=40i")
	assert.Contains(t, body, "switchbot_device_info,address=11:22:33:44:55:66,class=switch battery=92i ")
}

func TestWriteErrorsReachCallback(t *testing.T) {
	server := &fakeInflux{status: http.StatusBadRequest}
	ts := httptest.NewServer(server)
	defer ts.Close()

	client, err := influxdb.Connect(context.Background(), testConfig(ts.URL))
	require.NoError(t, err)
	defer client.Close()

	errCh := make(chan error, 4)
	client.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	client.WriteDeviceInfo("aa:bb:cc:dd:ee:ff", "switch", 50, nil)
	client.Flush()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, influxdb.ErrWriteFailed)
	case <-time.After(5 * time.Second):
		t.Fatal("write error was not delivered")
	}
}

func TestClosedClient(t *testing.T) {
	ts := httptest.NewServer(&fakeInflux{})
	defer ts.Close()

	client, err := influxdb.Connect(context.Background(), testConfig(ts.URL))
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.False(t, client.IsConnected())
	assert.ErrorIs(t, client.HealthCheck(context.Background()), influxdb.ErrNotConnected)

	// No-ops after close.
	client.WriteDeviceInfo("aa:bb:cc:dd:ee:ff", "switch", 50, nil)
	client.Flush()
	assert.NoError(t, client.Close())
}

func TestNilClient(t *testing.T) {
	var client *influxdb.Client
	assert.False(t, client.IsConnected())
	assert.NoError(t, client.Close())
	client.WriteDeviceInfo("aa:bb:cc:dd:ee:ff", "switch", 50, nil)
}
