package tunnel

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mossy-p/room-signaling/config"
)

func tunnelAPI(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPublicURL_PrefersHTTPS(t *testing.T) {
	srv := tunnelAPI(t, http.StatusOK, `{"tunnels":[
		{"name":"cmd","public_url":"http://abc.ngrok.io","proto":"http"},
		{"name":"cmd (https)","public_url":"https://abc.ngrok.io","proto":"https"}
	]}`)

	url, err := FetchPublicURL(context.Background(), srv.Client(), srv.URL)

	require.NoError(t, err)
	require.Equal(t, "https://abc.ngrok.io", url)
}

func TestFetchPublicURL_FallsBackToFirst(t *testing.T) {
	srv := tunnelAPI(t, http.StatusOK, `{"tunnels":[{"public_url":"tcp://0.tcp.ngrok.io:1234","proto":"tcp"}]}`)

	url, err := FetchPublicURL(context.Background(), srv.Client(), srv.URL)

	require.NoError(t, err)
	require.Equal(t, "tcp://0.tcp.ngrok.io:1234", url)
}

func TestFetchPublicURL_Errors(t *testing.T) {
	empty := tunnelAPI(t, http.StatusOK, `{"tunnels":[]}`)
	_, err := FetchPublicURL(context.Background(), empty.Client(), empty.URL)
	require.ErrorIs(t, err, ErrNoTunnel)

	broken := tunnelAPI(t, http.StatusBadGateway, ``)
	_, err = FetchPublicURL(context.Background(), broken.Client(), broken.URL)
	require.Error(t, err)

	garbage := tunnelAPI(t, http.StatusOK, `<html>`)
	_, err = FetchPublicURL(context.Background(), garbage.Client(), garbage.URL)
	require.Error(t, err)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBootstrapper_MissingBinaryDegrades(t *testing.T) {
	b := NewBootstrapper(config.TunnelConfig{
		Binary:         "definitely-not-a-real-ngrok-binary",
		APIURL:         "http://127.0.0.1:1/api/tunnels",
		StartupTimeout: 100 * time.Millisecond,
	}, "5001", discardLogger())

	require.Empty(t, b.Start(context.Background()))
	require.Empty(t, b.PublicURL())
	b.Stop()
}

func TestBootstrapper_DiscoversURL(t *testing.T) {
	bin, err := exec.LookPath("true")
	if err != nil {
		t.Skip("no true binary available")
	}
	srv := tunnelAPI(t, http.StatusOK, `{"tunnels":[{"public_url":"https://room.ngrok.app","proto":"https"}]}`)

	b := NewBootstrapper(config.TunnelConfig{
		Binary:         bin,
		APIURL:         srv.URL,
		StartupTimeout: time.Second,
	}, "5001", discardLogger())

	require.Equal(t, "https://room.ngrok.app", b.Start(context.Background()))
	require.Equal(t, "https://room.ngrok.app", b.PublicURL())
	b.Stop()
}

func TestBootstrapper_TimesOutWithoutTunnel(t *testing.T) {
	bin, err := exec.LookPath("true")
	if err != nil {
		t.Skip("no true binary available")
	}
	srv := tunnelAPI(t, http.StatusOK, `{"tunnels":[]}`)

	b := NewBootstrapper(config.TunnelConfig{
		Binary:         bin,
		APIURL:         srv.URL,
		StartupTimeout: 200 * time.Millisecond,
	}, "5001", discardLogger())

	require.Empty(t, b.Start(context.Background()))
	b.Stop()
}
