package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/nao1215/imagefinder/internal/config"
)

// newSOCKSServer starts a minimal SOCKS5 proxy that tunnels CONNECT
// requests to IP addresses and refuses domain names.
func newSOCKSServer(t *testing.T) string {
	t.Helper()
	return newListener(t, serveSOCKS)
}

func newListener(t *testing.T, handle func(net.Conn)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
	return ln.Addr().String()
}

func serveSOCKS(conn net.Conn) {
	defer conn.Close()

	head := make([]byte, 2)
	if _, err := io.ReadFull(conn, head); err != nil {
		return
	}
	if _, err := io.ReadFull(conn, make([]byte, head[1])); err != nil {
		return
	}
	if _, err := conn.Write([]byte{5, 0}); err != nil {
		return
	}

	req := make([]byte, 4)
	if _, err := io.ReadFull(conn, req); err != nil {
		return
	}
	var ip net.IP
	switch req[3] {
	case 1, 4:
		size := 4
		if req[3] == 4 {
			size = 16
		}
		ip = make(net.IP, size)
		if _, err := io.ReadFull(conn, ip); err != nil {
			return
		}
	case 3:
		n := make([]byte, 1)
		if _, err := io.ReadFull(conn, n); err != nil {
			return
		}
		if _, err := io.ReadFull(conn, make([]byte, n[0])); err != nil {
			return
		}
	default:
		return
	}
	port := make([]byte, 2)
	if _, err := io.ReadFull(conn, port); err != nil {
		return
	}

	if ip == nil {
		conn.Write([]byte{5, 4, 0, 1, 0, 0, 0, 0, 0, 0}) //nolint:errcheck
		return
	}
	target, err := net.DialTimeout("tcp", net.JoinHostPort(ip.String(), strconv.Itoa(int(port[0])<<8|int(port[1]))), time.Second)
	if err != nil {
		conn.Write([]byte{5, 4, 0, 1, 0, 0, 0, 0, 0, 0}) //nolint:errcheck
		return
	}
	defer target.Close()
	if _, err := conn.Write([]byte{5, 0, 0, 1, 127, 0, 0, 1, 0, 0}); err != nil {
		return
	}

	done := make(chan struct{}, 2)
	go func() { io.Copy(target, conn); done <- struct{}{} }() //nolint:errcheck
	go func() { io.Copy(conn, target); done <- struct{}{} }() //nolint:errcheck
	<-done
}

func closedAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{"127.0.0.1:9050", true},
		{"localhost:9050", true},
		{"[::1]:9050", true},
		{"", false},
		{"127.0.0.1", false},
		{":9050", false},
		{"127.0.0.1:", false},
		{"127.0.0.1:0", false},
		{"127.0.0.1:65536", false},
		{"127.0.0.1:port", false},
		{"a:b:c", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()
			if got := ValidAddress(tt.address); got != tt.want {
				t.Errorf("ValidAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("valid address", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient("127.0.0.1:9050", time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Address() != "127.0.0.1:9050" {
			t.Errorf("Address() = %q", c.Address())
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		t.Parallel()

		if _, err := NewClient("127.0.0.1", time.Second); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("expected ErrInvalidAddress, got %v", err)
		}
	})
}

func TestCheckConnection(t *testing.T) {
	t.Parallel()

	t.Run("socks5 proxy", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient(newSOCKSServer(t), time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if got := c.CheckConnection(context.Background()); got != StatusOK {
			t.Errorf("CheckConnection() = %v, want OK", got)
		}
	})

	t.Run("http server is wrong type", func(t *testing.T) {
		t.Parallel()

		addr := newListener(t, func(conn net.Conn) {
			defer conn.Close()
			conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n")) //nolint:errcheck
		})
		c, err := NewClient(addr, time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if got := c.CheckConnection(context.Background()); got != StatusWrongType {
			t.Errorf("CheckConnection() = %v, want wrong type", got)
		}
	})

	t.Run("refused", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient(closedAddress(t), time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if got := c.CheckConnection(context.Background()); got != StatusCannotConnect {
			t.Errorf("CheckConnection() = %v, want cannot connect", got)
		}
	})

	t.Run("silent server times out", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		addr := newListener(t, func(conn net.Conn) {
			defer conn.Close()
			<-release
		})
		c, err := NewClient(addr, time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if got := c.CheckConnection(context.Background()); got != StatusTimeout {
			t.Errorf("CheckConnection() = %v, want timeout", got)
		}
	})
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		str    string
		err    error
	}{
		{StatusOK, "OK", nil},
		{StatusWrongType, "wrong type (not SOCKS5)", ErrNotSOCKS5},
		{StatusCannotConnect, "cannot connect", ErrCannotConnect},
		{StatusTimeout, "timeout", ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			t.Parallel()
			if got := tt.status.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
			if got := tt.status.Err(); !errors.Is(got, tt.err) {
				t.Errorf("Err() = %v, want %v", got, tt.err)
			}
		})
	}

	if Status(99).String() != "unknown" || Status(99).Err() == nil {
		t.Error("unknown status should have a name and an error")
	}
}

func TestHTTPClientThroughProxy(t *testing.T) {
	t.Parallel()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "proxied") //nolint:errcheck
	}))
	t.Cleanup(target.Close)

	c, err := NewClient(newSOCKSServer(t), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	client := c.HTTPClient()
	t.Cleanup(client.CloseIdleConnections)

	resp, err := client.Get(target.URL)
	if err != nil {
		t.Fatalf("GET through proxy: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "proxied" {
		t.Errorf("body = %q, want %q", body, "proxied")
	}
}

func TestDialContextCanceled(t *testing.T) {
	t.Parallel()

	c, err := NewClient(newSOCKSServer(t), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.DialContext(ctx, "tcp", "127.0.0.1:1"); err == nil {
		t.Error("expected error from canceled context")
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("direct by default", func(t *testing.T) {
		t.Parallel()

		e, err := Open(context.Background(), config.NewServeConfig(), discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Mode() != ModeDirect {
			t.Errorf("Mode() = %v, want direct", e.Mode())
		}
		if e.ProxyAddress() != "" {
			t.Errorf("ProxyAddress() = %q, want empty", e.ProxyAddress())
		}
		if got := e.HTTPClient().Timeout; got != config.DefaultFetchTimeout {
			t.Errorf("client timeout = %v, want %v", got, config.DefaultFetchTimeout)
		}
		if err := e.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})

	t.Run("external socks5 proxy", func(t *testing.T) {
		t.Parallel()

		addr := newSOCKSServer(t)
		cfg := config.NewServeConfig()
		cfg.TorProxyAddress = addr

		e, err := Open(context.Background(), cfg, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Mode() != ModeSOCKS5 {
			t.Errorf("Mode() = %v, want socks5", e.Mode())
		}
		if e.ProxyAddress() != addr {
			t.Errorf("ProxyAddress() = %q, want %q", e.ProxyAddress(), addr)
		}
	})

	t.Run("invalid proxy address", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewServeConfig()
		cfg.TorProxyAddress = "nowhere"
		if _, err := Open(context.Background(), cfg, discardLogger()); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("expected ErrInvalidAddress, got %v", err)
		}
	})

	t.Run("unreachable proxy", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewServeConfig()
		cfg.TorProxyAddress = closedAddress(t)
		if _, err := Open(context.Background(), cfg, discardLogger()); !errors.Is(err, ErrCannotConnect) {
			t.Errorf("expected ErrCannotConnect, got %v", err)
		}
	})
}

func TestModeString(t *testing.T) {
	t.Parallel()

	for mode, want := range map[Mode]string{ModeDirect: "direct", ModeSOCKS5: "socks5", ModeTor: "tor", Mode(9): "unknown"} {
		if got := mode.String(); got != want {
			t.Errorf("Mode(%d).String() = %q, want %q", mode, got, want)
		}
	}
}

func TestEmbedded(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		e := NewEmbedded()
		if e.startupTimeout != DefaultStartupTimeout {
			t.Errorf("startupTimeout = %v, want %v", e.startupTimeout, DefaultStartupTimeout)
		}
		if e.IsRunning() || e.SocksAddr() != "" || e.ControlAddr() != "" {
			t.Error("unstarted daemon should not report addresses")
		}
	})

	t.Run("startup timeout option", func(t *testing.T) {
		t.Parallel()

		if got := NewEmbedded(WithStartupTimeout(30 * time.Second)).startupTimeout; got != 30*time.Second {
			t.Errorf("startupTimeout = %v, want 30s", got)
		}
		if got := NewEmbedded(WithStartupTimeout(0)).startupTimeout; got != DefaultStartupTimeout {
			t.Errorf("zero timeout should keep default, got %v", got)
		}
	})

	t.Run("stop and client before start", func(t *testing.T) {
		t.Parallel()

		e := NewEmbedded()
		if err := e.Stop(); err != nil {
			t.Errorf("Stop() = %v", err)
		}
		if _, err := e.NewClient(time.Second); !errors.Is(err, ErrNotRunning) {
			t.Errorf("expected ErrNotRunning, got %v", err)
		}
	})
}
