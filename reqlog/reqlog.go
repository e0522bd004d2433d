// Package reqlog runs a local HTTP sink that records every inbound request.
// Point a client under inspection at the listen address and read back what
// it sent, live on the console and as a JSON dump on shutdown.
package reqlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/KhanhRomVN/termi-tool/applog"
)

// Entry is one recorded request.
type Entry struct {
	ID            string    `json:"id"`
	Time          time.Time `json:"time"`
	Method        string    `json:"method"`
	Host          string    `json:"host"`
	URI           string    `json:"uri"`
	RemoteAddr    string    `json:"remote_addr"`
	UserAgent     string    `json:"user_agent"`
	ContentLength int       `json:"content_length"`
}

// Logger is the request sink. Start and Stop bracket one capture session.
type Logger struct {
	mu      sync.Mutex
	entries []Entry

	srv *fasthttp.Server
	ln  net.Listener
	out io.Writer
}

// New creates a sink that echoes each recorded request to out.
func New(out io.Writer) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out}
}

// Start listens on addr and serves in the background. A ":0" port picks a
// free one; Addr returns the bound address.
func (l *Logger) Start(addr string) error {
	if l.srv != nil {
		return errors.New("already started")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %v", addr, err)
	}
	l.ln = ln
	l.srv = &fasthttp.Server{Handler: l.handle}

	go func(srv *fasthttp.Server) {
		if err := srv.Serve(ln); err != nil {
			applog.Error(applog.Fields{"err": err.Error()}, "request sink stopped")
		}
	}(l.srv)

	applog.Info(applog.Fields{"addr": l.Addr()}, "request sink listening")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (l *Logger) Addr() string {
	if l.ln == nil {
		return ""
	}
	return l.ln.Addr().String()
}

// Entries returns a snapshot of the recorded requests.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Stop shuts the sink down. A non-empty outFile receives the recorded
// entries as indented JSON; nothing is written when no requests came in.
func (l *Logger) Stop(outFile string) error {
	if l.srv == nil {
		return errors.New("not started")
	}
	if err := l.srv.Shutdown(); err != nil {
		return fmt.Errorf("shutdown failed: %v", err)
	}
	l.srv = nil
	l.ln = nil

	entries := l.Entries()
	if outFile == "" || len(entries) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode request log: %v", err)
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		return err
	}

	applog.Info(applog.Fields{
		"file":     outFile,
		"requests": len(entries),
	}, "request log written")
	return nil
}

func (l *Logger) handle(ctx *fasthttp.RequestCtx) {
	e := Entry{
		ID:            uuid.NewString(),
		Time:          time.Now(),
		Method:        string(ctx.Method()),
		Host:          string(ctx.Host()),
		URI:           string(ctx.RequestURI()),
		RemoteAddr:    ctx.RemoteAddr().String(),
		UserAgent:     string(ctx.UserAgent()),
		ContentLength: len(ctx.PostBody()),
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	n := len(l.entries)
	l.mu.Unlock()

	fmt.Fprintf(l.out, "[%d] %s %s %s from %s\n",
		n, e.Time.Format("15:04:05"), e.Method, e.URI, e.RemoteAddr)

	ctx.SetContentType("application/json")
	fmt.Fprintf(ctx, "{\"logged\":true,\"id\":%q}", e.ID)
}
