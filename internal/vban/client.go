// Package vban reaches a Voicemeeter engine over the network. Parameter and
// level state arrives as RT packets on the VBAN service sub-protocol; writes
// go out as VBAN text scripts.
package vban

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hrko/vmcompact/internal/kind"
	"github.com/hrko/vmcompact/internal/remote"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "vban")

const (
	DefaultPort    = 6980
	DefaultBPS     = 256000
	DefaultTimeout = 5 * time.Second

	// seconds the engine keeps streaming after one register request
	registerSeconds = 15
	registerEvery   = 10 * time.Second
	maxPacketSize   = 2048
)

type Options struct {
	// Kind is optional. When empty the kind reported by the engine is used.
	Kind       string
	IP         string
	Port       int
	StreamName string
	BPS        int
	Channel    int
	// Timeout bounds the wait for the first RT packet and the silence
	// tolerated by Ping afterwards.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.BPS == 0 {
		o.BPS = DefaultBPS
	}
	if o.StreamName == "" {
		o.StreamName = "Command1"
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

type Client struct {
	id   uuid.UUID
	kind kind.Kind
	opts Options
	bps  byte
	conn *net.UDPConn

	counter atomic.Uint32

	mu       sync.Mutex
	cur      *rtBody
	lastSeen time.Time

	first     chan struct{}
	firstOnce sync.Once

	pdirty atomic.Bool
	ldirty atomic.Bool
	closed atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ remote.Target = (*Client)(nil)

// Dial logs in to the engine at opts.IP. It returns once the first RT packet
// has arrived, or fails with remote.ErrTimeout after opts.Timeout.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	bps, err := bpsIndex(opts.BPS)
	if err != nil {
		return nil, err
	}
	if opts.Channel < 0 || opts.Channel > 255 {
		return nil, fmt.Errorf("channel %v is out of range", opts.Channel)
	}
	raddr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(opts.IP, strconv.Itoa(opts.Port)))
	if err != nil {
		return nil, fmt.Errorf("error resolving %v: %w", opts.IP, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("error dialing %v: %w", raddr, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		id:     uuid.New(),
		opts:   opts,
		bps:    bps,
		conn:   conn,
		first:  make(chan struct{}),
		cancel: cancel,
	}
	c.wg.Add(2)
	go c.readLoop()
	go c.keepAlive(runCtx)

	log.Infof("Attempting vban connection to %v", raddr)
	if err := c.register(); err != nil {
		c.Close()
		return nil, err
	}

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()
	select {
	case <-c.first:
	case <-timer.C:
		c.Close()
		return nil, fmt.Errorf("no rt packet from %v within %v: %w", raddr, opts.Timeout, remote.ErrTimeout)
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}

	if c.kind, err = c.resolveKind(); err != nil {
		c.Close()
		return nil, err
	}
	log.Infof("Connected to %v engine at %v", c.kind, raddr)
	return c, nil
}

func (c *Client) resolveKind() (kind.Kind, error) {
	if c.opts.Kind != "" {
		return kind.Get(c.opts.Kind)
	}
	c.mu.Lock()
	t := c.cur.Type
	c.mu.Unlock()
	return kind.FromType(int(t))
}

func (c *Client) register() error {
	if _, err := c.conn.Write(registerPacket(c.counter.Add(1), registerSeconds)); err != nil {
		return fmt.Errorf("error sending rt register: %w", err)
	}
	return nil
}

func (c *Client) keepAlive(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(registerEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.register(); err != nil {
				log.Warnf("%v", err)
			}
		}
	}
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	buf := make([]byte, maxPacketSize)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			if c.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Debugf("error reading packet: %v", err)
			continue
		}
		c.handle(buf[:n])
	}
}

func (c *Client) handle(b []byte) {
	h, err := parseHeader(b)
	if err != nil {
		log.Debugf("%v", err)
		return
	}
	if h.subProtocol() != subProtoService || h.NbC != serviceRTPacket {
		return
	}
	body, err := parseRTBody(b[headerSize:])
	if err != nil {
		log.Debugf("%v", err)
		return
	}

	c.mu.Lock()
	params, levels := body.diff(c.cur)
	c.cur = body
	c.lastSeen = time.Now()
	c.mu.Unlock()

	if params {
		c.pdirty.Store(true)
	}
	if levels {
		c.ldirty.Store(true)
	}
	c.firstOnce.Do(func() { close(c.first) })
}

func (c *Client) ID() uuid.UUID { return c.id }
func (c *Client) Kind() kind.Kind { return c.kind }
func (c *Client) Transport() remote.Transport { return remote.Network }

func (c *Client) ParamsDirty() bool { return c.pdirty.Swap(false) }
func (c *Client) LevelsDirty() bool { return c.ldirty.Swap(false) }

func (c *Client) Levels(k remote.LevelKind) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch k {
	case remote.StripPreFader:
		n := min(c.kind.NumStripLevels(), numInLevels)
		levels := make([]float64, n)
		for i := range levels {
			levels[i] = dB(c.cur.InputLevels[i])
		}
		return levels
	case remote.BusOutput:
		n := min(c.kind.NumBusLevels(), numOutLevels)
		levels := make([]float64, n)
		for i := range levels {
			levels[i] = dB(c.cur.OutputLevels[i])
		}
		return levels
	}
	return nil
}

func (c *Client) Strip(i int) (remote.Strip, error) {
	if err := remote.CheckStrip(c.kind, i); err != nil {
		return nil, err
	}
	return &strip{c: c, i: i}, nil
}

func (c *Client) Bus(i int) (remote.Bus, error) {
	if err := remote.CheckBus(c.kind, i); err != nil {
		return nil, err
	}
	return &bus{c: c, i: i}, nil
}

func (c *Client) Ping() error {
	if c.closed.Load() {
		return remote.ErrClosed
	}
	c.mu.Lock()
	silent := time.Since(c.lastSeen)
	c.mu.Unlock()
	if silent > c.opts.Timeout {
		return fmt.Errorf("no rt packet for %v: %w", silent.Round(time.Millisecond), remote.ErrTimeout)
	}
	return nil
}

func (c *Client) SendText(script string) error {
	if c.closed.Load() {
		return remote.ErrClosed
	}
	p := textPacket(c.opts.StreamName, c.bps, byte(c.opts.Channel), c.counter.Add(1), script)
	if _, err := c.conn.Write(p); err != nil {
		return fmt.Errorf("error sending script: %w", err)
	}
	return nil
}

func (c *Client) Command(cmd remote.Command) error {
	script, err := cmd.Script()
	if err != nil {
		return err
	}
	return c.SendText(script)
}

// Close logs out. It is safe to call more than once.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cancel()
	err := c.conn.Close()
	c.wg.Wait()
	log.Infof("Disconnected from %v", c.opts.IP)
	return err
}

func (c *Client) read(fn func(b *rtBody)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.cur)
}

// write sends script and applies the same change to the cached packet so
// reads reflect it before the engine echoes it back.
func (c *Client) write(script string, apply func(b *rtBody)) {
	if err := c.SendText(script); err != nil {
		log.Errorf("%v", err)
		return
	}
	c.mu.Lock()
	apply(c.cur)
	c.mu.Unlock()
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
