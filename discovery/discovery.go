// Package discovery lets proposer servers on one host find each other. Each
// process announces itself on the first free port of a range and probes the
// rest of the range for other announcements.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Entry is what a process announces: the id and address of its proposer.
type Entry struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	TLS     bool   `json:"tls,omitempty"`
}

// Discover announces one entry and reports the entries it finds. Every
// remote entry is delivered at most once on Entries, which is closed after
// the last search.
type Discover struct {
	Entries chan Entry

	self      Entry
	host      string
	port      uint16
	startPort uint16
	endPort   uint16
	attempts  uint
	interval  time.Duration
	log       *slog.Logger
	server    *http.Server
	client    *http.Client
	cancel    context.CancelFunc
	done      *sync.WaitGroup
}

// New announces self on port and searches that single port twice.
func New(self Entry, port uint16) (*Discover, error) {
	return NewWithPortRange(self, port, port, 2)
}

// NewWithPortRange announces self on the first free port in the range and
// searches the range attempts times.
func NewWithPortRange(self Entry, startPort, endPort uint16, attempts uint) (*Discover, error) {
	return NewWithOptions(self,
		WithPortRange(startPort, endPort),
		WithAttempts(attempts),
	)
}

// NewWithOptions starts announcing and searching.
func NewWithOptions(self Entry, opts ...Option) (*Discover, error) {
	d := Discover{
		self:      self,
		host:      "localhost",
		startPort: 9000,
		endPort:   9010,
		attempts:  1,
		interval:  time.Second,
		log:       slog.New(slog.DiscardHandler),
		client:    &http.Client{Timeout: time.Second},
		done:      &sync.WaitGroup{},
	}
	for _, opt := range opts {
		d = opt(d)
	}
	if d.startPort > d.endPort {
		return nil, fmt.Errorf("empty port range %d-%d", d.startPort, d.endPort)
	}

	var l net.Listener
	var err error
	for port := int(d.startPort); port <= int(d.endPort); port++ {
		l, err = net.Listen("tcp", net.JoinHostPort(d.host, fmt.Sprint(port)))
		if err == nil {
			d.port = uint16(port)
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("no free port in %d-%d: %w", d.startPort, d.endPort, err)
	}

	disc := &d
	disc.Entries = make(chan Entry)
	disc.server = &http.Server{
		Handler:           http.HandlerFunc(disc.announce),
		ReadHeaderTimeout: time.Second,
	}
	ctx, cancel := context.WithCancel(context.Background())
	disc.cancel = cancel

	disc.done.Add(2)
	go func() {
		defer disc.done.Done()
		if err := disc.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			disc.log.Warn("discovery server stopped", "error", err)
		}
	}()
	go func() {
		defer disc.done.Done()
		defer close(disc.Entries)
		disc.run(ctx)
	}()
	disc.log.Debug("announcing", "id", self.ID, "port", disc.port)
	return disc, nil
}

// Port is the port this process announces on.
func (d *Discover) Port() uint16 { return d.port }

func (d *Discover) announce(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d.self)
}

func (d *Discover) run(ctx context.Context) {
	found := map[string]bool{d.self.ID: true}
	for i := range d.attempts {
		if i > 0 {
			select {
			case <-time.After(d.interval):
			case <-ctx.Done():
				return
			}
		}
		if !d.search(ctx, found) {
			return
		}
	}
}

// search probes every other port once. It returns false when ctx ended.
func (d *Discover) search(ctx context.Context, found map[string]bool) bool {
	for port := int(d.startPort); port <= int(d.endPort); port++ {
		if uint16(port) == d.port {
			continue
		}
		e, err := d.probe(ctx, port)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			continue
		}
		if found[e.ID] {
			continue
		}
		found[e.ID] = true
		d.log.Debug("discovered", "id", e.ID, "address", e.Address)
		select {
		case d.Entries <- e:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (d *Discover) probe(ctx context.Context, port int) (Entry, error) {
	url := "http://" + net.JoinHostPort(d.host, fmt.Sprint(port))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Entry{}, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return Entry{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	var e Entry
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return Entry{}, err
	}
	if e.ID == "" || e.Address == "" {
		return Entry{}, errors.New("incomplete announcement")
	}
	return e, nil
}

// Collect drains Entries until the searches end or ctx is done.
func (d *Discover) Collect(ctx context.Context) []Entry {
	var out []Entry
	for {
		select {
		case e, ok := <-d.Entries:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-ctx.Done():
			return out
		}
	}
}

// Close stops announcing and searching.
func (d *Discover) Close() error {
	d.cancel()
	err := d.server.Shutdown(context.Background())
	d.done.Wait()
	return err
}
