// Package config turns the command line and environment into a Config.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/docopt/docopt-go"

	"SharedBoard/internal/discovery"
	"SharedBoard/internal/state"
)

const Version = "0.2.0"

const (
	DefaultPort          = 8888
	DefaultBrowseTimeout = 3 * time.Second
	MemoryStore          = "memory"
)

const Usage = `SharedBoard, a whiteboard shared over the local network.

Running with no arguments hosts the default board. Running with a
localboard:// link joins it.

Usage:
    sharedboard [host] [--port=<port>] [--board=<board>] [--store=<store>]
        [--no-mdns] [--verbose=<level>]
    sharedboard serve [--port=<port>] [--board=<board>] [--store=<store>]
        [--no-mdns] [--verbose=<level>]
    sharedboard join [<link>] [--browse-timeout=<timeout>] [--verbose=<level>]
    sharedboard redis [--redis=<addr>] [--board=<board>] [--verbose=<level>]
    sharedboard export <link> <output> [--verbose=<level>]
    sharedboard -h | --help
    sharedboard --version

Options:
    -h --help                    Show this screen.
    --version                    Show version.
    --port=<port>                Port to serve boards on.
    --board=<board>              Board to open.
    --store=<store>              "memory" or the path of a sqlite file.
                                 Defaults to $SHAREDBOARD_STORE, then memory.
    --no-mdns                    Do not advertise on the local network.
    --browse-timeout=<timeout>   How long join looks for hosts when no link
                                 is given.
    --redis=<addr>               Redis server. Defaults to $REDIS_ADDR.
    --verbose=<level>            glog verbosity.`

type Mode string

const (
	ModeHost   Mode = "host"
	ModeServe  Mode = "serve"
	ModeJoin   Mode = "join"
	ModeRedis  Mode = "redis"
	ModeExport Mode = "export"
)

type Config struct {
	Mode  Mode
	Port  int
	Board state.BoardID
	// "memory" or a sqlite path
	Store     string
	Advertise bool

	// join and export; empty Link.Addr in join mode means browse
	Link          discovery.Link
	BrowseTimeout time.Duration
	Output        string

	RedisAddr string
	Verbose   int
}

var ErrMissingRedis = errors.New("redis mode needs --redis or REDIS_ADDR")

// Parse reads argv (without the program name). getenv supplies the
// environment fallbacks. A lone share link means join.
func Parse(argv []string, getenv func(string) string) (*Config, error) {
	if len(argv) == 1 && discovery.IsLink(argv[0]) {
		argv = []string{"join", argv[0]}
	}
	// docopt reads os.Args when given nil
	if argv == nil {
		argv = []string{}
	}

	parser := &docopt.Parser{
		HelpHandler: docopt.NoHelpHandler,
	}
	opts, err := parser.ParseArgs(Usage, argv, Version)
	if err != nil {
		return nil, err
	}

	c := &Config{Mode: ModeHost}
	for _, mode := range []Mode{ModeServe, ModeJoin, ModeRedis, ModeExport} {
		if on, _ := opts.Bool(string(mode)); on {
			c.Mode = mode
		}
	}

	if port, ok := stringOpt(opts, "--port"); ok {
		c.Port, err = strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("bad --port %q: %w", port, err)
		}
	}
	if board, ok := stringOpt(opts, "--board"); ok {
		c.Board = state.BoardID(board)
	}
	c.Store, _ = stringOpt(opts, "--store")
	if c.Store == "" {
		c.Store = getenv("SHAREDBOARD_STORE")
	}
	noMDNS, _ := opts.Bool("--no-mdns")
	c.Advertise = !noMDNS

	if link, ok := stringOpt(opts, "<link>"); ok {
		c.Link, err = discovery.ParseLink(link)
		if err != nil {
			return nil, err
		}
		c.Board = c.Link.Board
	}
	if timeout, ok := stringOpt(opts, "--browse-timeout"); ok {
		c.BrowseTimeout, err = time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("bad --browse-timeout %q: %w", timeout, err)
		}
	}
	c.Output, _ = stringOpt(opts, "<output>")

	c.RedisAddr, _ = stringOpt(opts, "--redis")
	if c.RedisAddr == "" {
		c.RedisAddr = getenv("REDIS_ADDR")
	}
	if level, ok := stringOpt(opts, "--verbose"); ok {
		c.Verbose, err = strconv.Atoi(level)
		if err != nil {
			return nil, fmt.Errorf("bad --verbose %q: %w", level, err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate fills in defaults and rejects combinations that cannot run.
func (c *Config) Validate() error {
	if c.Mode == "" {
		c.Mode = ModeHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 0 || 65535 < c.Port {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Board == "" {
		c.Board = state.DefaultBoard
	}
	if c.Store == "" {
		c.Store = MemoryStore
	}
	if c.BrowseTimeout <= 0 {
		c.BrowseTimeout = DefaultBrowseTimeout
	}

	switch c.Mode {
	case ModeHost, ModeServe, ModeJoin:
	case ModeRedis:
		if c.RedisAddr == "" {
			return ErrMissingRedis
		}
	case ModeExport:
		if c.Link.Addr == "" || c.Output == "" {
			return errors.New("export needs a link and an output file")
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}

// Browse reports whether join has to look for a host first.
func (c *Config) Browse() bool {
	return c.Mode == ModeJoin && c.Link.Addr == ""
}

func stringOpt(opts docopt.Opts, key string) (string, bool) {
	s, err := opts.String(key)
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}
