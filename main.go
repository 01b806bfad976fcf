package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"

	"SharedBoard/internal/boardsync"
	"SharedBoard/internal/config"
	"SharedBoard/internal/discovery"
	"SharedBoard/internal/export"
	"SharedBoard/internal/remotelog"
	"SharedBoard/internal/server"
	"SharedBoard/internal/state"
	"SharedBoard/internal/surface"
	"SharedBoard/internal/ui"
)

func main() {
	if err := mainInner(); err != nil {
		glog.Error(err)
		glog.Flush()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	glog.Flush()
}

func mainInner() error {
	cfg, err := config.Parse(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}
	initGlog(cfg.Verbose)
	glog.Infof("[main]site %s starting in %s mode", state.SiteID(), cfg.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case config.ModeHost:
		return runHost(ctx, cfg, true)
	case config.ModeServe:
		return runHost(ctx, cfg, false)
	case config.ModeJoin:
		return runJoin(ctx, cfg)
	case config.ModeRedis:
		return runRedis(ctx, cfg)
	case config.ModeExport:
		return runExport(ctx, cfg)
	}
	return fmt.Errorf("unknown mode %q", cfg.Mode)
}

func initGlog(verbose int) {
	flag.CommandLine.Parse([]string{})
	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(verbose))
}

func openHub(ctx context.Context, cfg *config.Config) (*remotelog.Hub, error) {
	if cfg.Store == config.MemoryStore {
		return remotelog.NewHub(remotelog.NewMemoryStore()), nil
	}
	store, err := remotelog.OpenSQLiteStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	return remotelog.NewHub(store), nil
}

// runHost serves the board to other clients and, with gui set, draws on it
// in-process.
func runHost(ctx context.Context, cfg *config.Config, gui bool) error {
	hub, err := openHub(ctx, cfg)
	if err != nil {
		return err
	}
	defer hub.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.New(hub).ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Port))
	}()

	if cfg.Advertise {
		mdnsServer, err := discovery.Advertise(cfg.Port, cfg.Board)
		if err != nil {
			glog.Warningf("[main]not advertising: %s", err)
		} else {
			defer mdnsServer.Shutdown()
		}
	}

	link := discovery.Link{
		Addr:  fmt.Sprintf("%s:%d", discovery.OutgoingIP(), cfg.Port),
		Board: cfg.Board,
	}
	glog.Infof("[main]share link %s", link)

	if !gui {
		fmt.Println(link)
		select {
		case err := <-serveErr:
			return err
		case <-ctx.Done():
			cancel()
			return <-serveErr
		}
	}

	go func() {
		if err := <-serveErr; err != nil {
			glog.Errorf("[main]server stopped: %s", err)
			ui.Quit()
		}
	}()
	return runBoard(ctx, cfg.Board, hub, "Local Whiteboard (host)", link.String())
}

func runJoin(ctx context.Context, cfg *config.Config) error {
	link := cfg.Link
	if cfg.Browse() {
		found, err := browse(cfg)
		if err != nil {
			return err
		}
		link = found
	}
	glog.Infof("[main]joining %s", link)

	client := server.NewClient(link.Addr)
	defer client.Close()
	return runBoard(ctx, link.Board, client, "Local Whiteboard", link.String())
}

func browse(cfg *config.Config) (discovery.Link, error) {
	links := make(chan discovery.Link, 1)
	err := discovery.Browse(cfg.BrowseTimeout, func(link discovery.Link) {
		select {
		case links <- link:
		default:
		}
	})
	if err != nil {
		return discovery.Link{}, err
	}
	select {
	case link := <-links:
		return link, nil
	default:
		return discovery.Link{}, fmt.Errorf("no board host found within %s", cfg.BrowseTimeout)
	}
}

func runRedis(ctx context.Context, cfg *config.Config) error {
	log, err := remotelog.DialRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer log.Close()
	return runBoard(ctx, cfg.Board, log, fmt.Sprintf("Local Whiteboard (redis %s)", cfg.RedisAddr), "")
}

func runExport(ctx context.Context, cfg *config.Config) error {
	client := server.NewClient(cfg.Link.Addr)
	defer client.Close()
	strokes, err := client.FetchStrokes(ctx, cfg.Link.Board)
	if err != nil {
		return err
	}
	return export.ExportPDF(cfg.Output, strokes)
}

// runBoard opens the window for board on log and blocks until it closes.
func runBoard(ctx context.Context, board state.BoardID, log remotelog.Log, title string, shareLink string) error {
	c := surface.New(ui.DefaultBrush)
	session := boardsync.NewSession(board, log, c)
	widget := ui.NewBoardWidget(c, session.Post)

	session.OnAppendFailure(func(err error) {
		widget.SetStatus("Not saved")
	})
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Close()

	go func() {
		<-ctx.Done()
		ui.Quit()
	}()

	ui.RunApp(ui.Window{
		Title:     title,
		ShareLink: shareLink,
		Clear: func() {
			session.RequestClear(func(err error) {
				if err != nil {
					widget.SetStatus("Clear failed")
				}
			})
		},
	}, widget)
	return nil
}
