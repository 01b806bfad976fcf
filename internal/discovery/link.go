package discovery

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"SharedBoard/internal/state"
)

// Scheme prefixes share links, e.g. localboard://192.168.1.4:8888/default
const Scheme = "localboard://"

// Link points a joining client at a host and a board.
type Link struct {
	Addr  string
	Board state.BoardID
}

func (l Link) String() string {
	board := l.Board
	if board == "" {
		board = state.DefaultBoard
	}
	return Scheme + l.Addr + "/" + url.PathEscape(string(board))
}

// IsLink reports whether s looks like a share link.
func IsLink(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ParseLink accepts localboard://host:port[/board]. A missing board means
// the default board.
func ParseLink(s string) (Link, error) {
	if !IsLink(s) {
		return Link{}, fmt.Errorf("not a %s link: %q", Scheme, s)
	}
	rest := strings.TrimPrefix(s, Scheme)
	addr, board, _ := strings.Cut(rest, "/")
	board = strings.TrimSuffix(board, "/")

	if _, _, err := net.SplitHostPort(addr); err != nil {
		return Link{}, fmt.Errorf("bad address in link %q: %w", s, err)
	}
	if board == "" {
		return Link{Addr: addr, Board: state.DefaultBoard}, nil
	}
	unescaped, err := url.PathUnescape(board)
	if err != nil {
		return Link{}, fmt.Errorf("bad board in link %q: %w", s, err)
	}
	return Link{Addr: addr, Board: state.BoardID(unescaped)}, nil
}
