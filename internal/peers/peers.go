// Package peers loads the static peer directory used for block broadcast
package peers

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Peer is a node that accepts block submissions
type Peer struct {
	Host string
	Port int
}

// Address returns host:port
func (p Peer) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Directory maps a peer identifier to its endpoint. It is read-only after load.
type Directory struct {
	peers map[string]Peer
}

// Invalid describes a skipped peer-file line
type Invalid struct {
	Line   int
	Text   string
	Reason string
}

// strip removes the decoration the peer file tolerates around each entry
var strip = strings.NewReplacer("(", "", ")", "", ":", "", "'", "", "\"", "", "\n", "", "\r", "", "\t", "", " ", "")

// Parse reads one "identifier,port" entry per line. Malformed lines are returned, not fatal.
func Parse(r io.Reader) (*Directory, []Invalid, error) {
	d := &Directory{peers: make(map[string]Peer)}
	var invalid []Invalid

	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		raw := sc.Text()
		line := strip.Replace(raw)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 2 || fields[0] == "" {
			invalid = append(invalid, Invalid{Line: n, Text: raw, Reason: "expected identifier,port"})
			continue
		}
		port, err := strconv.Atoi(fields[1])
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, Invalid{Line: n, Text: raw, Reason: "invalid port"})
			continue
		}
		d.peers[fields[0]] = Peer{Host: fields[0], Port: port}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading peer list: %w", err)
	}
	return d, invalid, nil
}

// LoadFile parses the peer list at path
func LoadFile(path string) (*Directory, []Invalid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening peer list: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// FromPeers builds a directory from explicit entries
func FromPeers(list ...Peer) *Directory {
	d := &Directory{peers: make(map[string]Peer, len(list))}
	for _, p := range list {
		d.peers[p.Host] = p
	}
	return d
}

// Len returns the number of peers
func (d *Directory) Len() int {
	return len(d.peers)
}

// Lookup returns the peer registered under id
func (d *Directory) Lookup(id string) (Peer, bool) {
	p, ok := d.peers[id]
	return p, ok
}

// Peers returns all peers ordered by identifier
func (d *Directory) Peers() []Peer {
	ids := make([]string, 0, len(d.peers))
	for id := range d.peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Peer, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.peers[id])
	}
	return out
}
