package parser

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/metrics"
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

const (
	peerCountPrefix  = "Number of Peers:"
	peerHostPrefix   = "Hostname:"
	peerUUIDPrefix   = "Uuid:"
	peerStatePrefix  = "State:"
	peerOtherNames   = "Other names:"
	peerInCluster    = "Peer in Cluster"
	peerConnected    = "(Connected)"
	peerDisconnected = "(Disconnected)"
)

type peerParseState int

const (
	peerOutside peerParseState = iota
	peerInBlock
	peerInOtherNames
)

// peerBlock accumulates one Hostname: block
type peerBlock struct {
	line   int
	record types.PeerRecord
	state  string
}

// ParsePeers parses `gluster peer status` output. Blocks without a hostname
// or state are skipped with a warning.
func ParsePeers(raw string) ([]*types.PeerRecord, error) {
	logger := log.WithComponent("parser")

	if strings.TrimSpace(raw) == "" {
		return nil, &ParseError{Kind: "peer status", Reason: "empty output"}
	}

	var (
		peers      []*types.PeerRecord
		current    *peerBlock
		state      = peerOutside
		sawHeader  bool
		declared   = -1
		lineNumber int
	)

	flush := func() {
		if current == nil {
			return
		}
		b := current
		current = nil
		if b.record.Hostname == "" || b.state == "" {
			logger.Warn().Int("line", b.line).Msg("Skipping malformed peer block")
			metrics.MalformedBlocksTotal.WithLabelValues("peer").Inc()
			return
		}
		b.record.State = peerStateFromText(b.state)
		rec := b.record
		peers = append(peers, &rec)
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, peerCountPrefix):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, peerCountPrefix)))
			if err != nil {
				return nil, &ParseError{Kind: "peer status", Line: lineNumber, Reason: "invalid peer count"}
			}
			sawHeader = true
			declared = n

		case strings.HasPrefix(line, peerHostPrefix):
			flush()
			current = &peerBlock{line: lineNumber}
			current.record.Hostname = fieldValue(line, peerHostPrefix)
			state = peerInBlock

		case line == "":
			if state == peerInOtherNames {
				state = peerInBlock
			}

		case state == peerOutside:
			// Noise outside any block, e.g. a trailing "peer status: success"

		case strings.HasPrefix(line, peerUUIDPrefix):
			current.record.UUID = fieldValue(line, peerUUIDPrefix)
			state = peerInBlock

		case strings.HasPrefix(line, peerStatePrefix):
			current.state = fieldValue(line, peerStatePrefix)
			state = peerInBlock

		case strings.HasPrefix(line, peerOtherNames):
			state = peerInOtherNames

		case state == peerInOtherNames:
			current.record.OtherNames = append(current.record.OtherNames, line)

		default:
			logger.Debug().Int("line", lineNumber).Str("text", line).Msg("Ignoring unknown peer field")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Kind: "peer status", Reason: err.Error()}
	}
	flush()

	if !sawHeader && len(peers) == 0 {
		return nil, &ParseError{Kind: "peer status", Reason: "no peer count header and no peer blocks"}
	}
	if declared >= 0 && declared != len(peers) {
		logger.Warn().Int("declared", declared).Int("parsed", len(peers)).Msg("Peer count mismatch")
	}
	if peers == nil {
		peers = []*types.PeerRecord{}
	}
	return peers, nil
}

// peerStateFromText maps e.g. "Peer in Cluster (Connected)". Peers still
// joining ("Accepted peer request", "Probe Sent to Peer") are unknown even
// when connected.
func peerStateFromText(s string) types.PeerState {
	switch {
	case strings.Contains(s, peerInCluster) && strings.Contains(s, peerConnected):
		return types.PeerStateConnected
	case strings.Contains(s, peerDisconnected):
		return types.PeerStateDisconnected
	default:
		return types.PeerStateUnknown
	}
}

func fieldValue(line, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, prefix))
}
