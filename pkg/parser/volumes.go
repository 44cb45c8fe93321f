package parser

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/metrics"
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

const (
	volNamePrefix      = "Volume Name:"
	volTypePrefix      = "Type:"
	volIDPrefix        = "Volume ID:"
	volStatusPrefix    = "Status:"
	volBrickCount      = "Number of Bricks:"
	volTransportPrefix = "Transport-type:"
	volBricksHeader    = "Bricks:"
	volOptionsHeader   = "Options Reconfigured:"
	volNonePresent     = "No volumes present"
)

type volumeParseState int

const (
	volOutside volumeParseState = iota
	volInBlock
	volInBricks
	volInOptions
)

type volumeBlock struct {
	line       int
	record     types.VolumeRecord
	status     string
	brickCount string
	malformed  string
}

// ParseVolumes parses `gluster volume info` output, for all volumes or a
// single one. Volumes with zero bricks are returned. Blocks with a missing or
// unknown status are skipped with a warning.
func ParseVolumes(raw string) ([]*types.VolumeRecord, error) {
	logger := log.WithComponent("parser")

	if strings.TrimSpace(raw) == "" {
		return nil, &ParseError{Kind: "volume info", Reason: "empty output"}
	}

	var (
		volumes    []*types.VolumeRecord
		current    *volumeBlock
		state      = volOutside
		sawNone    bool
		sawBlock   bool
		lineNumber int
	)

	flush := func() {
		if current == nil {
			return
		}
		b := current
		current = nil
		rec, err := b.finish()
		if err != "" {
			logger.Warn().Int("line", b.line).Str("volume", b.record.Name).Str("reason", err).Msg("Skipping malformed volume block")
			metrics.MalformedBlocksTotal.WithLabelValues("volume").Inc()
			return
		}
		volumes = append(volumes, rec)
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, volNamePrefix):
			flush()
			sawBlock = true
			current = &volumeBlock{line: lineNumber}
			current.record.Name = fieldValue(line, volNamePrefix)
			if current.record.Name == "" {
				current.malformed = "empty volume name"
			}
			state = volInBlock

		case line == volNonePresent:
			sawNone = true

		case line == "":
			// Blank lines separate volumes; options end at the next block

		case state == volOutside:
			logger.Debug().Int("line", lineNumber).Str("text", line).Msg("Ignoring text outside volume block")

		case state == volInBricks && isBrickLine(line):
			current.addBrick(line, logger)

		case line == volBricksHeader:
			state = volInBricks

		case line == volOptionsHeader:
			state = volInOptions

		case state == volInOptions:
			if k, v, ok := strings.Cut(line, ":"); ok {
				if current.record.Options == nil {
					current.record.Options = make(map[string]string)
				}
				current.record.Options[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}

		case strings.HasPrefix(line, volTypePrefix):
			current.record.Type = fieldValue(line, volTypePrefix)
			state = volInBlock

		case strings.HasPrefix(line, volIDPrefix):
			current.record.ID = fieldValue(line, volIDPrefix)
			state = volInBlock

		case strings.HasPrefix(line, volStatusPrefix):
			current.status = fieldValue(line, volStatusPrefix)
			state = volInBlock

		case strings.HasPrefix(line, volBrickCount):
			current.brickCount = fieldValue(line, volBrickCount)
			state = volInBlock

		case strings.HasPrefix(line, volTransportPrefix):
			current.record.Transport = fieldValue(line, volTransportPrefix)
			state = volInBlock

		default:
			// Snapshot Count, Volume Options, Brick status lines of newer releases
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Kind: "volume info", Reason: err.Error()}
	}
	flush()

	if !sawBlock && !sawNone {
		return nil, &ParseError{Kind: "volume info", Reason: "no volume blocks and no empty marker"}
	}
	if volumes == nil {
		volumes = []*types.VolumeRecord{}
	}
	return volumes, nil
}

func isBrickLine(line string) bool {
	if !strings.HasPrefix(line, "Brick") {
		return false
	}
	num, _, ok := strings.Cut(strings.TrimPrefix(line, "Brick"), ":")
	if !ok {
		return false
	}
	_, err := strconv.Atoi(num)
	return err == nil
}

// addBrick parses "BrickN: host:/path [(arbiter)]"
func (b *volumeBlock) addBrick(line string, logger zerolog.Logger) {
	_, value, _ := strings.Cut(line, ":")
	value = strings.TrimSpace(value)
	if i := strings.Index(value, " ("); i > 0 {
		value = value[:i]
	}
	sep := strings.Index(value, ":/")
	if sep <= 0 {
		logger.Warn().Str("volume", b.record.Name).Str("brick", value).Msg("Skipping unparseable brick line")
		return
	}
	b.record.Bricks = append(b.record.Bricks, types.Brick{Host: value[:sep], Path: value[sep+1:]})
}

func (b *volumeBlock) finish() (*types.VolumeRecord, string) {
	if b.malformed != "" {
		return nil, b.malformed
	}
	switch strings.ToLower(b.status) {
	case "started":
		b.record.Status = types.VolumeStatusStarted
	case "stopped":
		b.record.Status = types.VolumeStatusStopped
	case "created":
		b.record.Status = types.VolumeStatusCreated
	case "":
		return nil, "missing status"
	default:
		return nil, "unknown status " + strconv.Quote(b.status)
	}
	b.record.Replica, b.record.Stripe = layoutCounts(b.record.Type, b.brickCount)
	rec := b.record
	return &rec, ""
}

// layoutCounts derives replica and stripe counts from the volume type and the
// "Number of Bricks" line, which reads "N", "D x R = N", "D x S x R = N" or,
// for arbiter and disperse sets, "D x (R + A) = N".
func layoutCounts(volType, brickCount string) (replica, stripe int) {
	lhs, _, found := strings.Cut(brickCount, "=")
	if !found {
		return 0, 0
	}
	var factors []int
	for _, f := range strings.Split(lhs, "x") {
		n, ok := layoutFactor(f)
		if !ok {
			return 0, 0
		}
		factors = append(factors, n)
	}

	replicated := strings.Contains(volType, "Replicate")
	striped := strings.Contains(volType, "Stripe")
	switch {
	case replicated && striped && len(factors) == 3:
		return factors[2], factors[1]
	case replicated && len(factors) >= 2:
		return factors[len(factors)-1], 0
	case striped && len(factors) >= 2:
		return 0, factors[len(factors)-1]
	default:
		return 0, 0
	}
}

// layoutFactor parses "2" or a parenthesised sum such as "(2 + 1)". An
// arbiter set of two data bricks and one arbiter is a replica 3 set.
func layoutFactor(f string) (int, bool) {
	f = strings.TrimSpace(f)
	if strings.HasPrefix(f, "(") && strings.HasSuffix(f, ")") {
		sum := 0
		for _, term := range strings.Split(f[1:len(f)-1], "+") {
			n, err := strconv.Atoi(strings.TrimSpace(term))
			if err != nil {
				return 0, false
			}
			sum += n
		}
		return sum, true
	}
	n, err := strconv.Atoi(f)
	return n, err == nil
}
