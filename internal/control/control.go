// Package control turns panel and API actions into queued printer commands.
package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/256dpi/gcode"
	"go.uber.org/zap"

	"github.com/five82/roost/internal/config"
	"github.com/five82/roost/internal/link"
	"github.com/five82/roost/internal/moonraker"
	"github.com/five82/roost/internal/state"
)

// Errors returned by Controller actions.
var (
	ErrBusy          = errors.New("command queue is full")
	ErrOffline       = errors.New("printer is not connected")
	ErrNotReady      = errors.New("printer is not ready")
	ErrUnknownPreset = errors.New("unknown preset")
	ErrInvalidGcode  = errors.New("invalid gcode")
)

// Commands sent by the panel buttons.
const (
	CmdHome            = "G28"
	CmdQuadGantryLevel = "QUAD_GANTRY_LEVEL"
)

// SnapshotSource provides the latest printer view.
type SnapshotSource interface {
	Snapshot() state.Snapshot
}

// Enqueuer accepts request paths atomically.
type Enqueuer interface {
	EnqueueAll(paths ...string) bool
}

// Controller gates actions on connectivity and readiness before queueing them.
type Controller struct {
	snapshots SnapshotSource
	queue     Enqueuer
	presets   []config.Preset
	logger    *zap.Logger
}

// New builds a Controller.
func New(snapshots SnapshotSource, q Enqueuer, presets []config.Preset, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		snapshots: snapshots,
		queue:     q,
		presets:   append([]config.Preset(nil), presets...),
		logger:    logger.Named("control"),
	}
}

// Presets returns the configured material presets.
func (c *Controller) Presets() []config.Preset {
	return append([]config.Preset(nil), c.presets...)
}

// Home queues G28.
func (c *Controller) Home() error {
	return c.submit("home", CmdHome)
}

// QuadGantryLevel queues QUAD_GANTRY_LEVEL.
func (c *Controller) QuadGantryLevel() error {
	return c.submit("qgl", CmdQuadGantryLevel)
}

// ApplyPreset queues the nozzle then the bed target of the named preset.
// Both commands are queued or neither is.
func (c *Controller) ApplyPreset(name string) (config.Preset, error) {
	p, ok := c.lookup(name)
	if !ok {
		return config.Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	if err := c.submit("preset "+p.Name, PresetCommands(p)...); err != nil {
		return config.Preset{}, err
	}
	return p, nil
}

// SendGcode validates script and queues it. Scripts may span several lines.
func (c *Controller) SendGcode(script string) error {
	script, err := ValidateGcode(script)
	if err != nil {
		return err
	}
	return c.submit("gcode", script)
}

// PresetCommands returns the G-code a preset sends, nozzle first.
func PresetCommands(p config.Preset) []string {
	return []string{
		fmt.Sprintf("M104 S%d T0", p.Nozzle),
		fmt.Sprintf("M140 S%d", p.Bed),
	}
}

func (c *Controller) lookup(name string) (config.Preset, bool) {
	name = strings.TrimSpace(name)
	for _, p := range c.presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return config.Preset{}, false
}

func (c *Controller) submit(action string, codes ...string) error {
	snap := c.snapshots.Snapshot()
	if snap.Link != link.Connected {
		return ErrOffline
	}
	if !snap.Readiness.Ready() {
		return ErrNotReady
	}

	paths := make([]string, len(codes))
	for i, code := range codes {
		paths[i] = moonraker.GcodePath(code)
	}
	if !c.queue.EnqueueAll(paths...) {
		c.logger.Warn("queue full, action rejected", zap.String("action", action))
		return ErrBusy
	}
	c.logger.Info("action queued", zap.String("action", action), zap.Strings("gcode", codes))
	return nil
}

// ValidateGcode trims script and checks it line by line. Classic G, M and T
// codes must parse as letter/number words or bare axis letters; extended
// commands such as QUAD_GANTRY_LEVEL or SET_PIN PIN=x are passed through.
func ValidateGcode(script string) (string, error) {
	script = strings.TrimSpace(strings.ReplaceAll(script, "\r\n", "\n"))
	if script == "" {
		return "", fmt.Errorf("%w: empty script", ErrInvalidGcode)
	}

	var classic []string
	for _, line := range strings.Split(script, "\n") {
		code := stripComment(line)
		if code == "" {
			continue
		}
		if !isClassic(code) || freeText[strings.ToUpper(strings.Fields(code)[0])] {
			continue
		}
		valued, err := checkWords(code)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidGcode, line, err)
		}
		classic = append(classic, strings.ToUpper(strings.Join(valued, " ")))
	}
	if len(classic) > 0 {
		if _, err := gcode.ParseFile(strings.NewReader(strings.Join(classic, "\n") + "\n")); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidGcode, err)
		}
	}
	return script, nil
}

// freeText codes carry a message rather than letter/number words.
var freeText = map[string]bool{"M117": true, "M118": true}

func stripComment(line string) string {
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// isClassic reports whether the first word is a G, M or T code such as G28.
func isClassic(code string) bool {
	word := strings.Fields(code)[0]
	if len(word) < 2 {
		return false
	}
	switch unicode.ToUpper(rune(word[0])) {
	case 'G', 'M', 'T':
	default:
		return false
	}
	return word[1] >= '0' && word[1] <= '9'
}

// checkWords returns the words that carry a value. A bare letter such as the
// X in "G28 X" names an axis and is allowed.
func checkWords(code string) ([]string, error) {
	words := strings.Fields(code)
	valued := make([]string, 0, len(words))
	for _, word := range words {
		if !unicode.IsLetter(rune(word[0])) {
			return nil, fmt.Errorf("word %q does not start with a letter", word)
		}
		if len(word) == 1 {
			continue
		}
		if _, err := strconv.ParseFloat(word[1:], 64); err != nil {
			return nil, fmt.Errorf("word %q has no numeric value", word)
		}
		valued = append(valued, word)
	}
	return valued, nil
}
