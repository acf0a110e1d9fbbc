package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/pthm-cable/hunters/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 2

// Snapshot holds the arena state at one tick.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	WorldWidth  float64 `json:"world_width"`
	WorldHeight float64 `json:"world_height"`

	Tick int32   `json:"tick"`
	Time float64 `json:"time"`

	Hunters []HunterState `json:"hunters"`
	Food    []FoodState   `json:"food"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// HunterState holds one hunter's observable state.
type HunterState struct {
	ID         uint32                `json:"id"`
	Type       components.HunterType `json:"type"`
	Generation int                   `json:"generation"`
	Parents    []uint32              `json:"parents,omitempty"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VelX     float64 `json:"vel_x"`
	VelY     float64 `json:"vel_y"`
	HeadingX float64 `json:"heading_x"`
	HeadingY float64 `json:"heading_y"`
	Radius   float64 `json:"radius"`

	Health    float64           `json:"health"`
	MaxHealth float64           `json:"max_health"`
	Attack    float64           `json:"attack"`
	Intent    components.Intent `json:"intent"`
	InCombat  bool              `json:"in_combat,omitempty"`
	PartnerID uint32            `json:"partner_id,omitempty"`

	Lifetime *LifetimeStats `json:"lifetime,omitempty"`
}

// FoodState holds one unconsumed food item.
type FoodState struct {
	ID uint32  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// SnapshotName returns the file name a snapshot is saved under.
func SnapshotName(s *Snapshot) string {
	name := fmt.Sprintf("snapshot_%d", s.Tick)
	if s.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(s.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", s.Tick, sanitized)
	}
	return name + ".json.zst"
}

// SaveSnapshot writes a zstd-compressed JSON snapshot to dir.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(dir, SnapshotName(snapshot))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", fmt.Errorf("zstd writer: %w", err)
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	if err := json.NewEncoder(bw).Encode(snapshot); err != nil {
		enc.Close()
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk. Plain .json files are accepted too.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var snapshot Snapshot
	if err := json.NewDecoder(bufio.NewReaderSize(r, 256*1024)).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
