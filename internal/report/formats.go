package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/diffanalyze/internal/aggregate"
)

// TrackMode selects what the JSON index records per commit.
type TrackMode string

const (
	// TrackLOC records the total count of attributed added lines per commit.
	TrackLOC TrackMode = "loc"
	// TrackDiff records the full commit -> file -> function -> lines index.
	TrackDiff TrackMode = "diff"
)

// ErrUnknownTrackMode is returned for an unrecognized track mode string.
var ErrUnknownTrackMode = errors.New("unknown track mode")

// ParseTrackMode validates a track mode string.
func ParseTrackMode(s string) (TrackMode, error) {
	switch TrackMode(s) {
	case TrackLOC, TrackDiff:
		return TrackMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q (expected loc or diff)", ErrUnknownTrackMode, s)
	}
}

// WriteJSONIndex writes the change index to path. With compress set, the
// payload is LZ4-framed and ".lz4" is appended to the path.
func WriteJSONIndex(state *aggregate.State, path string, track TrackMode, compress bool) error {
	var payload any

	switch track {
	case TrackLOC:
		payload = state.LocIndex()
	case TrackDiff:
		payload = state.Index
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTrackMode, track)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if compress {
		return writeCompressed(path+".lz4", data)
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	return nil
}

// writeCompressed writes data through an LZ4 frame writer.
func writeCompressed(path string, data []byte) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	writer := lz4.NewWriter(file)

	_, err = writer.Write(data)
	if err != nil {
		_ = writer.Close()
		_ = file.Close()

		return fmt.Errorf("compress index: %w", err)
	}

	err = writer.Close()
	if err != nil {
		_ = file.Close()

		return fmt.Errorf("flush compressed index: %w", err)
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}

// aggregateReport is the serialized shape of the aggregate state.
type aggregateReport struct {
	CommitsSeen      int            `json:"commits_seen"      yaml:"commits_seen"`
	FunctionsChanged map[int]int    `json:"functions_changed" yaml:"functions_changed"`
	NoFunctionChange map[string]int `json:"no_function_change_by_extension" yaml:"no_function_change_by_extension"`
}

func buildReport(state *aggregate.State) aggregateReport {
	return aggregateReport{
		CommitsSeen:      state.CommitsSeen(),
		FunctionsChanged: state.Histogram(),
		NoFunctionChange: state.ExtensionHistogram(),
	}
}

// WriteYAML serializes the aggregate report as YAML.
func WriteYAML(out io.Writer, state *aggregate.State) error {
	err := yaml.NewEncoder(out).Encode(buildReport(state))
	if err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}

	return nil
}

// WriteJSON serializes the aggregate report as JSON.
func WriteJSON(out io.Writer, state *aggregate.State) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(buildReport(state))
	if err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}

	return nil
}
