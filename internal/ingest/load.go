// Package ingest reads claim batches from disk.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ppiankov/claimgate/internal/model"
	"gopkg.in/yaml.v3"
)

// Batch is one verification request: a task and the claims extracted for it
type Batch struct {
	Task   string        `json:"task" yaml:"task"`
	Claims []model.Claim `json:"claims" yaml:"claims"`
}

// rawClaim accepts an HTML support snippet in place of plain text
type rawClaim struct {
	model.Claim `yaml:",inline"`
	SupportHTML string `json:"support_html,omitempty" yaml:"support_html,omitempty"`
}

type rawBatch struct {
	Task   string     `json:"task" yaml:"task"`
	Claims []rawClaim `json:"claims" yaml:"claims"`
}

// jsonlLine is a claim, or a header line carrying only the task
type jsonlLine struct {
	rawClaim
	Task string `json:"task,omitempty"`
}

// Supported formats
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatJSONL = "jsonl"
)

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unsupported batch file extension %q (use .json, .yaml, .yml or .jsonl)", filepath.Ext(path))
	}
}

// Load reads and normalizes a batch file
func Load(path string) (*Batch, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	defer func() { _ = f.Close() }()

	batch, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return batch, nil
}

// Parse decodes a batch in the given format and normalizes its claims
func Parse(r io.Reader, format string) (*Batch, error) {
	var raw rawBatch

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSONL:
		if err := decodeJSONL(r, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	claims, err := normalize(raw.Claims)
	if err != nil {
		return nil, err
	}
	return &Batch{Task: strings.TrimSpace(raw.Task), Claims: claims}, nil
}

func decodeJSONL(r io.Reader, raw *rawBatch) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry jsonlLine
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if entry.Task != "" && entry.Statement == "" {
			raw.Task = entry.Task
			continue
		}
		raw.Claims = append(raw.Claims, entry.rawClaim)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read jsonl: %w", err)
	}
	return nil
}

// normalize fills missing ids, converts HTML support and drops duplicate
// statements from the same source. Statements are never rewritten.
func normalize(raw []rawClaim) ([]model.Claim, error) {
	seen := make(map[string]bool)
	claims := make([]model.Claim, 0, len(raw))

	for i, rc := range raw {
		claim := rc.Claim

		if claim.SupportText == "" && rc.SupportHTML != "" {
			text, err := VisibleText(rc.SupportHTML)
			if err != nil {
				return nil, fmt.Errorf("claim %d: support_html: %w", i, err)
			}
			claim.SupportText = text
		}

		key := strings.ToLower(strings.TrimSpace(claim.Statement)) + "\x00" + claim.SourceURL
		if seen[key] {
			continue
		}
		seen[key] = true

		if claim.ID == "" {
			claim.ID = uuid.NewString()
		}
		claims = append(claims, claim)
	}

	return claims, nil
}
