package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

type shellTarget struct {
	command string
}

func newShellTarget(cfg *ShellTargetConfig) SyncTarget {
	if cfg.IsEmpty() {
		return nil
	}
	cmd := strings.TrimSpace(cfg.Command)
	if cmd == "" {
		return nil
	}
	return &shellTarget{command: cmd}
}

func (s *shellTarget) ApplyRecordChanges(ctx context.Context, changes RecordChangeSet) error {
	if changes.IsEmpty() {
		return nil
	}

	docs := struct {
		Upserts   []FileRecord `json:"upserts"`
		Deletions []string     `json:"deletions"`
	}{
		Upserts:   changes.Upserts,
		Deletions: changes.Deletions,
	}

	payload, err := json.Marshal(docs)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", s.command)
	cmd.Stdin = bytes.NewReader(payload)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("shell target failed: %w: %s", err, string(output))
	}

	return nil
}
