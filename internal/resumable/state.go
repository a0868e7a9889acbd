package resumable

import (
	"crypto/md5" //nolint:gosec // used as a path-to-filename digest, not for integrity
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// UploadState is one large file's resumable-upload bookkeeping. UploadedChunks is a sorted set of chunk indices accepted so
// far; in practice it stays empty because the underlying remote CLI uploads
// a file as a single atomic streamed transfer and has no per-chunk
// acknowledgement to report. The state machine below holds regardless — a
// future CLI with real chunk semantics could populate it without changing
// any caller.
type UploadState struct {
	LocalPath      string `json:"filePath"`
	RemotePath     string `json:"remotePath"`
	ChunkSizeBytes int64  `json:"chunkSize"`
	TotalChunks    int    `json:"totalChunks"`
	UploadedChunks []int  `json:"uploadedChunks"`
	FileChecksum   string `json:"checksum"` // SHA-256 hex of the local file
	Timestamp      string `json:"timestamp"`
}

// percentComplete reports the composed progress value: base from whole
// chunks already accepted, plus the fraction of one chunk's worth
// represented by chunkProgress (0-100, as reported by the underlying
// streamed transfer).
func (s *UploadState) percentComplete(chunkProgress int) int {
	if s.TotalChunks <= 0 {
		return 0
	}

	base := float64(len(s.UploadedChunks)) / float64(s.TotalChunks) * 100
	current := float64(chunkProgress) / float64(s.TotalChunks)

	pct := base + current
	if pct > 100 {
		pct = 100
	}

	return int(pct + 0.5) //nolint:mnd // round-half-up
}

// bytesUploaded estimates bytes durably accepted so far from whole chunks
// only: (uploadedChunks/totalChunks)*totalSize.
func (s *UploadState) bytesUploaded(totalSize int64) int64 {
	if s.TotalChunks <= 0 {
		return 0
	}

	return int64(float64(len(s.UploadedChunks)) / float64(s.TotalChunks) * float64(totalSize))
}

// stateFileName is "<basename>.<md5(localPath)>.upload-state.json".
func stateFileName(localPath string) string {
	sum := md5.Sum([]byte(localPath)) //nolint:gosec // filename digest, not integrity-sensitive

	return fmt.Sprintf("%s.%s.upload-state.json", filepath.Base(localPath), hex.EncodeToString(sum[:]))
}

// statePath joins stateDir and the state filename for localPath.
func statePath(stateDir, localPath string) string {
	return filepath.Join(stateDir, stateFileName(localPath))
}

// loadUploadState reads a persisted state file. A missing file returns
// (nil, nil) — absence is a normal "no prior attempt" condition, not
// an error.
func loadUploadState(stateDir, localPath string) (*UploadState, error) {
	data, err := os.ReadFile(statePath(stateDir, localPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("resumable: reading state: %w", err)
	}

	var st UploadState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("resumable: parsing state: %w", err)
	}

	return &st, nil
}

// saveUploadState writes st atomically (write to a temp file, then rename)
// so a crash mid-write never leaves a corrupt state file behind.
func saveUploadState(stateDir string, st *UploadState) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil { //nolint:mnd // state directory convention
		return fmt.Errorf("resumable: creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("resumable: marshaling state: %w", err)
	}

	dest := statePath(stateDir, st.LocalPath)

	tmp, err := os.CreateTemp(stateDir, ".upload-state-*.tmp")
	if err != nil {
		return fmt.Errorf("resumable: creating temp state file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("resumable: writing temp state file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("resumable: closing temp state file: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("resumable: renaming temp state file: %w", err)
	}

	return nil
}

// clearUploadState idempotently removes a state file; absence is success.
func clearUploadState(stateDir, localPath string) error {
	err := os.Remove(statePath(stateDir, localPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("resumable: removing state: %w", err)
	}

	return nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
