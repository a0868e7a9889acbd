package remoteclient

import "context"

// RemoteFileEntry describes one entry returned by ListFiles.
type RemoteFileEntry struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
	IsFolder  bool   `json:"isFolder"`
}

// AvailabilityResult is the outcome of CheckAvailability.
type AvailabilityResult struct {
	Installed     bool
	Authenticated bool
	Version       string
	Error         error
}

// Result is the outcome of a single CLI-backed operation.
type Result struct {
	Success bool
	Message string
}

// ListResult is the outcome of ListFiles.
type ListResult struct {
	Files []RemoteFileEntry
	Error error
}

// PercentFunc receives one forwarded progress percentage. Calls are not
// guaranteed to be monotonic — the engine forwards whatever the remote CLI
// reports.
type PercentFunc func(percent int)

// Client is the capability set the sync engine needs from the remote
// object store. The only implementation shipped here shells out to the
// external "internxt" CLI; tests substitute a scripted fake
// (internal/testsupport.FakeClient) satisfying the same interface.
type Client interface {
	CheckAvailability(ctx context.Context) AvailabilityResult
	UploadFile(ctx context.Context, local, remote string) Result
	UploadFileStreamed(ctx context.Context, local, remote string, onPercent PercentFunc) Result
	DownloadFile(ctx context.Context, remote, local string) Result
	DownloadFileStreamed(ctx context.Context, remote, local string, onPercent PercentFunc) Result
	CreateFolder(ctx context.Context, remote string) Result
	ListFiles(ctx context.Context, remote string) ListResult
	FileExists(ctx context.Context, remote string) bool
	DeleteFile(ctx context.Context, remote string) bool
}
