// Package testsupport provides scriptable fakes shared across component
// tests.
package testsupport

import (
	"context"
	"sync"

	"github.com/tonimelisma/internxt-backup/internal/remoteclient"
)

// FakeClient is a scripted remoteclient.Client. Each method's behavior is
// driven by a function field; a nil field falls back to a harmless default
// so tests only need to set what they care about.
type FakeClient struct {
	mu sync.Mutex

	AvailabilityFn func(ctx context.Context) remoteclient.AvailabilityResult
	UploadFileFn   func(ctx context.Context, local, remote string) remoteclient.Result
	UploadStreamFn func(ctx context.Context, local, remote string, onPercent remoteclient.PercentFunc) remoteclient.Result
	DownloadFileFn func(ctx context.Context, remote, local string) remoteclient.Result
	DownloadStreamFn func(
		ctx context.Context, remote, local string, onPercent remoteclient.PercentFunc,
	) remoteclient.Result
	CreateFolderFn func(ctx context.Context, remote string) remoteclient.Result
	ListFilesFn    func(ctx context.Context, remote string) remoteclient.ListResult
	FileExistsFn   func(ctx context.Context, remote string) bool
	DeleteFileFn   func(ctx context.Context, remote string) bool

	// Calls records every method invocation name, in order, for assertions
	// about call counts (e.g. retry attempts).
	Calls []string
}

var _ remoteclient.Client = (*FakeClient)(nil)

func (f *FakeClient) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, name)
}

// CallCount returns how many times method was recorded.
func (f *FakeClient) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0

	for _, c := range f.Calls {
		if c == method {
			n++
		}
	}

	return n
}

func (f *FakeClient) CheckAvailability(ctx context.Context) remoteclient.AvailabilityResult {
	f.record("CheckAvailability")

	if f.AvailabilityFn != nil {
		return f.AvailabilityFn(ctx)
	}

	return remoteclient.AvailabilityResult{Installed: true, Authenticated: true, Version: "fake"}
}

func (f *FakeClient) UploadFile(ctx context.Context, local, remote string) remoteclient.Result {
	f.record("UploadFile")

	if f.UploadFileFn != nil {
		return f.UploadFileFn(ctx, local, remote)
	}

	return remoteclient.Result{Success: true}
}

func (f *FakeClient) UploadFileStreamed(
	ctx context.Context, local, remote string, onPercent remoteclient.PercentFunc,
) remoteclient.Result {
	f.record("UploadFileStreamed")

	if f.UploadStreamFn != nil {
		return f.UploadStreamFn(ctx, local, remote, onPercent)
	}

	if onPercent != nil {
		onPercent(100) //nolint:mnd // fake default: report immediate completion
	}

	return remoteclient.Result{Success: true}
}

func (f *FakeClient) DownloadFile(ctx context.Context, remote, local string) remoteclient.Result {
	f.record("DownloadFile")

	if f.DownloadFileFn != nil {
		return f.DownloadFileFn(ctx, remote, local)
	}

	return remoteclient.Result{Success: true}
}

func (f *FakeClient) DownloadFileStreamed(
	ctx context.Context, remote, local string, onPercent remoteclient.PercentFunc,
) remoteclient.Result {
	f.record("DownloadFileStreamed")

	if f.DownloadStreamFn != nil {
		return f.DownloadStreamFn(ctx, remote, local, onPercent)
	}

	if onPercent != nil {
		onPercent(100) //nolint:mnd // fake default: report immediate completion
	}

	return remoteclient.Result{Success: true}
}

func (f *FakeClient) CreateFolder(ctx context.Context, remote string) remoteclient.Result {
	f.record("CreateFolder")

	if f.CreateFolderFn != nil {
		return f.CreateFolderFn(ctx, remote)
	}

	return remoteclient.Result{Success: true}
}

func (f *FakeClient) ListFiles(ctx context.Context, remote string) remoteclient.ListResult {
	f.record("ListFiles")

	if f.ListFilesFn != nil {
		return f.ListFilesFn(ctx, remote)
	}

	return remoteclient.ListResult{}
}

func (f *FakeClient) FileExists(ctx context.Context, remote string) bool {
	f.record("FileExists")

	if f.FileExistsFn != nil {
		return f.FileExistsFn(ctx, remote)
	}

	return false
}

func (f *FakeClient) DeleteFile(ctx context.Context, remote string) bool {
	f.record("DeleteFile")

	if f.DeleteFileFn != nil {
		return f.DeleteFileFn(ctx, remote)
	}

	return true
}
