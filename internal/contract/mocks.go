package contract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock implementation of GitClient for testing.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath}
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	return ret.String(0), ret.Error(1)
}

// GetHeadCommit implements the GitClient interface.
func (m *MockGitClient) GetHeadCommit(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}

// GetBranch implements the GitClient interface.
func (m *MockGitClient) GetBranch(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}

// GetRemoteURL implements the GitClient interface.
func (m *MockGitClient) GetRemoteURL(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}

// GetChangedFiles implements the GitClient interface.
func (m *MockGitClient) GetChangedFiles(ctx context.Context, repoPath string, base string) ([]string, error) {
	ret := m.Called(ctx, repoPath, base)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// GetChangedFilesInRange implements the GitClient interface.
func (m *MockGitClient) GetChangedFilesInRange(ctx context.Context, repoPath string, revRange string) ([]string, error) {
	ret := m.Called(ctx, repoPath, revRange)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// GetUnifiedDiff implements the GitClient interface.
func (m *MockGitClient) GetUnifiedDiff(ctx context.Context, repoPath string, base string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, base)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}

// MockProcessRunner is a mock implementation of ProcessRunner for testing.
type MockProcessRunner struct {
	mock.Mock
}

var _ ProcessRunner = &MockProcessRunner{} // Compile-time check

// Run implements the ProcessRunner interface.
func (m *MockProcessRunner) Run(ctx context.Context, spec ProcessSpec) (int, error) {
	ret := m.Called(ctx, spec)
	return ret.Int(0), ret.Error(1)
}

// MockUploadSink is a mock implementation of UploadSink for testing.
type MockUploadSink struct {
	mock.Mock
}

var _ UploadSink = &MockUploadSink{} // Compile-time check

// Send implements the UploadSink interface.
func (m *MockUploadSink) Send(ctx context.Context, endpoint string, token string, payload []byte) (int, error) {
	ret := m.Called(ctx, endpoint, token, payload)
	return ret.Int(0), ret.Error(1)
}
