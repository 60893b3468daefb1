package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
)

// UploadOptions are the upload command's switches. Empty values fall back
// to the project config.
type UploadOptions struct {
	BuildID        string
	Endpoint       string
	Token          string
	CoverageMapURL string
	ResultsURL     string
}

// ExecuteUpload writes .impactcov/report.json and posts it to the configured
// endpoint. Transport failures and non-2xx responses return status 11.
func ExecuteUpload(ctx context.Context, cfg *contract.Config, rt *Runtime, opts UploadOptions) error {
	payload, err := BuildUploadPayload(ctx, cfg, rt, opts)
	if err != nil {
		return err
	}
	if err := writeJSONFile(contract.ReportPath(cfg.RepoPath), payload); err != nil {
		return err
	}
	reportPath := filepath.ToSlash(filepath.Join(contract.DotDirName, contract.ReportFileName))
	out := rt.stdout()

	if !cfg.Project.UploadEnabled() {
		_, err := fmt.Fprintf(out, "Upload disabled in %s; skipping upload. Report saved at %s\n", contract.ConfigFileName, reportPath)
		return err
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = cfg.Project.Endpoint()
	}
	if endpoint == "" {
		_, err := fmt.Fprintf(out, "No endpoint configured; skipping upload. Report saved at %s\n", reportPath)
		return err
	}
	token := opts.Token
	if token == "" {
		token = cfg.Project.Token()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode build payload: %w", err)
	}
	rt.logger().Info("uploading build summary", "endpoint", contract.IngestURL(endpoint), "build", payload.Build.ID)
	status, err := rt.Uploader.Send(ctx, endpoint, token, body)
	if err != nil {
		contract.LogWarn("Upload failed", err)
		return contract.NewExitError(schema.ExitUploadFailed, fmt.Errorf("upload failed: %w", err))
	}
	if status < 200 || status > 299 {
		_, _ = fmt.Fprintf(rt.stderr(), "Upload failed with status %d.\n", status)
		return contract.NewExitError(schema.ExitUploadFailed, fmt.Errorf("upload failed with status %d", status))
	}
	_, err = fmt.Fprintln(out, "Upload succeeded.")
	return err
}

// BuildUploadPayload assembles the build summary from git metadata and the
// last run summary, when one exists.
func BuildUploadPayload(ctx context.Context, cfg *contract.Config, rt *Runtime, opts UploadOptions) (schema.BuildPayload, error) {
	commit, err := rt.Git.GetHeadCommit(ctx, cfg.RepoPath)
	if err != nil {
		return schema.BuildPayload{}, fmt.Errorf("failed to resolve HEAD commit: %w", err)
	}
	branch, err := rt.Git.GetBranch(ctx, cfg.RepoPath)
	if err != nil {
		rt.logger().Warn("branch lookup failed", "error", err)
	}
	repo, err := rt.Git.GetRemoteURL(ctx, cfg.RepoPath)
	if err != nil {
		rt.logger().Warn("remote lookup failed", "error", err)
	}

	buildID := opts.BuildID
	if buildID == "" {
		buildID = uuid.NewString()
	}
	payload := schema.BuildPayload{
		Build:          schema.BuildInfo{ID: buildID, Commit: commit, Branch: branch, Repo: repo},
		Stats:          &schema.BuildStats{},
		CoverageMapURL: opts.CoverageMapURL,
		ResultsURL:     opts.ResultsURL,
	}

	last, err := readLastRun(cfg.RepoPath)
	if err != nil {
		rt.logger().Warn("ignoring unreadable last run summary", "error", err)
	}
	if last != nil {
		payload.Stats = &schema.BuildStats{
			TestsRun:     last.TestsRun,
			TestsSkipped: last.TestsSkipped,
			DurationMs:   last.DurationMs,
		}
		if last.Base != "" {
			payload.Diff = &schema.BuildDiff{Base: last.Base}
		}
	}
	return payload, nil
}

// readLastRun loads .impactcov/last-run.json. A missing file yields nil.
func readLastRun(root string) (*schema.RunSummary, error) {
	data, err := os.ReadFile(contract.LastRunPath(root))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var summary schema.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", contract.LastRunFileName, err)
	}
	return &summary, nil
}
