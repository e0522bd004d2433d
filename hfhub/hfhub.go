// Package hfhub talks to the Hugging Face hub: model search, model metadata
// and repository cloning.
//
// The access token comes from the HF_TOKEN environment variable. It is
// injected into clone URLs in memory only and is kept out of error messages.
package hfhub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/KhanhRomVN/termi-tool/applog"
)

// ErrMissingRepoID reports an empty repository ID.
var ErrMissingRepoID = errors.New("repository id is empty")

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// runCommand is the default Runner. Errors carry the binary name and output
// but not the arguments, which may embed credentials.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %v: %s", name, err, bytes.TrimSpace(out))
	}
	return out, nil
}

// Model is one search result.
type Model struct {
	ID          string `json:"id"`
	PipelineTag string `json:"pipeline_tag"`
	Downloads   int    `json:"downloads"`
	Likes       int    `json:"likes"`
}

// Sibling is one file of a model repository.
type Sibling struct {
	FileName string `json:"rfilename"`
}

// ModelInfo is the detailed metadata of one model repository.
type ModelInfo struct {
	ID           string    `json:"id"`
	SHA          string    `json:"sha"`
	LastModified string    `json:"lastModified"`
	PipelineTag  string    `json:"pipeline_tag"`
	Downloads    int       `json:"downloads"`
	Likes        int       `json:"likes"`
	Tags         []string  `json:"tags"`
	Siblings     []Sibling `json:"siblings"`
}

// Client accesses the hub API and clones repositories.
type Client struct {
	http  *resty.Client
	base  string
	token string
	git   string
	run   Runner
}

// NewClient creates a hub client. baseURL is normally https://huggingface.co;
// gitPath names the git binary used for cloning.
func NewClient(baseURL, token, gitPath string) *Client {
	return &Client{
		http:  resty.New().SetBaseURL(baseURL),
		base:  baseURL,
		token: token,
		git:   gitPath,
		run:   runCommand,
	}
}

// SearchModels queries the hub for models, sorted by downloads. Empty query
// and author broaden the search.
func (c *Client) SearchModels(ctx context.Context, query, author string, limit int) ([]Model, error) {
	if limit <= 0 {
		limit = 20
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("sort", "downloads")
	if query != "" {
		req.SetQueryParam("search", query)
	}
	if author != "" {
		req.SetQueryParam("author", author)
	}
	if c.token != "" {
		req.SetAuthToken(c.token)
	}

	var models []Model
	resp, err := req.SetResult(&models).Get("/api/models")
	if err != nil {
		return nil, fmt.Errorf("request error: %v", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status(), resp.String())
	}

	return models, nil
}

// ModelInfo fetches the metadata of one repository, e.g. "ultralytics/yolov8".
func (c *Client) ModelInfo(ctx context.Context, repoID string) (*ModelInfo, error) {
	if repoID == "" {
		return nil, ErrMissingRepoID
	}

	req := c.http.R().SetContext(ctx)
	if c.token != "" {
		req.SetAuthToken(c.token)
	}

	var info ModelInfo
	resp, err := req.SetResult(&info).Get("/api/models/" + repoID)
	if err != nil {
		return nil, fmt.Errorf("request error: %v", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status(), resp.String())
	}

	return &info, nil
}

// CloneRepo clones a model repository into destDir and returns the checkout
// path. An empty branch clones the default branch.
func (c *Client) CloneRepo(ctx context.Context, repoID, destDir, branch string) (string, error) {
	if repoID == "" {
		return "", ErrMissingRepoID
	}

	cloneURL, err := c.cloneURL(repoID)
	if err != nil {
		return "", err
	}
	target := filepath.Join(destDir, path.Base(repoID))

	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, cloneURL, target)

	if _, err := c.run(ctx, c.git, args...); err != nil {
		// git echoes the clone URL, credentials included, into some of its
		// error messages.
		msg := err.Error()
		if c.token != "" {
			msg = strings.ReplaceAll(msg, c.token, "***")
		}
		return "", fmt.Errorf("clone of %q failed: %s", repoID, msg)
	}

	applog.Info(applog.Fields{
		"repo":   repoID,
		"target": target,
	}, "cloned hub repository")

	return target, nil
}

// cloneURL builds the authenticated repository URL.
func (c *Client) cloneURL(repoID string) (string, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return "", fmt.Errorf("invalid hub base URL: %v", err)
	}
	u.Path = path.Join(u.Path, repoID)
	if c.token != "" {
		u.User = url.UserPassword("oauth", c.token)
	}
	return u.String(), nil
}
