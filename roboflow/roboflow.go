// Package roboflow is a thin client for the Roboflow REST API.
//
// The API key comes from the environment and is passed as a query parameter
// the way the API expects; it is never persisted.
package roboflow

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"

	"github.com/KhanhRomVN/termi-tool/applog"
)

var (
	// ErrMissingAPIKey reports an unset ROBOFLOW_API_KEY.
	ErrMissingAPIKey = errors.New("roboflow API key is not set (ROBOFLOW_API_KEY)")
	// ErrMissingWorkspace reports an unset workspace slug.
	ErrMissingWorkspace = errors.New("roboflow workspace is not set (ROBOFLOW_WORKSPACE or config)")
)

// Project is one project of a workspace.
type Project struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Images int    `json:"images"`
}

type workspaceResponse struct {
	Workspace struct {
		Name     string    `json:"name"`
		Projects []Project `json:"projects"`
	} `json:"workspace"`
}

// Client calls the Roboflow API for a single workspace.
type Client struct {
	http      *resty.Client
	apiKey    string
	workspace string
}

// NewClient creates a client for the workspace. baseURL is the API root,
// normally https://api.roboflow.com.
func NewClient(baseURL, apiKey, workspace string) *Client {
	return &Client{
		http:      resty.New().SetBaseURL(baseURL),
		apiKey:    apiKey,
		workspace: workspace,
	}
}

func (c *Client) check() error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if c.workspace == "" {
		return ErrMissingWorkspace
	}
	return nil
}

// ListProjects returns the projects of the workspace.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	var result workspaceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("api_key", c.apiKey).
		SetResult(&result).
		Get("/" + c.workspace)
	if err != nil {
		return nil, fmt.Errorf("request error: %v", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status(), resp.String())
	}

	applog.Debug(applog.Fields{
		"workspace": c.workspace,
		"projects":  len(result.Workspace.Projects),
	}, "listed roboflow projects")

	return result.Workspace.Projects, nil
}

// UploadModel deploys local weights to a project version.
func (c *Client) UploadModel(ctx context.Context, project, version, modelType, weightsPath string) error {
	if err := c.check(); err != nil {
		return err
	}
	if _, err := os.Stat(weightsPath); err != nil {
		return fmt.Errorf("cannot access weights file %q: %v", weightsPath, err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("api_key", c.apiKey).
		SetQueryParam("modelType", modelType).
		SetFile("file", weightsPath).
		Post(fmt.Sprintf("/%s/%s/%s/uploadModel", c.workspace, project, version))
	if err != nil {
		return fmt.Errorf("request error: %v", err)
	}
	if resp.IsError() {
		return fmt.Errorf("server returned %s: %s", resp.Status(), resp.String())
	}

	applog.Info(applog.Fields{
		"workspace": c.workspace,
		"project":   project,
		"version":   version,
		"model":     modelType,
	}, "uploaded model weights")

	return nil
}
