// Package client is the HTTP client for the stratus API, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/api"
	"github.com/imamik/stratus/internal/orchestration"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/store"
)

// Error is a failed API call. It matches the sentinel error the server
// reported, so callers can use errors.Is as they would in-process.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	ClusterID  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

func (e *Error) Is(target error) bool {
	switch e.Code {
	case api.CodeNotFound:
		return target == store.ErrNotFound
	case api.CodePluginNotFound:
		return target == provisioning.ErrPluginNotFound
	case api.CodeBusy:
		return target == orchestration.ErrClusterBusy
	case api.CodeInvalidState:
		return target == orchestration.ErrInvalidState
	case api.CodeUnsupported:
		return target == orchestration.ErrImagesUnsupported || target == orchestration.ErrConversionUnsupported
	}
	return false
}

// IsValidation reports whether err is a rejected request.
func IsValidation(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && (apiErr.Code == api.CodeValidation || apiErr.Code == api.CodeBadRequest)
}

// Client talks to one stratus server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListClusters(ctx context.Context) ([]*v1alpha1.Cluster, error) {
	var out []*v1alpha1.Cluster
	return out, c.call(ctx, http.MethodGet, "/v1/clusters", nil, &out)
}

func (c *Client) GetCluster(ctx context.Context, id string) (*v1alpha1.Cluster, error) {
	var out v1alpha1.Cluster
	if err := c.call(ctx, http.MethodGet, "/v1/clusters/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCluster(ctx context.Context, spec v1alpha1.ClusterSpec) (*v1alpha1.Cluster, error) {
	var out v1alpha1.Cluster
	if err := c.call(ctx, http.MethodPost, "/v1/clusters", spec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ScaleCluster(ctx context.Context, id string, request v1alpha1.ScalingRequest) (*v1alpha1.Cluster, error) {
	var out v1alpha1.Cluster
	if err := c.call(ctx, http.MethodPost, "/v1/clusters/"+url.PathEscape(id)+"/scale", request, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TerminateCluster(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/v1/clusters/"+url.PathEscape(id), nil, nil)
}

// Events returns the provisioning events of a cluster after the first
// after events.
func (c *Client) Events(ctx context.Context, id string, after int) ([]provisioning.Event, error) {
	var out []provisioning.Event
	path := "/v1/clusters/" + url.PathEscape(id) + "/events?after=" + strconv.Itoa(after)
	return out, c.call(ctx, http.MethodGet, path, nil, &out)
}

func (c *Client) CreateClusterTemplate(ctx context.Context, tmpl *v1alpha1.ClusterTemplate) (*v1alpha1.ClusterTemplate, error) {
	var out v1alpha1.ClusterTemplate
	if err := c.call(ctx, http.MethodPost, "/v1/cluster-templates", tmpl, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetClusterTemplate(ctx context.Context, id string) (*v1alpha1.ClusterTemplate, error) {
	var out v1alpha1.ClusterTemplate
	if err := c.call(ctx, http.MethodGet, "/v1/cluster-templates/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListClusterTemplates(ctx context.Context) ([]*v1alpha1.ClusterTemplate, error) {
	var out []*v1alpha1.ClusterTemplate
	return out, c.call(ctx, http.MethodGet, "/v1/cluster-templates", nil, &out)
}

func (c *Client) DeleteClusterTemplate(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/v1/cluster-templates/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreateNodeGroupTemplate(ctx context.Context, tmpl *v1alpha1.NodeGroupTemplate) (*v1alpha1.NodeGroupTemplate, error) {
	var out v1alpha1.NodeGroupTemplate
	if err := c.call(ctx, http.MethodPost, "/v1/node-group-templates", tmpl, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetNodeGroupTemplate(ctx context.Context, id string) (*v1alpha1.NodeGroupTemplate, error) {
	var out v1alpha1.NodeGroupTemplate
	if err := c.call(ctx, http.MethodGet, "/v1/node-group-templates/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListNodeGroupTemplates(ctx context.Context) ([]*v1alpha1.NodeGroupTemplate, error) {
	var out []*v1alpha1.NodeGroupTemplate
	return out, c.call(ctx, http.MethodGet, "/v1/node-group-templates", nil, &out)
}

func (c *Client) DeleteNodeGroupTemplate(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/v1/node-group-templates/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListPlugins(ctx context.Context) ([]v1alpha1.PluginInfo, error) {
	var out []v1alpha1.PluginInfo
	return out, c.call(ctx, http.MethodGet, "/v1/plugins", nil, &out)
}

func (c *Client) GetPlugin(ctx context.Context, name, version string) (*v1alpha1.PluginVersionInfo, error) {
	var out v1alpha1.PluginVersionInfo
	path := "/v1/plugins/" + url.PathEscape(name) + "/" + url.PathEscape(version)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConvertClusterTemplate uploads an engine-native configuration file and
// returns the cluster template stored from it.
func (c *Client) ConvertClusterTemplate(ctx context.Context, plugin, version, name string, data []byte) (*v1alpha1.ClusterTemplate, error) {
	path := "/v1/plugins/" + url.PathEscape(plugin) + "/" + url.PathEscape(version) + "/convert?" +
		url.Values{"template": {name}}.Encode()
	var out v1alpha1.ClusterTemplate
	if err := c.call(ctx, http.MethodPost, path, rawBody{contentType: "application/yaml", data: data}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListImages(ctx context.Context, tags []string) ([]v1alpha1.Image, error) {
	path := "/v1/images"
	if len(tags) > 0 {
		q := url.Values{}
		for _, t := range tags {
			q.Add("tag", t)
		}
		path += "?" + q.Encode()
	}
	var out []v1alpha1.Image
	return out, c.call(ctx, http.MethodGet, path, nil, &out)
}

func (c *Client) GetImage(ctx context.Context, id string) (*v1alpha1.Image, error) {
	return c.image(ctx, http.MethodGet, "/v1/images/"+url.PathEscape(id), nil)
}

// FindImage looks an image up by its exact name.
func (c *Client) FindImage(ctx context.Context, name string) (*v1alpha1.Image, error) {
	return c.image(ctx, http.MethodGet, "/v1/images/by-name/"+url.PathEscape(name), nil)
}

func (c *Client) RegisterImage(ctx context.Context, id, username, description string) (*v1alpha1.Image, error) {
	body := api.RegisterImageRequest{Username: username, Description: description}
	return c.image(ctx, http.MethodPost, "/v1/images/"+url.PathEscape(id), body)
}

func (c *Client) UnregisterImage(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/v1/images/"+url.PathEscape(id), nil, nil)
}

func (c *Client) TagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error) {
	return c.image(ctx, http.MethodPost, "/v1/images/"+url.PathEscape(id)+"/tag", api.TagsRequest{Tags: tags})
}

func (c *Client) UntagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error) {
	return c.image(ctx, http.MethodPost, "/v1/images/"+url.PathEscape(id)+"/untag", api.TagsRequest{Tags: tags})
}

func (c *Client) image(ctx context.Context, method, path string, body any) (*v1alpha1.Image, error) {
	var out v1alpha1.Image
	if err := c.call(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// rawBody is sent as is instead of being JSON encoded.
type rawBody struct {
	contentType string
	data        []byte
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := "application/json"
	switch in := in.(type) {
	case nil:
	case rawBody:
		body = bytes.NewReader(in.data)
		contentType = in.contentType
	default:
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode, Code: api.CodeInternal, Message: strings.TrimSpace(string(data))}
		var er api.ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Code != "" {
			apiErr.Code = er.Code
			apiErr.Message = er.Message
			apiErr.ClusterID = er.ClusterID
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w (status %d)", err, resp.StatusCode)
	}
	return nil
}
