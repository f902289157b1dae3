package httpclient

import (
	"fmt"
	"net/url"

	// Packages
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	client "github.com/mutablelogic/go-client"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Client uploads files to an upload server. Protocol requests go through a
// retrying HTTP client, status requests through the JSON client.
type Client struct {
	*client.Client
	opts
	endpoint *url.URL
	http     *retryablehttp.Client
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a new upload client for the server at url, for example
// "http://localhost:8080".
func New(endpoint string, opts ...Opt) (*Client, error) {
	c := new(Client)
	if o, err := applyOpts(opts); err != nil {
		return nil, err
	} else {
		c.opts = o
	}

	// Check the endpoint
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	c.endpoint = u

	// JSON client
	cl, err := client.New(append(c.clientOpts, client.OptEndpoint(endpoint))...)
	if err != nil {
		return nil, err
	}
	c.Client = cl

	// Protocol client: 4xx other than 429 are not retried
	c.http = retryablehttp.NewClient()
	c.http.RetryMax = c.retryMax
	c.http.RetryWaitMin = c.retryWaitMin
	c.http.RetryWaitMax = c.retryWaitMax
	c.http.CheckRetry = retryablehttp.DefaultRetryPolicy
	c.http.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.http.Logger = c.logger

	return c, nil
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// uploadURL returns the url of the protocol endpoint, or of an upload
func (c *Client) uploadURL(id ...string) string {
	return c.endpoint.JoinPath(append([]string{c.path}, id...)...).String()
}
