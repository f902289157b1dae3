package backend

import (
	"context"
	"fmt"
	"net/url"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	config "github.com/aws/aws-sdk-go-v2/config"
	credentials "github.com/aws/aws-sdk-go-v2/credentials"
	otelaws "go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type opt struct {
	url       *url.URL
	awsConfig *aws.Config
	endpoint  string       // S3-compatible endpoint, path-style addressing when set
	region    string       // overrides the region from the environment
	accessKey string       // static credentials, both halves required
	secretKey string       //
	anonymous bool         // forces anonymous credentials
	tracer    trace.Tracer // when set, S3 API calls produce child spans
}

type Opt func(*opt) error

const defaultRegion = "us-east-1"

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func apply(url *url.URL, opts ...Opt) (*opt, error) {
	o := opt{url: url}
	if region := url.Query().Get("region"); region != "" {
		o.region = region
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	if (o.accessKey == "") != (o.secretKey == "") {
		return nil, fmt.Errorf("both access key and secret key are required")
	}

	// Return success
	return &o, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// WithEndpoint sets the endpoint for S3-compatible services (minio, ceph)
func WithEndpoint(endpoint string) Opt {
	return func(o *opt) error {
		if endpoint == "" {
			return nil
		}
		if u, err := url.Parse(endpoint); err != nil {
			return err
		} else if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("endpoint must be http:// or https://, got %q", endpoint)
		} else {
			o.endpoint = u.String()
		}
		return nil
	}
}

// WithRegion sets the S3 region
func WithRegion(region string) Opt {
	return func(o *opt) error {
		o.region = region
		return nil
	}
}

// WithCredentials sets a static access key and secret
func WithCredentials(accessKey, secretKey string) Opt {
	return func(o *opt) error {
		o.accessKey = accessKey
		o.secretKey = secretKey
		return nil
	}
}

// WithAnonymous forces use of anonymous credentials
func WithAnonymous() Opt {
	return func(o *opt) error {
		o.anonymous = true
		return nil
	}
}

// WithCreateDir creates the directory of a file:// backend if it does not exist
func WithCreateDir() Opt {
	return func(o *opt) error {
		o.set("create_dir", "true")
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer. On s3:// backends each S3 API call
// produces a child span.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opt) error {
		o.tracer = tracer
		return nil
	}
}

// WithAWSConfig provides an AWS SDK configuration for s3:// backends, used
// instead of the default credential chain
func WithAWSConfig(cfg aws.Config) Opt {
	return func(o *opt) error {
		o.awsConfig = &cfg
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (o *opt) set(key, value string) {
	if o.url == nil {
		return
	}
	q := o.url.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	o.url.RawQuery = q.Encode()
}

// aws returns the AWS configuration for an s3:// backend
func (o *opt) aws(ctx context.Context) (aws.Config, error) {
	var cfg aws.Config
	if o.awsConfig != nil {
		cfg = o.awsConfig.Copy()
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if o.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(o.region))
		}
		if o.accessKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, "")))
		}
		if loaded, err := config.LoadDefaultConfig(ctx, loadOpts...); err != nil {
			return aws.Config{}, err
		} else {
			cfg = loaded
		}
	}
	if o.region != "" {
		cfg.Region = o.region
	} else if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if o.anonymous {
		cfg.Credentials = aws.AnonymousCredentials{}
	}
	if o.tracer != nil {
		otelaws.AppendMiddlewares(&cfg.APIOptions)
	}
	return cfg, nil
}
