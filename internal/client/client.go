// Package client dispatches logical service methods to one of three
// interchangeable strategies: a synchronous remote call, an asynchronous
// batch job, or a local in-process implementation. The active strategy
// is a process-wide default overridable through nested scopes.
package client

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"go-azml-client/internal/blob"
	"go-azml-client/internal/codec"
	"go-azml-client/internal/config"
	"go-azml-client/internal/model"
	"go-azml-client/internal/store"
	"go-azml-client/internal/ws"
)

// ServiceSpec registers one logical service: its config section name and
// whether a local stand-in is forbidden.
type ServiceSpec struct {
	Name       string
	RemoteOnly bool
}

// LocalService is the in-process stand-in for the remote platform. One
// implementation serves every registered service, keyed by name.
type LocalService interface {
	Call(ctx context.Context, service string, inputs map[string]*model.Table, params map[string]string) (map[string]*model.Table, error)
}

// LocalFactory builds the local implementation on first use.
type LocalFactory func() (LocalService, error)

// BlobStoreFactory builds the staging store for one service's batch
// calls. The default builds an S3 store from the service's blob
// settings.
type BlobStoreFactory func(svc config.ServiceConfig) (blob.Store, error)

// Client routes service calls according to the active call mode. The
// mode stack is guarded by a mutex; goroutines sharing one Client see a
// single stack, so concurrent scoped overrides must be serialized by the
// caller.
type Client struct {
	cfg        *config.ClientConfig
	services   map[string]ServiceSpec
	httpClient *http.Client
	codecOpts  codec.Options

	blobStores BlobStoreFactory

	localFactory LocalFactory
	localOnce    sync.Once
	local        LocalService
	localErr     error

	mu    sync.Mutex
	modes []CallMode

	track bool
}

// Option tweaks a Client at construction.
type Option func(*Client)

// WithDefaultMode replaces the default RequestResponse base mode.
func WithDefaultMode(m CallMode) Option {
	return func(c *Client) { c.modes[0] = m }
}

// WithLocalFactory installs the lazily-built local implementation.
func WithLocalFactory(f LocalFactory) Option {
	return func(c *Client) { c.localFactory = f }
}

// WithCodecOptions sets the null sentinels used on every call.
func WithCodecOptions(opts codec.Options) Option {
	return func(c *Client) { c.codecOpts = opts }
}

// WithBlobStores replaces how batch staging stores are built.
func WithBlobStores(f BlobStoreFactory) Option {
	return func(c *Client) { c.blobStores = f }
}

// WithTracker records every dispatched call in the sqlite store, which
// must be initialized beforehand.
func WithTracker() Option {
	return func(c *Client) { c.track = true }
}

// New builds a client for the given services. The configuration must
// hold a usable endpoint for each of them.
func New(cfg *config.ClientConfig, services []ServiceSpec, opts ...Option) (*Client, error) {
	names := make([]string, len(services))
	for i, s := range services {
		names[i] = s.Name
	}
	if err := cfg.Validate(names); err != nil {
		return nil, &ConfigError{Msg: err.Error()}
	}
	httpClient, err := cfg.Global.HTTPClient()
	if err != nil {
		return nil, &ConfigError{Msg: err.Error()}
	}

	c := &Client{
		cfg:        cfg,
		services:   make(map[string]ServiceSpec, len(services)),
		httpClient: httpClient,
		codecOpts:  codec.DefaultOptions(),
		modes:      []CallMode{RequestResponse(false)},
	}
	c.blobStores = func(svc config.ServiceConfig) (blob.Store, error) {
		return blob.NewS3Store(blob.S3Config{
			Account:   svc.BlobAccount,
			Key:       svc.BlobKey,
			Endpoint:  svc.BlobEndpoint,
			PathStyle: svc.BlobEndpoint != "",
		}, svc.BlobContainer, c.httpClient)
	}
	for _, s := range services {
		c.services[s.Name] = s
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PushMode activates a mode for a scope. The returned restore func pops
// it again; callers defer it so the previous mode comes back even on a
// panic. Nested pushes are allowed and the innermost wins.
func (c *Client) PushMode(m CallMode) (restore func()) {
	c.mu.Lock()
	c.modes = append(c.modes, m)
	depth := len(c.modes)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		if len(c.modes) >= depth {
			c.modes = c.modes[:depth-1]
		}
		c.mu.Unlock()
	}
}

// ActiveMode returns the innermost active call mode.
func (c *Client) ActiveMode() CallMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modes[len(c.modes)-1]
}

// Call executes the named service with the active mode. Every call
// re-executes fully; nothing is cached.
func (c *Client) Call(ctx context.Context, service string, inputs map[string]*model.Table, params map[string]string, outputNames []string) (map[string]*model.Table, error) {
	spec, ok := c.services[service]
	if !ok {
		return nil, &ConfigError{Service: service, Msg: "service is not registered"}
	}
	svcCfg, ok := c.cfg.Service(service)
	if !ok {
		return nil, &ConfigError{Service: service, Msg: "no endpoint configuration"}
	}

	mode := c.ActiveMode()
	kind, err := resolveKind(mode, spec)
	if err != nil {
		return nil, err
	}

	callID := uuid.New().String()
	if c.track {
		if err := store.SaveCall(callID, service, kind.String()); err != nil {
			log.Printf("⚠️ failed to record call %s: %v", callID, err)
		}
	}

	var outputs map[string]*model.Table
	switch kind {
	case ModeRequestResponse:
		outputs, err = c.callRequestResponse(ctx, svcCfg, mode, inputs, params, outputNames)
	case ModeBatch:
		outputs, err = c.callBatch(ctx, svcCfg, mode, inputs, params, outputNames, callID)
	case ModeLocal:
		outputs, err = c.callLocal(ctx, service, inputs, params)
	}

	if c.track {
		status := "succeeded"
		if err != nil {
			status = "failed"
			if e := store.SaveCallError(callID, err); e != nil {
				log.Printf("⚠️ failed to record error for call %s: %v", callID, e)
			}
		}
		if e := store.FinishCall(callID, status); e != nil {
			log.Printf("⚠️ failed to finish call %s: %v", callID, e)
		}
	}
	return outputs, err
}

func (c *Client) callRequestResponse(ctx context.Context, svc config.ServiceConfig, mode CallMode, inputs map[string]*model.Table, params map[string]string, outputNames []string) (map[string]*model.Table, error) {
	body, err := codec.EncodeRequest(inputs, params, mode.UseSwaggerFormat, c.codecOpts)
	if err != nil {
		return nil, err
	}
	rr := &ws.RequestResponseClient{HTTPClient: c.httpClient}
	respBody, err := rr.Execute(ctx, svc.BaseURL, svc.APIKey, body)
	if err != nil {
		return nil, err
	}
	outputs, _, err := codec.DecodeResponse(respBody, codec.DecodeOptions{
		Options:     c.codecOpts,
		OutputNames: outputNames,
	})
	return outputs, err
}

func (c *Client) callBatch(ctx context.Context, svc config.ServiceConfig, mode CallMode, inputs map[string]*model.Table, params map[string]string, outputNames []string, callID string) (map[string]*model.Table, error) {
	blobStore, err := c.blobStores(svc)
	if err != nil {
		return nil, err
	}
	batch := &ws.BatchClient{
		HTTPClient: c.httpClient,
		Stager: &blob.Stager{
			Store:     blobStore,
			Container: svc.BlobContainer,
			Prefix:    svc.BlobPathPrefix,
			Account:   svc.BlobAccount,
			AccessKey: svc.BlobKey,
		},
		PollInterval: mode.PollInterval,
		Codec:        c.codecOpts,
	}
	if c.track {
		batch.OnJobSubmitted = func(jobID string) {
			if err := store.SetCallJob(callID, jobID); err != nil {
				log.Printf("⚠️ failed to record job id for call %s: %v", callID, err)
			}
		}
	}
	return batch.Execute(ctx, svc.BaseURL, svc.APIKey, inputs, params, outputNames)
}

func (c *Client) callLocal(ctx context.Context, service string, inputs map[string]*model.Table, params map[string]string) (map[string]*model.Table, error) {
	if c.localFactory == nil {
		return nil, &ConfigError{Service: service, Msg: "no local implementation configured"}
	}
	c.localOnce.Do(func() {
		c.local, c.localErr = c.localFactory()
	})
	if c.localErr != nil {
		return nil, &ConfigError{Service: service, Msg: fmt.Sprintf("failed to build local implementation: %v", c.localErr)}
	}
	return c.local.Call(ctx, service, inputs, params)
}
