// Package opcua is the OPC UA bridge: it builds a dynamic node tree from a
// project, binds an opc.tcp endpoint with the configured security
// policies, periodically pushes buffered tag values into OPC UA variable
// nodes, and intercepts client writes, routing them back through the
// runtime monitor's write-router.
package opcua

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopcua/opcua/server"
	"github.com/gopcua/opcua/ua"
	"go.uber.org/zap"

	"github.com/edgeflow/modgate/internal/buffer"
	"github.com/edgeflow/modgate/internal/gatewayerr"
	"github.com/edgeflow/modgate/internal/logger"
	"github.com/edgeflow/modgate/internal/project"
	"github.com/edgeflow/modgate/internal/runtime"
)

// Config carries the OPC UA server's startup parameters, drawn from
// internal/config. The project document's opcua_settings block is not
// applied to it.
type Config struct {
	Host              string
	Port              int
	AppName           string
	PublishInterval   time.Duration
	SecurityPolicies  []string
	AllowAnonymous    bool
	Username          string
	Password          string
	CertDir           string
	CertValidityDays  int
}

// Bridge owns the OPC UA server, its node tree, and the push timer.
type Bridge struct {
	cfg    Config
	buf    *buffer.Buffer
	router runtime.WriteRouter
	log    *zap.Logger

	srv *server.Server
	ns  uint16

	mu        sync.RWMutex
	nodes     map[string]*nodeEntry // tree-path -> node
	arrayMeta map[string]arrayInfo  // base-path -> element count, for array aggregation
	updating  map[string]struct{}   // paths currently being written by the push loop, to suppress write-interceptor feedback

	stopPush context.CancelFunc
	pushDone chan struct{}
}

type nodeEntry struct {
	id       *ua.NodeID
	variant  string // canonical data type, post-scaling
	arrayLen int    // 0 for scalars
}

type arrayInfo struct {
	elementCount int
	canonical    string
}

// New creates a Bridge. Call Start to bind the endpoint and build the node
// tree from a project.
func New(cfg Config, buf *buffer.Buffer, router runtime.WriteRouter) *Bridge {
	if cfg.PublishInterval < 100*time.Millisecond {
		cfg.PublishInterval = time.Second
	}
	return &Bridge{
		cfg:       cfg,
		buf:       buf,
		router:    router,
		log:       logger.Get(),
		nodes:     make(map[string]*nodeEntry),
		arrayMeta: make(map[string]arrayInfo),
		updating:  make(map[string]struct{}),
	}
}

// Start binds the endpoint, installs security/auth/write-interceptor,
// builds the node tree from p, and launches the periodic push loop.
func (b *Bridge) Start(ctx context.Context, p *project.Project) error {
	// Give a previously bound port a moment to release (matters most on
	// Windows; harmless elsewhere).
	time.Sleep(100 * time.Millisecond)

	policies, err := securityPolicies(b.cfg.SecurityPolicies)
	if err != nil {
		return err
	}

	var certPEM, keyPEM []byte
	if requiresCertificate(b.cfg.SecurityPolicies) {
		certPEM, keyPEM, err = loadOrGenerateCert(b.cfg)
		if err != nil {
			return gatewayerr.Wrap(gatewayerr.ErrOpcuaStartFailure, "certificate: %v", err)
		}
	}

	endpointURL := fmt.Sprintf("opc.tcp://%s:%d/", b.cfg.Host, b.cfg.Port)

	opts := []server.Option{
		server.EndPoint(b.cfg.Host, b.cfg.Port),
		server.ApplicationName(b.cfg.AppName),
		server.ApplicationURI(fmt.Sprintf("urn:%s:server", b.cfg.AppName)),
		server.ProductURI(fmt.Sprintf("urn:%s:product", b.cfg.AppName)),
	}
	for _, p := range policies {
		opts = append(opts, server.SecurityPolicy(p.policy, p.mode))
	}
	if len(certPEM) > 0 {
		opts = append(opts, server.PrivateKey(keyPEM), server.Certificate(certPEM))
	}
	opts = append(opts, server.UserNameIdentityValidator(b.validateCredentials), server.AnonymousAccess(b.cfg.AllowAnonymous))

	srv := server.New(opts...)
	if err := srv.Start(ctx); err != nil {
		return gatewayerr.Wrap(gatewayerr.ErrOpcuaStartFailure, "bind %s: %v", endpointURL, err)
	}
	b.srv = srv

	ns, err := srv.AddNamespace(b.cfg.AppName)
	if err != nil {
		srv.Close()
		return gatewayerr.Wrap(gatewayerr.ErrOpcuaStartFailure, "add namespace: %v", err)
	}
	b.ns = ns

	srv.SetWriteCallback(b.onClientWrite)

	if err := b.buildNodeTree(p); err != nil {
		srv.Close()
		return gatewayerr.Wrap(gatewayerr.ErrOpcuaStartFailure, "build node tree: %v", err)
	}

	b.startPushLoop()
	b.log.Info("opc ua bridge started", zap.String("endpoint", endpointURL))
	return nil
}

// Stop stops the push timer, stops the server, and clears caches.
// Idempotent.
func (b *Bridge) Stop() {
	if b.stopPush != nil {
		b.stopPush()
		<-b.pushDone
		b.stopPush = nil
	}
	if b.srv != nil {
		b.srv.Close()
		b.srv = nil
	}
	b.mu.Lock()
	b.nodes = make(map[string]*nodeEntry)
	b.arrayMeta = make(map[string]arrayInfo)
	b.mu.Unlock()
}

func (b *Bridge) validateCredentials(username, password string) bool {
	return username == b.cfg.Username && password == b.cfg.Password
}
