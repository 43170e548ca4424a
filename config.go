package memcache

import (
	"fmt"
	"log"
	"time"

	"github.com/arlobridge/gomemcache/protocol"
)

// ServerAddr is one seed address in the configuration surface
// (spec.md §6: "servers: [ {address, port} ]").
type ServerAddr struct {
	Address string
	Port    int
}

func (s ServerAddr) String() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

// FailurePolicyKind selects which FailurePolicy a SocketPoolConfig builds.
type FailurePolicyKind int

const (
	FailurePolicyNone FailurePolicyKind = iota
	FailurePolicyThrottling
)

// SocketPoolConfig configures the per-node socket pool (spec.md §6).
type SocketPoolConfig struct {
	MinPoolSize       int32
	MaxPoolSize       int32
	ConnectionTimeout time.Duration
	ReceiveTimeout    time.Duration
	QueueTimeout      time.Duration
	DeadTimeout       time.Duration

	FailurePolicy FailurePolicyKind
	// FailureThreshold and ResetAfter parametrize the Throttling policy.
	FailureThreshold uint32
	ResetAfter       time.Duration
}

// AuthenticationConfig carries SASL credentials for binary-dialect pools
// (spec.md §6: "authentication: { type, parameters: {...} }").
type AuthenticationConfig struct {
	Zone     string
	Username string
	Password string
}

func (a *AuthenticationConfig) provider() AuthenticationProvider {
	if a == nil {
		return nil
	}
	return PlainAuth{Username: a.Username, Password: a.Password}
}

// Config is the full client configuration surface (spec.md §6).
type Config struct {
	Servers []ServerAddr

	SocketPool SocketPoolConfig

	// Dialect defaults to protocol.Binary.
	Dialect protocol.Dialect

	// Authentication is optional; when set, Dialect must be Binary.
	Authentication *AuthenticationConfig

	// KeyTransformer, NodeLocatorFactory, and Transcoder are pluggable
	// capabilities; nil selects the package defaults.
	KeyTransformer     KeyTransformer
	NodeLocatorFactory func(addrs []string) NodeLocator
	Transcoder         Transcoder

	// MultiNodeDeadline bounds cross-node fan-out (multi-get, flush,
	// stats). Zero selects the 13-second default from spec.md §5.
	MultiNodeDeadline time.Duration

	// Logger receives node-down/node-recovered/probe-failed diagnostics
	// from the reconnection scheduler. Nil selects log.Default().
	Logger *log.Logger
}

const defaultMultiNodeDeadline = 13 * time.Second

func (c *Config) withDefaults() Config {
	out := *c
	if out.SocketPool.MaxPoolSize <= 0 {
		out.SocketPool.MaxPoolSize = 10
	}
	if out.SocketPool.ConnectionTimeout <= 0 {
		out.SocketPool.ConnectionTimeout = 3 * time.Second
	}
	if out.SocketPool.ReceiveTimeout <= 0 {
		out.SocketPool.ReceiveTimeout = 3 * time.Second
	}
	if out.SocketPool.QueueTimeout <= 0 {
		out.SocketPool.QueueTimeout = 3 * time.Second
	}
	if out.SocketPool.DeadTimeout <= 0 {
		out.SocketPool.DeadTimeout = 30 * time.Second
	}
	if out.SocketPool.FailurePolicy == FailurePolicyThrottling {
		if out.SocketPool.FailureThreshold == 0 {
			out.SocketPool.FailureThreshold = 3
		}
		if out.SocketPool.ResetAfter <= 0 {
			out.SocketPool.ResetAfter = 10 * time.Second
		}
	}
	if out.KeyTransformer == nil {
		out.KeyTransformer = DefaultKeyTransformer{}
	}
	if out.Transcoder == nil {
		out.Transcoder = ByteTranscoder{}
	}
	if out.NodeLocatorFactory == nil {
		out.NodeLocatorFactory = func(addrs []string) NodeLocator {
			if len(addrs) == 1 {
				return NewSingleNodeLocator(addrs[0])
			}
			return NewKetamaLocator(addrs)
		}
	}
	if out.MultiNodeDeadline <= 0 {
		out.MultiNodeDeadline = defaultMultiNodeDeadline
	}
	if out.Logger == nil {
		out.Logger = log.Default()
	}
	return out
}

func (c *Config) validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("%w: at least one server is required", protocol.ErrInvalidArgument)
	}
	if c.Authentication != nil && c.Dialect == protocol.Text {
		return fmt.Errorf("%w: authentication requires the binary dialect", protocol.ErrInvalidArgument)
	}
	return nil
}

func (c *Config) codec() protocol.Codec {
	if c.Dialect == protocol.Text {
		return protocol.TextCodec{}
	}
	return protocol.BinaryCodec{}
}

func (c *Config) failurePolicy(addr string) FailurePolicy {
	switch c.SocketPool.FailurePolicy {
	case FailurePolicyThrottling:
		return NewThrottlingFailurePolicy(addr, c.SocketPool.FailureThreshold, c.SocketPool.ResetAfter, c.SocketPool.DeadTimeout)
	default:
		return NoFailurePolicy{}
	}
}
