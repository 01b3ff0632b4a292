package mapchunk

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/arloliu/chunkfield/errs"
	"github.com/arloliu/chunkfield/internal/options"
	"github.com/arloliu/chunkfield/layout"
	"github.com/arloliu/chunkfield/nested"
	"github.com/arloliu/chunkfield/structure"
	"github.com/arloliu/chunkfield/version"
)

// Config holds the settings applied by Bind options.
type Config struct {
	logger   *zap.Logger
	policy   layout.Policy
	resolver *nested.Resolver
}

// Option configures a Binding.
type Option = options.Option[*Config]

// WithLogger sets the logger used for binding and lossy-conversion events.
// The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithPolicy replaces layout.DefaultPolicy.
func WithPolicy(policy layout.Policy) Option {
	return options.New(func(c *Config) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		c.policy = policy

		return nil
	})
}

// WithRegistry resolves nested delegate types through registry instead of
// reflection. It creates a dedicated resolver cache.
func WithRegistry(registry nested.TypeRegistry) Option {
	return options.NoError(func(c *Config) {
		c.resolver = nested.NewResolver(registry)
	})
}

// WithResolver shares an existing resolver and its type cache.
func WithResolver(resolver *nested.Resolver) Option {
	return options.NoError(func(c *Config) {
		if resolver != nil {
			c.resolver = resolver
		}
	})
}

// Binding is a packet type bound to a server version.
type Binding struct {
	packetType   reflect.Type
	version      version.Version
	variant      layout.Variant
	resolver     *nested.Resolver
	delegateType reflect.Type // nil unless the layout is wrapped
	logger       *zap.Logger
}

// Bind resolves the layout of packetType for server version v.
//
// Parameters:
//   - packetType: Struct type of the packet, or a pointer to it
//   - v: Server version; fixed for the process lifetime
//   - opts: Optional configuration (logger, layout policy, nested type registry)
//
// Returns:
//   - *Binding: Immutable binding, safe to share
//   - error: ErrNotStruct for non-struct types, option errors, or the nested
//     type lookup error for wrapped layouts
func Bind(packetType reflect.Type, v version.Version, opts ...Option) (*Binding, error) {
	if packetType != nil && packetType.Kind() == reflect.Pointer {
		packetType = packetType.Elem()
	}
	if packetType == nil || packetType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("bind %v: %w", packetType, errs.ErrNotStruct)
	}

	cfg := &Config{
		logger:   zap.NewNop(),
		policy:   layout.DefaultPolicy,
		resolver: nested.Default(),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	b := &Binding{
		packetType: packetType,
		version:    v,
		variant:    cfg.policy.Resolve(v),
		resolver:   cfg.resolver,
		logger:     cfg.logger.With(zap.Stringer("packet", packetType), zap.Stringer("version", v)),
	}

	if b.variant.IsWrapped() {
		t, err := b.resolver.DelegateType(packetType, 0)
		if err != nil {
			return nil, fmt.Errorf("bind %v: %w", packetType, err)
		}
		b.delegateType = t
	}

	b.logger.Debug("map chunk layout resolved",
		zap.Stringer("layout", b.variant),
		zap.Stringer("delegate", typeStringer{b.delegateType}),
	)

	return b, nil
}

// Variant returns the resolved layout.
func (b *Binding) Variant() layout.Variant {
	return b.variant
}

// Version returns the bound server version.
func (b *Binding) Version() version.Version {
	return b.version
}

// PacketType returns the bound packet struct type.
func (b *Binding) PacketType() reflect.Type {
	return b.packetType
}

// DelegateType returns the nested delegate's slot type, or nil when the
// layout keeps every field inline.
func (b *Binding) DelegateType() reflect.Type {
	return b.delegateType
}

// Wrap returns a Packet accessing packet, which must be a pointer to the
// bound packet type. The packet is borrowed, not copied.
func (b *Binding) Wrap(packet any) (*Packet, error) {
	h, err := structure.Wrap(packet)
	if err != nil {
		return nil, err
	}
	if h.Type() != b.packetType {
		return nil, fmt.Errorf("%w: got %v, bound %v", errs.ErrPacketTypeMismatch, h.Type(), b.packetType)
	}

	return &Packet{binding: b, handle: h}, nil
}

// typeStringer renders a possibly nil reflect.Type for log fields.
type typeStringer struct {
	t reflect.Type
}

func (s typeStringer) String() string {
	if s.t == nil {
		return "none"
	}

	return s.t.String()
}
