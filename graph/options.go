package graph

// Functional options, in the teacher's style: an unexported options struct
// per constructor, applied by small Option interfaces rather than variadic
// struct literals, so new knobs can be added without breaking callers.

type coreOptions struct {
	logger Logger
}

// CoreOption configures a Core at construction time.
type CoreOption interface {
	applyCore(*coreOptions)
}

type coreOptionFunc func(*coreOptions)

func (f coreOptionFunc) applyCore(o *coreOptions) { f(o) }

// WithCoreLogger attaches a Logger to the Core and anything constructed
// through it that doesn't override it explicitly.
func WithCoreLogger(l Logger) CoreOption {
	return coreOptionFunc(func(o *coreOptions) { o.logger = l })
}

type driverOptions struct {
	quantum    uint32
	sampleRate uint32
	logger     Logger
}

// DriverOption configures a Driver at construction time.
type DriverOption interface {
	applyDriver(*driverOptions)
}

type driverOptionFunc func(*driverOptions)

func (f driverOptionFunc) applyDriver(o *driverOptions) { f(o) }

// WithQuantum overrides the driver's nominal quantum, in frames.
func WithQuantum(frames uint32) DriverOption {
	return driverOptionFunc(func(o *driverOptions) { o.quantum = frames })
}

// WithSampleRate overrides the driver's nominal sample rate, in Hz.
func WithSampleRate(hz uint32) DriverOption {
	return driverOptionFunc(func(o *driverOptions) { o.sampleRate = hz })
}

// WithDriverLogger attaches a Logger to a Driver, overriding its Core's.
func WithDriverLogger(l Logger) DriverOption {
	return driverOptionFunc(func(o *driverOptions) { o.logger = l })
}

func defaultDriverOptions() driverOptions {
	return driverOptions{
		quantum:    DefaultQuantum,
		sampleRate: DefaultSampleRate,
	}
}
