package dupe

// Options holds codec limits and encoder settings.
type Options struct {
	MaxPayload    int64 // largest decompressed data block accepted
	MaxDepth      int   // deepest table/array nesting accepted
	MaxInfo       int   // largest info block accepted
	DictCap       int   // LZMA dictionary capacity used when encoding
	RecomputeSize bool  // overwrite the size field with the compressed length
}

// Option configures a codec.
type Option func(*Options)

// DefaultOptions returns the default limits.
func DefaultOptions() Options {
	return Options{
		MaxPayload: DefaultMaxPayload,
		MaxDepth:   DefaultMaxDepth,
		MaxInfo:    DefaultMaxInfo,
		DictCap:    DefaultDictCap,
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxPayload bounds the decompressed size of the data block (default 64 MiB).
func WithMaxPayload(n int64) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxPayload = n
		}
	}
}

// WithMaxDepth bounds table and array nesting (default 512).
func WithMaxDepth(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxDepth = n
		}
	}
}

// WithMaxInfo bounds the info block (default 64 KiB).
func WithMaxInfo(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxInfo = n
		}
	}
}

// WithCompressionDict sets the LZMA dictionary capacity used by Encode.
func WithCompressionDict(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.DictCap = n
		}
	}
}

// WithRecomputedSize makes Encode store the compressed data length in the
// size field instead of the value carried by the document.
func WithRecomputedSize() Option {
	return func(o *Options) {
		o.RecomputeSize = true
	}
}
